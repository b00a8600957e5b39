package tx

import (
	"fmt"
	"math"
)

// DefaultMinRelayFeeRate is the minimum relay fee in sompi per 1000 grams
// of mass.
const DefaultMinRelayFeeRate = 1000

// FeeKind selects how a FeePolicy charges a transaction.
type FeeKind int

const (
	// FeeRateKind charges Rate sompi per 1000 grams of mass, rounded up.
	FeeRateKind FeeKind = iota
	// FeeFixedKind charges Amount sompi per transaction.
	FeeFixedKind
)

// String returns the config name of the kind.
func (k FeeKind) String() string {
	switch k {
	case FeeRateKind:
		return "rate"
	case FeeFixedKind:
		return "fixed"
	default:
		return fmt.Sprintf("FeeKind(%d)", int(k))
	}
}

// ParseFeeKind maps a config name to a FeeKind.
func ParseFeeKind(s string) (FeeKind, error) {
	switch s {
	case "rate", "":
		return FeeRateKind, nil
	case "fixed":
		return FeeFixedKind, nil
	default:
		return 0, fmt.Errorf("unknown fee policy %q", s)
	}
}

// FeePolicy decides the fee of each built transaction.
type FeePolicy struct {
	Kind   FeeKind
	Amount uint64 // sompi per transaction, FeeFixedKind
	Rate   uint64 // sompi per 1000 grams, FeeRateKind
}

// FixedFee returns a policy charging amount sompi per transaction.
func FixedFee(amount uint64) FeePolicy {
	return FeePolicy{Kind: FeeFixedKind, Amount: amount}
}

// RateFee returns a policy charging rate sompi per 1000 grams of mass.
// RateFee(DefaultMinRelayFeeRate) pays exactly the minimum relay fee.
func RateFee(rate uint64) FeePolicy {
	return FeePolicy{Kind: FeeRateKind, Rate: rate}
}

// Fee returns the fee the policy charges for a transaction of the given mass.
func (p FeePolicy) Fee(mass uint64) uint64 {
	if p.Kind == FeeFixedKind {
		return p.Amount
	}
	return MinimumFee(mass, p.Rate)
}

// MinimumFee returns the smallest fee a node relays for the given mass at
// minRelayRate sompi per 1000 grams, rounded up.
func MinimumFee(mass, minRelayRate uint64) uint64 {
	return (mass*minRelayRate + 999) / 1000
}

// IsDust reports whether out is too small to be worth relaying: its value
// would not pay a third of the fee for creating and spending it.
func IsDust(out Output, minRelayRate uint64) bool {
	if minRelayRate == 0 || out.Value > math.MaxUint64/1000 {
		return false
	}
	// Spending input size plus output size.
	size := outputSize(out) + 148
	return out.Value*1000/(3*size) < minRelayRate
}
