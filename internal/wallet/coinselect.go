package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = tx.ErrInsufficientFunds
	ErrNoUTXOs           = errors.New("no UTXOs available")
	ErrNoOrdering        = errors.New("utxo ordering not set")
)

// Ordering is the order in which a Selector considers UTXOs.
type Ordering int

const (
	// OrderUnspecified is rejected by Select.
	OrderUnspecified Ordering = iota
	// OrderAscending spends the smallest UTXOs first, consolidating dust.
	OrderAscending
	// OrderDescending spends the largest UTXOs first, minimizing inputs.
	OrderDescending
	// OrderAsGiven keeps the order the UTXOs were supplied in.
	OrderAsGiven
)

// String returns the config name of the ordering.
func (o Ordering) String() string {
	switch o {
	case OrderAscending:
		return "ascending"
	case OrderDescending:
		return "descending"
	case OrderAsGiven:
		return "as-given"
	default:
		return "unspecified"
	}
}

// ParseOrdering maps a config name to an Ordering.
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "ascending", "asc":
		return OrderAscending, nil
	case "descending", "desc":
		return OrderDescending, nil
	case "as-given", "none":
		return OrderAsGiven, nil
	default:
		return OrderUnspecified, fmt.Errorf("unknown utxo ordering %q", s)
	}
}

// Selection holds the result of coin selection.
type Selection struct {
	Inputs []types.UtxoEntry // Selected UTXOs, in spending order.
	Total  uint64            // Sum of selected input values.
	Fee    uint64            // Estimated fee for spending Inputs.
	Change uint64            // Total - target - Fee.
}

// Selector chooses UTXOs to fund a target amount plus fee.
type Selector struct {
	// Ordering must be set; there is no implicit default.
	Ordering Ordering
	// FeeEstimator returns the fee for spending n inputs. Nil means no fee.
	FeeEstimator func(n int) (uint64, error)
	// CoinbaseMaturity and VirtualDaaScore exclude immature coinbase outputs.
	CoinbaseMaturity uint64
	VirtualDaaScore  uint64
}

// Select accumulates UTXOs in the configured order until they cover
// target plus the estimated fee for the inputs chosen so far. Zero-value
// and immature coinbase entries are skipped. The same UTXO snapshot always
// yields the same selection.
func (s Selector) Select(utxos []types.UtxoEntry, target uint64) (*Selection, error) {
	if s.Ordering == OrderUnspecified {
		return nil, ErrNoOrdering
	}
	candidates := make([]types.UtxoEntry, 0, len(utxos))
	for _, u := range utxos {
		if u.Amount > 0 && u.IsMature(s.VirtualDaaScore, s.CoinbaseMaturity) {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}
	s.sort(candidates)

	var total, fee uint64
	for i, u := range candidates {
		if total+u.Amount < total {
			return nil, fmt.Errorf("input values overflow")
		}
		total += u.Amount
		if s.FeeEstimator != nil {
			f, err := s.FeeEstimator(i + 1)
			if err != nil {
				return nil, fmt.Errorf("estimate fee: %w", err)
			}
			fee = f
		}
		need := target + fee
		if need < target {
			return nil, fmt.Errorf("target plus fee overflows")
		}
		if total >= need {
			inputs := make([]types.UtxoEntry, i+1)
			copy(inputs, candidates[:i+1])
			return &Selection{
				Inputs: inputs,
				Total:  total,
				Fee:    fee,
				Change: total - need,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: have %d, need %d plus fee %d", ErrInsufficientFunds, total, target, fee)
}

func (s Selector) sort(entries []types.UtxoEntry) {
	switch s.Ordering {
	case OrderAscending:
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Amount != entries[j].Amount {
				return entries[i].Amount < entries[j].Amount
			}
			return entries[i].Outpoint.Less(entries[j].Outpoint)
		})
	case OrderDescending:
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Amount != entries[j].Amount {
				return entries[i].Amount > entries[j].Amount
			}
			return entries[i].Outpoint.Less(entries[j].Outpoint)
		})
	}
}
