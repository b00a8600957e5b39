package tx

import (
	"testing"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

func TestMinimumFee(t *testing.T) {
	tests := []struct {
		mass, rate, want uint64
	}{
		{0, DefaultMinRelayFeeRate, 0},
		{1, DefaultMinRelayFeeRate, 1},
		{2036, DefaultMinRelayFeeRate, 2036},
		{1, 1, 1},    // rounds up
		{999, 1, 1},  // rounds up
		{1000, 1, 1}, // exact
		{1001, 1, 2},
	}
	for _, tt := range tests {
		if got := MinimumFee(tt.mass, tt.rate); got != tt.want {
			t.Errorf("MinimumFee(%d, %d) = %d, want %d", tt.mass, tt.rate, got, tt.want)
		}
	}
}

func TestFeePolicy_Fee(t *testing.T) {
	if got := FixedFee(5000).Fee(123456); got != 5000 {
		t.Errorf("fixed fee = %d, want 5000", got)
	}
	tests := []struct {
		rate, mass, want uint64
	}{
		{DefaultMinRelayFeeRate, 2037, 2037},
		{3000, 2000, 6000},
		{1, 1, 1},
		{1, 1001, 2},
		{0, 5000, 0},
	}
	for _, tt := range tests {
		if got := RateFee(tt.rate).Fee(tt.mass); got != tt.want {
			t.Errorf("RateFee(%d).Fee(%d) = %d, want %d", tt.rate, tt.mass, got, tt.want)
		}
	}
}

func TestFeePolicy_RateMatchesMinimumFee(t *testing.T) {
	for _, mass := range []uint64{1, 999, 1000, 2037, 100_000} {
		if got, want := RateFee(DefaultMinRelayFeeRate).Fee(mass), MinimumFee(mass, DefaultMinRelayFeeRate); got != want {
			t.Errorf("mass %d: rate fee = %d, minimum fee = %d", mass, got, want)
		}
	}
}

func TestParseFeeKind(t *testing.T) {
	for in, want := range map[string]FeeKind{"": FeeRateKind, "rate": FeeRateKind, "fixed": FeeFixedKind} {
		got, err := ParseFeeKind(in)
		if err != nil || got != want {
			t.Errorf("ParseFeeKind(%q) = %v, %v; want %v", in, got, err, want)
		}
		if in != "" && got.String() != in {
			t.Errorf("String() = %q, want %q", got.String(), in)
		}
	}
	if _, err := ParseFeeKind("auto"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestIsDust(t *testing.T) {
	p2pk := types.ScriptPublicKey{Script: make([]byte, 34)}
	// (8+2+8+34)+148 = 200; dust below 3*200 = 600 sompi.
	tests := []struct {
		value uint64
		want  bool
	}{
		{0, true},
		{599, true},
		{600, false},
		{types.SompiPerKaspa, false},
		{^uint64(0), false},
	}
	for _, tt := range tests {
		out := Output{Value: tt.value, ScriptPublicKey: p2pk}
		if got := IsDust(out, DefaultMinRelayFeeRate); got != tt.want {
			t.Errorf("IsDust(%d) = %v, want %v", tt.value, got, tt.want)
		}
	}
	if IsDust(Output{ScriptPublicKey: p2pk}, 0) {
		t.Error("nothing is dust at a zero relay rate")
	}
}
