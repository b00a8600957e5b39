package wallet

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

func makeUTXOs(values ...uint64) []types.UtxoEntry {
	utxos := make([]types.UtxoEntry, len(values))
	for i, v := range values {
		utxos[i] = types.UtxoEntry{
			Outpoint: types.Outpoint{TxID: types.Hash{byte(i + 1)}, Index: 0},
			Amount:   v,
		}
	}
	return utxos
}

func amounts(entries []types.UtxoEntry) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.Amount
	}
	return out
}

func equalAmounts(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelect_Orderings(t *testing.T) {
	utxos := makeUTXOs(3000, 1000, 5000, 2000)
	tests := []struct {
		name     string
		ordering Ordering
		target   uint64
		want     []uint64
	}{
		{"ascending", OrderAscending, 2500, []uint64{1000, 2000}},
		{"descending", OrderDescending, 2500, []uint64{5000}},
		{"as given", OrderAsGiven, 3500, []uint64{3000, 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Selector{Ordering: tt.ordering}.Select(utxos, tt.target)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got := amounts(sel.Inputs); !equalAmounts(got, tt.want) {
				t.Errorf("inputs = %v, want %v", got, tt.want)
			}
			var total uint64
			for _, a := range tt.want {
				total += a
			}
			if sel.Total != total || sel.Change != total-tt.target {
				t.Errorf("total = %d change = %d", sel.Total, sel.Change)
			}
		})
	}
}

func TestSelect_TiesBrokenByOutpoint(t *testing.T) {
	utxos := makeUTXOs(1000, 1000, 1000)
	reversed := []types.UtxoEntry{utxos[2], utxos[0], utxos[1]}

	a, err := Selector{Ordering: OrderAscending}.Select(utxos, 1500)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	b, err := Selector{Ordering: OrderAscending}.Select(reversed, 1500)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i := range a.Inputs {
		if a.Inputs[i].Outpoint != b.Inputs[i].Outpoint {
			t.Fatalf("selection depends on input order: %v vs %v", a.Inputs, b.Inputs)
		}
	}
	if a.Inputs[0].Outpoint != utxos[0].Outpoint {
		t.Errorf("first input = %s, want lowest outpoint", a.Inputs[0].Outpoint)
	}
}

func TestSelect_InsufficientFunds(t *testing.T) {
	utxos := makeUTXOs(400, 600)
	_, err := Selector{Ordering: OrderDescending}.Select(utxos, 2000)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestSelect_WithFee(t *testing.T) {
	utxos := makeUTXOs(1000, 1000, 1000)
	s := Selector{
		Ordering:     OrderAscending,
		FeeEstimator: func(n int) (uint64, error) { return uint64(n) * 300, nil },
	}

	// 1 input: 1000 < 1000+300. 2 inputs: 2000 >= 1000+600.
	sel, err := s.Select(utxos, 1000)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Inputs) != 2 || sel.Fee != 600 || sel.Change != 400 {
		t.Errorf("inputs = %d fee = %d change = %d", len(sel.Inputs), sel.Fee, sel.Change)
	}
	if sel.Total < 1000+sel.Fee {
		t.Error("selection is under-funded")
	}

	// 3000 available but 2800 + 900 needed.
	if _, err := s.Select(utxos, 2800); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestSelect_ZeroTargetPaysFee(t *testing.T) {
	s := Selector{
		Ordering:     OrderAscending,
		FeeEstimator: func(n int) (uint64, error) { return 100, nil },
	}
	sel, err := s.Select(makeUTXOs(50, 500), 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Total < sel.Fee || len(sel.Inputs) != 2 {
		t.Errorf("inputs = %v fee = %d", amounts(sel.Inputs), sel.Fee)
	}
}

func TestSelect_FeeEstimatorError(t *testing.T) {
	boom := errors.New("boom")
	s := Selector{
		Ordering:     OrderAscending,
		FeeEstimator: func(int) (uint64, error) { return 0, boom },
	}
	if _, err := s.Select(makeUTXOs(1000), 10); !errors.Is(err, boom) {
		t.Errorf("err = %v, want estimator error", err)
	}
}

func TestSelect_SkipsZeroAndImmature(t *testing.T) {
	utxos := makeUTXOs(0, 5000, 700)
	utxos[1].IsCoinbase = true
	utxos[1].BlockDaaScore = 90
	s := Selector{Ordering: OrderDescending, CoinbaseMaturity: 100, VirtualDaaScore: 150}

	if _, err := s.Select(utxos, 1000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("immature coinbase was spent: %v", err)
	}

	s.VirtualDaaScore = 190
	sel, err := s.Select(utxos, 1000)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Inputs) != 1 || sel.Inputs[0].Amount != 5000 {
		t.Errorf("inputs = %v, want the matured coinbase", amounts(sel.Inputs))
	}
}

func TestSelect_Errors(t *testing.T) {
	if _, err := (Selector{}).Select(makeUTXOs(1000), 10); !errors.Is(err, ErrNoOrdering) {
		t.Errorf("err = %v, want ErrNoOrdering", err)
	}
	if _, err := (Selector{Ordering: OrderAscending}).Select(nil, 10); !errors.Is(err, ErrNoUTXOs) {
		t.Errorf("err = %v, want ErrNoUTXOs", err)
	}
	if _, err := (Selector{Ordering: OrderAscending}).Select(makeUTXOs(0, 0), 10); !errors.Is(err, ErrNoUTXOs) {
		t.Errorf("err = %v, want ErrNoUTXOs", err)
	}
}

func TestSelect_DoesNotReorderCaller(t *testing.T) {
	utxos := makeUTXOs(3000, 1000, 2000)
	if _, err := (Selector{Ordering: OrderAscending}).Select(utxos, 100); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := amounts(utxos); !equalAmounts(got, []uint64{3000, 1000, 2000}) {
		t.Errorf("caller slice reordered: %v", got)
	}
}

func TestParseOrdering(t *testing.T) {
	for _, o := range []Ordering{OrderAscending, OrderDescending, OrderAsGiven} {
		got, err := ParseOrdering(o.String())
		if err != nil || got != o {
			t.Errorf("ParseOrdering(%q) = %v, %v", o.String(), got, err)
		}
	}
	if _, err := ParseOrdering("random"); err == nil {
		t.Error("expected error for unknown ordering")
	}
}
