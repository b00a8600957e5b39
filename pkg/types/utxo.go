package types

// UtxoEntry is a spendable output as reported by a node.
type UtxoEntry struct {
	Address         Address         `json:"address"`
	Outpoint        Outpoint        `json:"outpoint"`
	Amount          uint64          `json:"amount"`
	ScriptPublicKey ScriptPublicKey `json:"scriptPublicKey"`
	BlockDaaScore   uint64          `json:"blockDaaScore"`
	IsCoinbase      bool            `json:"isCoinbase"`
}

// IsMature reports whether the entry can be spent at virtualDaaScore.
// Non-coinbase entries are always mature.
func (u UtxoEntry) IsMature(virtualDaaScore, coinbaseMaturity uint64) bool {
	if !u.IsCoinbase {
		return true
	}
	return u.BlockDaaScore+coinbaseMaturity <= virtualDaaScore
}

// TotalAmount sums the amounts of entries. The second return value is
// false if the sum overflows.
func TotalAmount(entries []UtxoEntry) (uint64, bool) {
	var total uint64
	for _, e := range entries {
		if total+e.Amount < total {
			return 0, false
		}
		total += e.Amount
	}
	return total, true
}
