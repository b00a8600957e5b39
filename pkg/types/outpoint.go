package types

import (
	"bytes"
	"fmt"
)

// Outpoint references an output of a previous transaction.
type Outpoint struct {
	TxID  Hash   `json:"transactionId"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// Less orders outpoints by transaction ID bytes, then index.
func (o Outpoint) Less(other Outpoint) bool {
	if c := bytes.Compare(o.TxID[:], other.TxID[:]); c != 0 {
		return c < 0
	}
	return o.Index < other.Index
}
