// Package tx defines transaction types, fee and mass rules, batch
// building and signing.
package tx

import (
	"encoding/binary"
	"fmt"
	"hash"
	"math"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// TxVersion is the transaction version produced by the builder.
const TxVersion = 0

// Transaction is a Kaspa-style transaction.
type Transaction struct {
	Version      uint16
	Inputs       []Input
	Outputs      []Output
	LockTime     uint64
	SubnetworkID types.SubnetworkID
	Gas          uint64
	Payload      []byte
}

// Input references a UTXO being spent.
type Input struct {
	PrevOut         types.Outpoint
	SignatureScript []byte
	Sequence        uint64
	SigOpCount      uint8
}

// Output defines a new UTXO.
type Output struct {
	Value           uint64
	ScriptPublicKey types.ScriptPublicKey
}

// ID computes the transaction ID. Signature scripts are excluded, so the
// ID is known before signing and does not change when inputs are signed.
func (tx *Transaction) ID() types.Hash {
	h := crypto.NewTransactionIDHasher()
	tx.serialize(h, true)
	return crypto.Sum(h)
}

// Hash computes the hash of the full transaction, signatures included.
func (tx *Transaction) Hash() types.Hash {
	h := crypto.NewTransactionHasher()
	tx.serialize(h, false)
	return crypto.Sum(h)
}

// serialize writes the canonical encoding of tx to w.
//
// Format: version(2) | input_count(8) | [txid(32) index(4) sig_len(8) sig sigops(1) sequence(8)]... |
// output_count(8) | [value(8) spk_version(2) script_len(8) script]... | locktime(8) | subnetwork(20) |
// gas(8) | payload_len(8) payload
//
// With excludeSignatures each input carries an empty sig and no sigops byte.
func (tx *Transaction) serialize(w hash.Hash, excludeSignatures bool) {
	var buf []byte
	buf = binary.LittleEndian.AppendUint16(buf, tx.Version)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = appendOutpoint(buf, in.PrevOut)
		if excludeSignatures {
			buf = appendVarBytes(buf, nil)
		} else {
			buf = appendVarBytes(buf, in.SignatureScript)
			buf = append(buf, in.SigOpCount)
		}
		buf = binary.LittleEndian.AppendUint64(buf, in.Sequence)
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = appendOutput(buf, out)
	}
	buf = binary.LittleEndian.AppendUint64(buf, tx.LockTime)
	buf = append(buf, tx.SubnetworkID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Gas)
	buf = appendVarBytes(buf, tx.Payload)
	w.Write(buf)
}

func appendOutpoint(buf []byte, o types.Outpoint) []byte {
	buf = append(buf, o.TxID[:]...)
	return binary.LittleEndian.AppendUint32(buf, o.Index)
}

func appendVarBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendScriptPublicKey(buf []byte, spk types.ScriptPublicKey) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, spk.Version)
	return appendVarBytes(buf, spk.Script)
}

func appendOutput(buf []byte, out Output) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, out.Value)
	return appendScriptPublicKey(buf, out.ScriptPublicKey)
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows uint64.
func (tx *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}

// Clone returns a deep copy of tx.
func (tx *Transaction) Clone() *Transaction {
	c := &Transaction{
		Version:      tx.Version,
		LockTime:     tx.LockTime,
		SubnetworkID: tx.SubnetworkID,
		Gas:          tx.Gas,
		Inputs:       make([]Input, len(tx.Inputs)),
		Outputs:      make([]Output, len(tx.Outputs)),
	}
	for i, in := range tx.Inputs {
		c.Inputs[i] = in
		if in.SignatureScript != nil {
			c.Inputs[i].SignatureScript = append([]byte(nil), in.SignatureScript...)
		}
	}
	for i, out := range tx.Outputs {
		c.Outputs[i] = Output{
			Value: out.Value,
			ScriptPublicKey: types.ScriptPublicKey{
				Version: out.ScriptPublicKey.Version,
				Script:  append([]byte(nil), out.ScriptPublicKey.Script...),
			},
		}
	}
	if tx.Payload != nil {
		c.Payload = append([]byte(nil), tx.Payload...)
	}
	return c
}
