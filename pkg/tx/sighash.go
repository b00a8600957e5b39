package tx

import (
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// SigHashType selects which parts of a transaction a signature commits to.
type SigHashType uint8

// SigHashAll commits to every input and output.
const SigHashAll SigHashType = 0x01

// sighashCache holds the per-transaction hashes shared by every input's
// signature hash. It is read-only once built.
type sighashCache struct {
	previousOutputs types.Hash
	sequences       types.Hash
	sigOpCounts     types.Hash
	outputs         types.Hash
	payload         types.Hash
}

func newSighashCache(tx *Transaction) *sighashCache {
	c := &sighashCache{}

	h := crypto.NewTransactionSigningHasher()
	for _, in := range tx.Inputs {
		h.Write(appendOutpoint(nil, in.PrevOut))
	}
	c.previousOutputs = crypto.Sum(h)

	h = crypto.NewTransactionSigningHasher()
	for _, in := range tx.Inputs {
		writeUint64(h, in.Sequence)
	}
	c.sequences = crypto.Sum(h)

	h = crypto.NewTransactionSigningHasher()
	for _, in := range tx.Inputs {
		h.Write([]byte{in.SigOpCount})
	}
	c.sigOpCounts = crypto.Sum(h)

	h = crypto.NewTransactionSigningHasher()
	for _, out := range tx.Outputs {
		h.Write(appendOutput(nil, out))
	}
	c.outputs = crypto.Sum(h)

	if tx.SubnetworkID != (types.SubnetworkID{}) || len(tx.Payload) > 0 {
		h = crypto.NewTransactionSigningHasher()
		h.Write(appendVarBytes(nil, tx.Payload))
		c.payload = crypto.Sum(h)
	}
	return c
}

func writeUint64(h hash.Hash, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	h.Write(b[:])
}

// CalcSignatureHash returns the schnorr signature hash of input idx.
// entries holds the UTXO spent by each input, in input order.
func CalcSignatureHash(tx *Transaction, entries []types.UtxoEntry, idx int, hashType SigHashType) (types.Hash, error) {
	if len(entries) != len(tx.Inputs) {
		return types.Hash{}, fmt.Errorf("%w: %d entries, %d inputs", ErrEntryMismatch, len(entries), len(tx.Inputs))
	}
	return calcSignatureHash(tx, entries, idx, hashType, newSighashCache(tx))
}

func calcSignatureHash(tx *Transaction, entries []types.UtxoEntry, idx int, hashType SigHashType, c *sighashCache) (types.Hash, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return types.Hash{}, fmt.Errorf("input index %d out of range", idx)
	}
	if hashType != SigHashAll {
		return types.Hash{}, fmt.Errorf("unsupported sighash type %#x", uint8(hashType))
	}
	in := tx.Inputs[idx]
	entry := entries[idx]

	var buf []byte
	buf = binary.LittleEndian.AppendUint16(buf, tx.Version)
	buf = append(buf, c.previousOutputs[:]...)
	buf = append(buf, c.sequences[:]...)
	buf = append(buf, c.sigOpCounts[:]...)
	buf = appendOutpoint(buf, in.PrevOut)
	buf = appendScriptPublicKey(buf, entry.ScriptPublicKey)
	buf = binary.LittleEndian.AppendUint64(buf, entry.Amount)
	buf = binary.LittleEndian.AppendUint64(buf, in.Sequence)
	buf = append(buf, in.SigOpCount)
	buf = append(buf, c.outputs[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.LockTime)
	buf = append(buf, tx.SubnetworkID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Gas)
	buf = append(buf, c.payload[:]...)
	buf = append(buf, byte(hashType))

	h := crypto.NewTransactionSigningHasher()
	h.Write(buf)
	return crypto.Sum(h), nil
}
