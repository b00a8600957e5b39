package tx

import (
	"fmt"
	"testing"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// testKeys is a KeyLookup over a fixed set of keys.
type testKeys map[string]testKey

type testKey struct {
	key   *crypto.PrivateKey
	ecdsa bool
}

func (k testKeys) LookupKey(spk types.ScriptPublicKey) (*crypto.PrivateKey, bool, bool) {
	e, ok := k[string(spk.Script)]
	return e.key, e.ecdsa, ok
}

// newTestAccount returns a key, its schnorr address and locking script.
func newTestAccount(t *testing.T) (*crypto.PrivateKey, types.Address, types.ScriptPublicKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr, err := types.AddressFromPublicKey(key.PublicKey(), types.Testnet10, types.AddressPubKey)
	if err != nil {
		t.Fatalf("AddressFromPublicKey: %v", err)
	}
	spk, err := types.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}
	return key, addr, spk
}

// testUTXOs returns one entry per amount, all owned by addr.
func testUTXOs(addr types.Address, spk types.ScriptPublicKey, amounts ...uint64) []types.UtxoEntry {
	entries := make([]types.UtxoEntry, len(amounts))
	for i, a := range amounts {
		entries[i] = types.UtxoEntry{
			Address:         addr,
			Outpoint:        types.Outpoint{TxID: types.Hash{0xab, byte(i), byte(i >> 8)}, Index: uint32(i)},
			Amount:          a,
			ScriptPublicKey: spk,
		}
	}
	return entries
}

func mustBuilder(t *testing.T, p Params) *Builder {
	t.Helper()
	b, err := NewBuilder(p)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func sumInputs(batch []*UnsignedTransaction, external map[types.Outpoint]bool) uint64 {
	var total uint64
	for _, utx := range batch {
		for _, e := range utx.Entries {
			if external[e.Outpoint] {
				total += e.Amount
			}
		}
	}
	return total
}

// verifySignatures checks every input signature of s against entries.
func verifySignatures(s *SignedTransaction, entries []types.UtxoEntry) error {
	cache := newSighashCache(s.tx)
	if len(entries) != len(s.tx.Inputs) {
		return ErrEntryMismatch
	}
	for i, in := range s.tx.Inputs {
		script := in.SignatureScript
		if len(script) != EstimatedSignatureScriptSize || script[0] != types.OpData65 {
			return fmt.Errorf("input %d: malformed signature script", i)
		}
		sig := script[1 : 1+crypto.SignatureSize]
		h, err := calcSignatureHash(s.tx, entries, i, SigHashType(script[len(script)-1]), cache)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		spk := entries[i].ScriptPublicKey.Script
		var ok bool
		switch {
		case len(spk) == types.PubKeySize+2 && spk[0] == types.OpData32:
			ok = crypto.VerifySchnorr(h[:], sig, spk[1:1+types.PubKeySize])
		case len(spk) == types.PubKeyECDSASize+2 && spk[0] == types.OpData33:
			eh := crypto.SigningHashECDSA(h)
			ok = crypto.VerifyECDSA(eh[:], sig, spk[1:1+types.PubKeyECDSASize])
		default:
			return fmt.Errorf("input %d: non-standard script", i)
		}
		if !ok {
			return fmt.Errorf("input %d: invalid signature", i)
		}
	}
	return nil
}
