package tx

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// KeyLookup finds the private key that authorizes spending from a locking
// script. ecdsa reports whether the script expects an ECDSA signature.
type KeyLookup interface {
	LookupKey(spk types.ScriptPublicKey) (key *crypto.PrivateKey, ecdsa bool, ok bool)
}

// SignedTransaction is a fully signed transaction. It cannot be modified
// through its accessors.
type SignedTransaction struct {
	tx   *Transaction
	id   types.Hash
	fee  uint64
	mass uint64
}

// ID returns the transaction ID.
func (s *SignedTransaction) ID() types.Hash { return s.id }

// Fee returns the fee paid by the transaction.
func (s *SignedTransaction) Fee() uint64 { return s.fee }

// Mass returns the transaction mass.
func (s *SignedTransaction) Mass() uint64 { return s.mass }

// Transaction returns a copy of the signed transaction.
func (s *SignedTransaction) Transaction() *Transaction { return s.tx.Clone() }

// Sign signs every input of utx with the key keys returns for the UTXO it
// spends. Inputs are signed in parallel; signature scripts are written in
// input order. An unsigned transaction can be signed once.
func Sign(ctx context.Context, utx *UnsignedTransaction, keys KeyLookup) (*SignedTransaction, error) {
	if utx.signed.Load() {
		return nil, ErrAlreadySigned
	}
	if utx.Tx.ID() != utx.id || utx.contentHash() != utx.fingerprint {
		return nil, ErrTransactionMutated
	}
	if len(utx.Entries) != len(utx.Tx.Inputs) {
		return nil, fmt.Errorf("%w: %d entries, %d inputs", ErrEntryMismatch, len(utx.Entries), len(utx.Tx.Inputs))
	}

	type signingKey struct {
		key   *crypto.PrivateKey
		ecdsa bool
	}
	signers := make([]signingKey, len(utx.Entries))
	for i, e := range utx.Entries {
		key, ecdsa, ok := keys.LookupKey(e.ScriptPublicKey)
		if !ok {
			return nil, fmt.Errorf("input %d (%s): %w", i, e.Outpoint, ErrMissingSigningKey)
		}
		signers[i] = signingKey{key: key, ecdsa: ecdsa}
	}

	t := utx.Tx.Clone()
	cache := newSighashCache(t)
	scripts := make([][]byte, len(t.Inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i := range t.Inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := calcSignatureHash(t, utx.Entries, i, SigHashAll, cache)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			var sig []byte
			if signers[i].ecdsa {
				eh := crypto.SigningHashECDSA(h)
				sig, err = signers[i].key.SignECDSA(eh[:])
			} else {
				sig, err = signers[i].key.SignSchnorr(h[:])
			}
			if err != nil {
				return fmt.Errorf("sign input %d: %w", i, err)
			}
			scripts[i] = signatureScript(sig, SigHashAll)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range t.Inputs {
		t.Inputs[i].SignatureScript = scripts[i]
	}
	if !utx.signed.CompareAndSwap(false, true) {
		return nil, ErrAlreadySigned
	}
	return &SignedTransaction{tx: t, id: utx.id, fee: utx.Fee, mass: utx.Mass}, nil
}

// contentHash commits to the full transaction and every entry it spends.
func (utx *UnsignedTransaction) contentHash() types.Hash {
	h := crypto.NewTransactionHasher()
	utx.Tx.serialize(h, false)
	buf := binary.LittleEndian.AppendUint64(nil, uint64(len(utx.Entries)))
	for _, e := range utx.Entries {
		buf = appendOutpoint(buf, e.Outpoint)
		buf = binary.LittleEndian.AppendUint64(buf, e.Amount)
		buf = appendScriptPublicKey(buf, e.ScriptPublicKey)
		buf = binary.LittleEndian.AppendUint64(buf, e.BlockDaaScore)
		if e.IsCoinbase {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	h.Write(buf)
	return crypto.Sum(h)
}

// SignBatch signs each transaction of a batch in order.
func SignBatch(ctx context.Context, batch []*UnsignedTransaction, keys KeyLookup) ([]*SignedTransaction, error) {
	signed := make([]*SignedTransaction, 0, len(batch))
	for i, utx := range batch {
		s, err := Sign(ctx, utx, keys)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		signed = append(signed, s)
	}
	return signed, nil
}

// signatureScript wraps sig and the hash type in a single data push.
func signatureScript(sig []byte, hashType SigHashType) []byte {
	script := make([]byte, 0, len(sig)+2)
	script = append(script, byte(len(sig)+1))
	script = append(script, sig...)
	return append(script, byte(hashType))
}
