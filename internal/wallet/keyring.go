package wallet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// KeyRing maps locking scripts to the private keys that spend them. It
// implements tx.KeyLookup.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]ringEntry
}

type ringEntry struct {
	key   *crypto.PrivateKey
	ecdsa bool
	addr  types.Address
}

// NewKeyRing creates an empty key ring.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]ringEntry)}
}

// Add registers key under the address it controls on network. ECDSA keys
// are registered under their PubKeyECDSA address, others under PubKey.
func (r *KeyRing) Add(key *crypto.PrivateKey, network types.NetworkID, ecdsa bool) (types.Address, error) {
	version := types.AddressPubKey
	if ecdsa {
		version = types.AddressPubKeyECDSA
	}
	addr, err := types.AddressFromPublicKey(key.PublicKey(), network, version)
	if err != nil {
		return types.Address{}, err
	}
	spk, err := types.PayToAddrScript(addr)
	if err != nil {
		return types.Address{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[string(spk.Script)] = ringEntry{key: key, ecdsa: ecdsa, addr: addr}
	return addr, nil
}

// AddAccount derives the receive and change keys 0..depth-1 of account
// from master and registers them as schnorr keys.
func (r *KeyRing) AddAccount(master *ExtendedKey, network types.NetworkID, account, depth uint32) error {
	if !master.IsPrivate() {
		return fmt.Errorf("add account: %w", ErrHardenedFromPublic)
	}
	acct, err := master.AccountKey(account)
	if err != nil {
		return err
	}
	defer acct.Zero()
	for _, chain := range []uint32{ChainReceive, ChainChange} {
		chainKey, err := acct.DeriveChild(chain)
		if err != nil {
			return err
		}
		for i := uint32(0); i < depth; i++ {
			child, err := chainKey.DeriveChild(i)
			if err != nil {
				chainKey.Zero()
				return err
			}
			signer, err := child.Signer()
			child.Zero()
			if err != nil {
				chainKey.Zero()
				return fmt.Errorf("chain %d index %d: %w", chain, i, err)
			}
			if _, err := r.Add(signer, network, false); err != nil {
				chainKey.Zero()
				return err
			}
		}
		chainKey.Zero()
	}
	return nil
}

// LookupKey returns the key that spends spk.
func (r *KeyRing) LookupKey(spk types.ScriptPublicKey) (*crypto.PrivateKey, bool, bool) {
	if spk.Version != 0 {
		return nil, false, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.keys[string(spk.Script)]
	return e.key, e.ecdsa, ok
}

// Addresses returns the addresses of all keys, sorted.
func (r *KeyRing) Addresses() []types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Address, 0, len(r.keys))
	for _, e := range r.keys {
		out = append(out, e.addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of keys.
func (r *KeyRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Zero wipes every private key and empties the ring.
func (r *KeyRing) Zero() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.keys {
		e.key.Zero()
		delete(r.keys, k)
	}
}
