package wallet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 derivation path constants.
// Full path: m/44'/111111'/account'/chain/index
const (
	// Purpose is the BIP-44 purpose field.
	Purpose = 44

	// CoinTypeKaspa is the registered SLIP-44 coin type.
	CoinTypeKaspa = 111111

	// ChainReceive is the chain of receive addresses.
	ChainReceive = 0

	// ChainChange is the chain of change addresses.
	ChainChange = 1
)

// ErrHardenedFromPublic is returned when hardened derivation is attempted
// on a key without private key material.
var ErrHardenedFromPublic = errors.New("hardened derivation requires a private key")

// Serialization version bytes for Kaspa extended keys.
var (
	versionKprv = []byte{0x03, 0x8f, 0x2e, 0xf4}
	versionKpub = []byte{0x03, 0x8f, 0x33, 0x2e}
)

// ExtendedKey is a BIP-32 hierarchical deterministic key.
type ExtendedKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*ExtendedKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &ExtendedKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *ExtendedKey) DeriveChild(index uint32) (*ExtendedKey, error) {
	if index >= bip32.FirstHardenedChild && !k.key.IsPrivate {
		return nil, fmt.Errorf("derive child %d: %w", index-bip32.FirstHardenedChild, ErrHardenedFromPublic)
	}
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &ExtendedKey{key: child}, nil
}

// DerivePath derives a key along path.
func (k *ExtendedKey) DerivePath(path DerivationPath) (*ExtendedKey, error) {
	current := k
	for _, seg := range path {
		child, err := current.DeriveChild(seg.ChildIndex())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		current = child
	}
	return current, nil
}

// AccountKey derives the key at m/44'/111111'/account'.
func (k *ExtendedKey) AccountKey(account uint32) (*ExtendedKey, error) {
	return k.DerivePath(KaspaPath(account, 0, 0)[:3])
}

// DeriveAddressKey derives the key at m/44'/111111'/account'/chain/index.
func (k *ExtendedKey) DeriveAddressKey(account, chain, index uint32) (*ExtendedKey, error) {
	return k.DerivePath(KaspaPath(account, chain, index))
}

// PrivateKeyBytes returns the raw 32-byte private key.
// Returns nil if this is a public-only key.
func (k *ExtendedKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *ExtendedKey) PublicKeyBytes() []byte {
	pub := k.key.PublicKey()
	return pub.Key
}

// Signer returns a crypto.PrivateKey from this key's private key.
// Returns error if this is a public-only key.
func (k *ExtendedKey) Signer() (*crypto.PrivateKey, error) {
	priv := k.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot create signer from public key")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// Address encodes this key's public key as an address on network.
func (k *ExtendedKey) Address(network types.NetworkID, version types.AddressVersion) (types.Address, error) {
	return types.AddressFromPublicKey(k.PublicKeyBytes(), network, version)
}

// IsPrivate returns true if this key contains a private key.
func (k *ExtendedKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth (0 for master).
func (k *ExtendedKey) Depth() uint8 {
	return k.key.Depth
}

// ChildIndex returns the BIP-32 child number this key was derived at.
func (k *ExtendedKey) ChildIndex() uint32 {
	if len(k.key.ChildNumber) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(k.key.ChildNumber)
}

// ParentFingerprint returns the first four bytes of HASH160 of the
// parent's public key.
func (k *ExtendedKey) ParentFingerprint() []byte {
	return append([]byte(nil), k.key.FingerPrint...)
}

// ChainCode returns the 32-byte chain code.
func (k *ExtendedKey) ChainCode() []byte {
	return append([]byte(nil), k.key.ChainCode...)
}

// Neuter returns a public-key-only copy (for watch-only wallets).
func (k *ExtendedKey) Neuter() *ExtendedKey {
	return &ExtendedKey{key: k.key.PublicKey()}
}

// String serializes the key in base58 with kprv or kpub version bytes.
func (k *ExtendedKey) String() string {
	c := *k.key
	if c.IsPrivate {
		c.Version = versionKprv
	} else {
		c.Version = versionKpub
	}
	return c.B58Serialize()
}

// Zero overwrites the private key. Public keys are left untouched.
func (k *ExtendedKey) Zero() {
	if k.key.IsPrivate {
		clear(k.key.Key)
	}
}

// ParseExtendedKey decodes a base58 kprv, kpub, xprv or xpub string.
func ParseExtendedKey(s string) (*ExtendedKey, error) {
	key, err := bip32.B58Deserialize(s)
	if err != nil {
		return nil, fmt.Errorf("parse extended key: %w", err)
	}
	switch {
	case bytes.Equal(key.Version, versionKprv), bytes.Equal(key.Version, bip32.PrivateWalletVersion):
		if !key.IsPrivate {
			return nil, fmt.Errorf("parse extended key: private version with public key data")
		}
	case bytes.Equal(key.Version, versionKpub), bytes.Equal(key.Version, bip32.PublicWalletVersion):
		if key.IsPrivate {
			return nil, fmt.Errorf("parse extended key: public version with private key data")
		}
	default:
		return nil, fmt.Errorf("parse extended key: unknown version %x", key.Version)
	}
	if key.IsPrivate {
		if _, err := crypto.PrivateKeyFromBytes(key.Key); err != nil {
			return nil, fmt.Errorf("parse extended key: %w", err)
		}
	}
	// Detach from the decode buffer.
	key.Key = append([]byte(nil), key.Key...)
	key.ChainCode = append([]byte(nil), key.ChainCode...)
	key.FingerPrint = append([]byte(nil), key.FingerPrint...)
	key.ChildNumber = append([]byte(nil), key.ChildNumber...)
	return &ExtendedKey{key: key}, nil
}
