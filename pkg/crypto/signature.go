package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SignatureSize is the length of both schnorr and compact ECDSA signatures.
const SignatureSize = 64

// Signer signs 32-byte hashes.
type Signer interface {
	// SignSchnorr produces a BIP-340 schnorr signature.
	SignSchnorr(hash []byte) ([]byte, error)
	// SignECDSA produces a 64-byte r||s ECDSA signature.
	SignECDSA(hash []byte) ([]byte, error)
	// PublicKey returns the compressed 33-byte public key.
	PublicKey() []byte
}

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero or out of range")
	}
	return &PrivateKey{key: key}, nil
}

// SignSchnorr produces a BIP-340 schnorr signature over a 32-byte hash.
func (pk *PrivateKey) SignSchnorr(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// SignECDSA produces a deterministic (RFC 6979) ECDSA signature over a
// 32-byte hash, serialized as r||s.
func (pk *PrivateKey) SignECDSA(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	compact := ecdsa.SignCompact(pk.key, hash, true)
	// Drop the leading recovery code.
	return compact[1:], nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// SchnorrPublicKey returns the 32-byte x-only public key.
func (pk *PrivateKey) SchnorrPublicKey() []byte {
	return schnorr.SerializePubKey(pk.key.PubKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// VerifySchnorr checks a BIP-340 signature against a 32-byte hash and an
// x-only (32-byte) or compressed (33-byte) public key. Returns false on any error.
func VerifySchnorr(hash, signature, publicKey []byte) bool {
	if len(publicKey) == 33 {
		publicKey = publicKey[1:]
	}
	pub, err := schnorr.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pub)
}

// VerifyECDSA checks an r||s ECDSA signature against a 32-byte hash and a
// compressed public key. Returns false on any error.
func VerifyECDSA(hash, signature, publicKey []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	pub, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow || r.IsZero() {
		return false
	}
	if overflow := s.SetByteSlice(signature[32:]); overflow || s.IsZero() {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(hash, pub)
}
