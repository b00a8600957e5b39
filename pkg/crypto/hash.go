// Package crypto provides the hashing and signing primitives used to
// authorize Kaspa-style transactions.
package crypto

import (
	"crypto/sha256"
	"hash"

	"github.com/Klingon-tech/kaswallet/pkg/types"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Domain keys for the keyed BLAKE2b hashers.
const (
	domainTransactionSigningHash = "TransactionSigningHash"
	domainTransactionID          = "TransactionID"
	domainTransactionHash        = "TransactionHash"
	domainSigningHashECDSA       = "TransactionSigningHashECDSA"
)

// signingHashECDSADomain is SHA-256 of the ECDSA signing domain tag.
var signingHashECDSADomain = sha256.Sum256([]byte(domainSigningHashECDSA))

func newKeyed(domain string) hash.Hash {
	h, err := blake2b.New256([]byte(domain))
	if err != nil {
		// Only fails for keys longer than 64 bytes.
		panic(err)
	}
	return h
}

// NewTransactionSigningHasher returns the keyed hasher used for signature hashes.
func NewTransactionSigningHasher() hash.Hash {
	return newKeyed(domainTransactionSigningHash)
}

// NewTransactionIDHasher returns the keyed hasher used for transaction IDs.
func NewTransactionIDHasher() hash.Hash {
	return newKeyed(domainTransactionID)
}

// NewTransactionHasher returns the keyed hasher used for full transaction hashes.
func NewTransactionHasher() hash.Hash {
	return newKeyed(domainTransactionHash)
}

// Sum finalizes h into a types.Hash.
func Sum(h hash.Hash) types.Hash {
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// SigningHashECDSA derives the ECDSA signature hash from the schnorr one.
func SigningHashECDSA(schnorrHash types.Hash) types.Hash {
	h := sha256.New()
	h.Write(signingHashECDSADomain[:])
	h.Write(schnorrHash[:])
	return Sum(h)
}

// Hash computes a BLAKE3-256 hash of the input data. It is used for local
// fingerprints (store keys, cache keys), never for consensus data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashConcat hashes the concatenation of two byte slices.
func HashConcat(a, b []byte) types.Hash {
	h := blake3.New()
	h.Write(a)
	h.Write(b)
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
