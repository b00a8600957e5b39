// Package types defines the primitive ledger types used by the wallet:
// hashes, outpoints, addresses, scripts and UTXO entries.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a transaction id or signature hash in bytes.
const HashSize = 32

// Hash is a 256-bit digest, displayed as lowercase hex in byte order.
type Hash [HashSize]byte

// SubnetworkIDSize is the length of a subnetwork ID in bytes.
const SubnetworkIDSize = 20

// SubnetworkID identifies the subnetwork a transaction belongs to.
// The zero value is the native subnetwork.
type SubnetworkID [SubnetworkIDSize]byte

// String returns the hex-encoded id.
func (s SubnetworkID) String() string {
	return hex.EncodeToString(s[:])
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash.
func (h Hash) Bytes() []byte {
	return append([]byte(nil), h[:]...)
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string. An empty string is the zero hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash parses exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("hash must be %d hex characters, got %d", 2*HashSize, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("invalid hash hex: %w", err)
	}
	return h, nil
}
