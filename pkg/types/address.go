package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Address errors.
var (
	ErrUnsupportedAddressVersion = errors.New("unsupported address version")
	ErrInvalidAddress            = errors.New("invalid address")
)

// AddressVersion identifies the kind of payload an address carries.
type AddressVersion byte

const (
	// AddressPubKey pays to a 32-byte x-only schnorr public key.
	AddressPubKey AddressVersion = 0
	// AddressPubKeyECDSA pays to a 33-byte compressed ECDSA public key.
	AddressPubKeyECDSA AddressVersion = 1
	// AddressScriptHash pays to the BLAKE2b-256 hash of a redeem script.
	AddressScriptHash AddressVersion = 8
)

// Payload sizes per address version.
const (
	PubKeySize      = 32
	PubKeyECDSASize = 33
	ScriptHashSize  = 32
)

// String returns a short name for the version.
func (v AddressVersion) String() string {
	switch v {
	case AddressPubKey:
		return "PubKey"
	case AddressPubKeyECDSA:
		return "PubKeyECDSA"
	case AddressScriptHash:
		return "ScriptHash"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(v))
	}
}

// payloadSize returns the expected payload length for v.
func (v AddressVersion) payloadSize() (int, error) {
	switch v {
	case AddressPubKey:
		return PubKeySize, nil
	case AddressPubKeyECDSA:
		return PubKeyECDSASize, nil
	case AddressScriptHash:
		return ScriptHashSize, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedAddressVersion, byte(v))
	}
}

// Address is a network-prefixed, versioned destination.
type Address struct {
	Prefix  string
	Version AddressVersion
	Payload []byte
}

// NewAddress builds an address for the given network, checking the payload
// length against the version.
func NewAddress(network NetworkID, version AddressVersion, payload []byte) (Address, error) {
	prefix, err := network.Prefix()
	if err != nil {
		return Address{}, err
	}
	size, err := version.payloadSize()
	if err != nil {
		return Address{}, err
	}
	if len(payload) != size {
		return Address{}, fmt.Errorf("%w: %s payload must be %d bytes, got %d",
			ErrUnsupportedAddressVersion, version, size, len(payload))
	}
	p := make([]byte, size)
	copy(p, payload)
	return Address{Prefix: prefix, Version: version, Payload: p}, nil
}

// AddressFromPublicKey derives an address from a compressed 33-byte
// secp256k1 public key. For AddressPubKey the leading parity byte is
// dropped to form the x-only key.
func AddressFromPublicKey(pubKey []byte, network NetworkID, version AddressVersion) (Address, error) {
	if len(pubKey) != PubKeyECDSASize {
		return Address{}, fmt.Errorf("public key must be %d bytes, got %d", PubKeyECDSASize, len(pubKey))
	}
	switch version {
	case AddressPubKey:
		return NewAddress(network, version, pubKey[1:])
	case AddressPubKeyECDSA:
		return NewAddress(network, version, pubKey)
	default:
		return Address{}, fmt.Errorf("%w: %s is not a public key address", ErrUnsupportedAddressVersion, version)
	}
}

// ParseAddress decodes "prefix:data". If network is non-empty, the prefix
// must match it.
func ParseAddress(s string, network NetworkID) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	prefix, version, payload, err := Bech32Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !validPrefix(prefix) {
		return Address{}, fmt.Errorf("%w: unknown prefix %q", ErrUnsupportedNetwork, prefix)
	}
	if network != "" {
		want, err := network.Prefix()
		if err != nil {
			return Address{}, err
		}
		if prefix != want {
			return Address{}, fmt.Errorf("%w: address prefix %q does not belong to %s", ErrUnsupportedNetwork, prefix, network)
		}
	}
	v := AddressVersion(version)
	size, err := v.payloadSize()
	if err != nil {
		return Address{}, err
	}
	if len(payload) != size {
		return Address{}, fmt.Errorf("%w: %s payload must be %d bytes, got %d",
			ErrUnsupportedAddressVersion, v, size, len(payload))
	}
	return Address{Prefix: prefix, Version: v, Payload: payload}, nil
}

// String returns the encoded address (e.g. "kaspa:qr...").
func (a Address) String() string {
	s, err := Bech32Encode(a.Prefix, byte(a.Version), a.Payload)
	if err != nil {
		return ""
	}
	return s
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a.Prefix == "" && len(a.Payload) == 0
}

// Equal reports whether two addresses encode the same destination.
func (a Address) Equal(b Address) bool {
	return a.Prefix == b.Prefix && a.Version == b.Version && bytes.Equal(a.Payload, b.Payload)
}

// MarshalJSON encodes the address as its string form.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes an address string of any known network.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s, "")
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
