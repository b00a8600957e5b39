package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedNetwork is returned for network IDs or address prefixes
// that are not known.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// NetworkID names a Kaspa network ("mainnet", "testnet-10", ...).
type NetworkID string

// Known networks.
const (
	Mainnet   NetworkID = "mainnet"
	Testnet10 NetworkID = "testnet-10"
	Testnet11 NetworkID = "testnet-11"
	Simnet    NetworkID = "simnet"
	Devnet    NetworkID = "devnet"
)

// Address prefixes per network.
const (
	PrefixMainnet = "kaspa"
	PrefixTestnet = "kaspatest"
	PrefixSimnet  = "kaspasim"
	PrefixDevnet  = "kaspadev"
)

// ParseNetworkID normalizes s and checks that it names a known network.
// "testnet" is accepted as an alias for testnet-10.
func ParseNetworkID(s string) (NetworkID, error) {
	id := NetworkID(strings.ToLower(strings.TrimSpace(s)))
	if id == "testnet" {
		id = Testnet10
	}
	if _, err := id.Prefix(); err != nil {
		return "", err
	}
	return id, nil
}

// Prefix returns the address prefix used on the network.
func (n NetworkID) Prefix() (string, error) {
	switch n {
	case Mainnet:
		return PrefixMainnet, nil
	case Testnet10, Testnet11:
		return PrefixTestnet, nil
	case Simnet:
		return PrefixSimnet, nil
	case Devnet:
		return PrefixDevnet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, string(n))
	}
}

// String returns the network name.
func (n NetworkID) String() string {
	return string(n)
}

// validPrefix reports whether p is one of the known address prefixes.
func validPrefix(p string) bool {
	switch p {
	case PrefixMainnet, PrefixTestnet, PrefixSimnet, PrefixDevnet:
		return true
	}
	return false
}
