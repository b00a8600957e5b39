package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Script opcodes used by standard scripts.
const (
	OpData32         = 0x20
	OpData33         = 0x21
	OpData65         = 0x41
	OpEqual          = 0x87
	OpBlake2b        = 0xaa
	OpCheckSigECDSA  = 0xab
	OpCheckSig       = 0xac
	ScriptVersionMax = 0
)

// ScriptPublicKey is the locking script of an output.
type ScriptPublicKey struct {
	Version uint16 `json:"version"`
	Script  []byte `json:"script"`
}

// scriptJSON is the JSON representation of a ScriptPublicKey with hex-encoded script.
type scriptJSON struct {
	Version uint16 `json:"version"`
	Script  string `json:"scriptPublicKey"`
}

// MarshalJSON encodes the script with hex-encoded bytes.
func (s ScriptPublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{
		Version: s.Version,
		Script:  hex.EncodeToString(s.Script),
	})
}

// UnmarshalJSON decodes a script with hex-encoded bytes.
func (s *ScriptPublicKey) UnmarshalJSON(data []byte) error {
	var j scriptJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Version = j.Version
	s.Script = nil
	if j.Script != "" {
		b, err := hex.DecodeString(j.Script)
		if err != nil {
			return err
		}
		s.Script = b
	}
	return nil
}

// Equal reports whether two scripts are identical.
func (s ScriptPublicKey) Equal(o ScriptPublicKey) bool {
	return s.Version == o.Version && bytes.Equal(s.Script, o.Script)
}

// PayToAddrScript returns the standard locking script for addr.
func PayToAddrScript(addr Address) (ScriptPublicKey, error) {
	switch addr.Version {
	case AddressPubKey:
		if len(addr.Payload) != PubKeySize {
			break
		}
		script := make([]byte, 0, PubKeySize+2)
		script = append(script, OpData32)
		script = append(script, addr.Payload...)
		script = append(script, OpCheckSig)
		return ScriptPublicKey{Script: script}, nil
	case AddressPubKeyECDSA:
		if len(addr.Payload) != PubKeyECDSASize {
			break
		}
		script := make([]byte, 0, PubKeyECDSASize+2)
		script = append(script, OpData33)
		script = append(script, addr.Payload...)
		script = append(script, OpCheckSigECDSA)
		return ScriptPublicKey{Script: script}, nil
	case AddressScriptHash:
		if len(addr.Payload) != ScriptHashSize {
			break
		}
		script := make([]byte, 0, ScriptHashSize+3)
		script = append(script, OpBlake2b, OpData32)
		script = append(script, addr.Payload...)
		script = append(script, OpEqual)
		return ScriptPublicKey{Script: script}, nil
	default:
		return ScriptPublicKey{}, fmt.Errorf("%w: %d", ErrUnsupportedAddressVersion, byte(addr.Version))
	}
	return ScriptPublicKey{}, fmt.Errorf("%w: bad %s payload length %d",
		ErrUnsupportedAddressVersion, addr.Version, len(addr.Payload))
}

// AddressFromScriptPublicKey recovers the address a standard locking script
// pays to.
func AddressFromScriptPublicKey(spk ScriptPublicKey, network NetworkID) (Address, error) {
	if spk.Version > ScriptVersionMax {
		return Address{}, fmt.Errorf("%w: script version %d", ErrUnsupportedAddressVersion, spk.Version)
	}
	s := spk.Script
	switch {
	case len(s) == PubKeySize+2 && s[0] == OpData32 && s[len(s)-1] == OpCheckSig:
		return NewAddress(network, AddressPubKey, s[1:1+PubKeySize])
	case len(s) == PubKeyECDSASize+2 && s[0] == OpData33 && s[len(s)-1] == OpCheckSigECDSA:
		return NewAddress(network, AddressPubKeyECDSA, s[1:1+PubKeyECDSASize])
	case len(s) == ScriptHashSize+3 && s[0] == OpBlake2b && s[1] == OpData32 && s[len(s)-1] == OpEqual:
		return NewAddress(network, AddressScriptHash, s[2:2+ScriptHashSize])
	default:
		return Address{}, fmt.Errorf("%w: non-standard script", ErrUnsupportedAddressVersion)
	}
}
