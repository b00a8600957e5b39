package types

import (
	"bytes"
	"errors"
	"testing"
)

func TestPayToAddrScript_Recover(t *testing.T) {
	schnorr, _ := AddressFromPublicKey(testPubKey(), Mainnet, AddressPubKey)
	ecdsa, _ := AddressFromPublicKey(testPubKey(), Mainnet, AddressPubKeyECDSA)
	p2sh, err := NewAddress(Mainnet, AddressScriptHash, bytes.Repeat([]byte{0x51}, ScriptHashSize))
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}

	tests := []struct {
		name    string
		addr    Address
		wantLen int
		wantOp  byte
	}{
		{"schnorr", schnorr, 34, OpCheckSig},
		{"ecdsa", ecdsa, 35, OpCheckSigECDSA},
		{"script hash", p2sh, 35, OpEqual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spk, err := PayToAddrScript(tt.addr)
			if err != nil {
				t.Fatalf("PayToAddrScript: %v", err)
			}
			if len(spk.Script) != tt.wantLen {
				t.Errorf("script length = %d, want %d", len(spk.Script), tt.wantLen)
			}
			if spk.Script[len(spk.Script)-1] != tt.wantOp {
				t.Errorf("last opcode = %#x, want %#x", spk.Script[len(spk.Script)-1], tt.wantOp)
			}

			got, err := AddressFromScriptPublicKey(spk, Mainnet)
			if err != nil {
				t.Fatalf("AddressFromScriptPublicKey: %v", err)
			}
			if !got.Equal(tt.addr) {
				t.Errorf("recovered %s, want %s", got, tt.addr)
			}
		})
	}
}

func TestAddressFromScriptPublicKey_NonStandard(t *testing.T) {
	tests := []struct {
		name string
		spk  ScriptPublicKey
	}{
		{"empty", ScriptPublicKey{}},
		{"garbage", ScriptPublicKey{Script: []byte{0x01, 0x02, 0x03}}},
		{"future version", ScriptPublicKey{Version: 1, Script: append(append([]byte{OpData32}, make([]byte, 32)...), OpCheckSig)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AddressFromScriptPublicKey(tt.spk, Mainnet); !errors.Is(err, ErrUnsupportedAddressVersion) {
				t.Errorf("got %v, want ErrUnsupportedAddressVersion", err)
			}
		})
	}
}

func TestScriptPublicKey_JSON(t *testing.T) {
	spk := ScriptPublicKey{Version: 0, Script: []byte{OpData32, 0xaa, OpCheckSig}}
	data, err := spk.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(data) != `{"version":0,"scriptPublicKey":"20aaac"}` {
		t.Errorf("JSON = %s", data)
	}
	var got ScriptPublicKey
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if !got.Equal(spk) {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}
