package wallet

import (
	"testing"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

var _ tx.KeyLookup = (*KeyRing)(nil)

func TestKeyRing_AddAndLookup(t *testing.T) {
	ring := NewKeyRing()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ecdsaKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	addr, err := ring.Add(key, types.Testnet10, false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	ecdsaAddr, err := ring.Add(ecdsaKey, types.Testnet10, true)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if addr.Version != types.AddressPubKey || ecdsaAddr.Version != types.AddressPubKeyECDSA {
		t.Fatalf("versions = %s, %s", addr.Version, ecdsaAddr.Version)
	}

	spk, _ := types.PayToAddrScript(addr)
	got, isECDSA, ok := ring.LookupKey(spk)
	if !ok || isECDSA || got != key {
		t.Errorf("LookupKey(schnorr) = %v, %v, %v", got, isECDSA, ok)
	}
	spk, _ = types.PayToAddrScript(ecdsaAddr)
	got, isECDSA, ok = ring.LookupKey(spk)
	if !ok || !isECDSA || got != ecdsaKey {
		t.Errorf("LookupKey(ecdsa) = %v, %v, %v", got, isECDSA, ok)
	}

	spk.Version = 1
	if _, _, ok := ring.LookupKey(spk); ok {
		t.Error("LookupKey matched an unknown script version")
	}
	if ring.Len() != 2 || len(ring.Addresses()) != 2 {
		t.Errorf("Len() = %d", ring.Len())
	}
}

func TestKeyRing_AddAccount(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))
	ring := NewKeyRing()
	if err := ring.AddAccount(master, types.Mainnet, 0, 3); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if ring.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", ring.Len())
	}

	set, err := DeriveAddresses(master, types.Mainnet, 0, 0, 3, nil)
	if err != nil {
		t.Fatalf("DeriveAddresses: %v", err)
	}
	for _, addr := range append(set.Receive, set.Change...) {
		spk, _ := types.PayToAddrScript(addr)
		if _, _, ok := ring.LookupKey(spk); !ok {
			t.Errorf("no key for derived address %s", addr)
		}
	}

	// The master key is still usable afterwards.
	if _, err := master.DeriveAddressKey(0, 0, 0); err != nil {
		t.Errorf("master unusable after AddAccount: %v", err)
	}
	if err := ring.AddAccount(master.Neuter(), types.Mainnet, 0, 1); err == nil {
		t.Error("AddAccount from a public key should fail")
	}
}

func TestKeyRing_Zero(t *testing.T) {
	ring := NewKeyRing()
	key, _ := crypto.GenerateKey()
	addr, _ := ring.Add(key, types.Mainnet, false)
	ring.Zero()

	if ring.Len() != 0 {
		t.Errorf("Len() = %d after Zero", ring.Len())
	}
	spk, _ := types.PayToAddrScript(addr)
	if _, _, ok := ring.LookupKey(spk); ok {
		t.Error("key still found after Zero")
	}
	for _, b := range key.Serialize() {
		if b != 0 {
			t.Fatal("private key not wiped")
		}
	}
}
