package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
		{
			name:  "klingnet",
			input: []byte("klingnet"),
			want:  "677c013a662a24fb62497787316a59230409463ee36a1d7a57ba32607e20f467",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("Hash(%q) = %x, want %x", tt.input, got, want)
			}
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	h1 := Hash(data)
	h2 := Hash(data)
	if h1 != h2 {
		t.Errorf("Hash is not deterministic: %x != %x", h1, h2)
	}
}

func TestHash_DifferentInputs(t *testing.T) {
	h1 := Hash([]byte("input A"))
	h2 := Hash([]byte("input B"))
	if h1 == h2 {
		t.Error("different inputs produced the same hash")
	}
}

func TestHashConcat_EqualsManualConcat(t *testing.T) {
	a := []byte("left")
	b := []byte("right")

	want := Hash(append(append([]byte{}, a...), b...))
	if got := HashConcat(a, b); got != want {
		t.Errorf("HashConcat = %x, want %x", got, want)
	}
	if HashConcat(a, b) == HashConcat(b, a) {
		t.Error("HashConcat(a,b) should differ from HashConcat(b,a)")
	}
}

func TestKeyedHashers_DomainSeparated(t *testing.T) {
	data := []byte("transaction bytes")

	signing := NewTransactionSigningHasher()
	signing.Write(data)
	id := NewTransactionIDHasher()
	id.Write(data)
	full := NewTransactionHasher()
	full.Write(data)

	s, i, f := Sum(signing), Sum(id), Sum(full)
	if s == i || s == f || i == f {
		t.Error("keyed hashers with different domains must not collide")
	}
	if s == Hash(data) {
		t.Error("keyed BLAKE2b should differ from BLAKE3")
	}
}

func TestKeyedHashers_Deterministic(t *testing.T) {
	h1 := NewTransactionSigningHasher()
	h1.Write([]byte("abc"))
	h2 := NewTransactionSigningHasher()
	h2.Write([]byte("abc"))
	if Sum(h1) != Sum(h2) {
		t.Error("signing hasher is not deterministic")
	}
}

func TestSigningHashECDSA(t *testing.T) {
	base := Hash([]byte("schnorr hash"))
	got := SigningHashECDSA(base)
	if got == base {
		t.Error("ECDSA hash should differ from the schnorr hash")
	}
	if got != SigningHashECDSA(base) {
		t.Error("SigningHashECDSA is not deterministic")
	}
}
