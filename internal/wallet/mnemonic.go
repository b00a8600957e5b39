// Package wallet implements HD wallet functionality: BIP-39 mnemonics,
// BIP-32 key derivation along Kaspa BIP-44 paths, coin selection and the
// key ring used to sign transactions.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned for phrases with unknown words, a bad
// word count or a bad checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Supported mnemonic lengths.
const (
	MnemonicWords12 = 12
	MnemonicWords24 = 24
)

// Mnemonic is a validated BIP-39 recovery phrase.
type Mnemonic struct {
	phrase string
}

// NewRandomMnemonic creates a mnemonic of 12 or 24 words from secure entropy.
func NewRandomMnemonic(words int) (*Mnemonic, error) {
	var bits int
	switch words {
	case MnemonicWords12:
		bits = 128
	case MnemonicWords24:
		bits = 256
	default:
		return nil, fmt.Errorf("%w: unsupported word count %d", ErrInvalidMnemonic, words)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return nil, fmt.Errorf("generate entropy: %w", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	return &Mnemonic{phrase: phrase}, nil
}

// MnemonicFromPhrase validates a phrase against the English wordlist and
// its checksum. Surrounding and repeated whitespace is ignored.
func MnemonicFromPhrase(phrase string) (*Mnemonic, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	if !bip39.IsMnemonicValid(normalized) {
		return nil, ErrInvalidMnemonic
	}
	return &Mnemonic{phrase: normalized}, nil
}

// Phrase returns the space-separated words.
func (m *Mnemonic) Phrase() string {
	return m.phrase
}

// Words returns the individual words.
func (m *Mnemonic) Words() []string {
	return strings.Fields(m.phrase)
}

// Entropy returns the entropy the phrase encodes, without the checksum.
func (m *Mnemonic) Entropy() ([]byte, error) {
	entropy, err := bip39.EntropyFromMnemonic(m.phrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return entropy, nil
}

// Seed derives the 64-byte BIP-39 seed with an optional passphrase.
func (m *Mnemonic) Seed(passphrase string) []byte {
	return bip39.NewSeed(m.phrase, passphrase)
}
