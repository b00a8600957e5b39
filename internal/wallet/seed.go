package wallet

// SeedSize is the length of a BIP-39 seed in bytes.
const SeedSize = 64

// MasterKeyFromMnemonic derives the BIP-32 master key of m. The
// intermediate seed is wiped before returning.
func MasterKeyFromMnemonic(m *Mnemonic, passphrase string) (*ExtendedKey, error) {
	seed := m.Seed(passphrase)
	defer clear(seed)
	return NewMasterKey(seed)
}
