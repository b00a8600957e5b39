package wallet

import (
	"fmt"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// CreatedWallet is the output of wallet creation. MasterKey is the
// serialized private master key and must be handled as a secret.
type CreatedWallet struct {
	Mnemonic       string        `json:"mnemonic"`
	ReceiveAddress types.Address `json:"receiveAddress"`
	ChangeAddress  types.Address `json:"changeAddress"`
	MasterKey      string        `json:"xprv"`
}

// AddressSet holds receive and change addresses of one account.
type AddressSet struct {
	Receive []types.Address `json:"receiveAddresses"`
	Change  []types.Address `json:"changeAddresses"`
}

// CreateWallet generates a new 24-word mnemonic and returns it with the
// first receive and change addresses of account 0.
func CreateWallet(network types.NetworkID) (*CreatedWallet, error) {
	if _, err := network.Prefix(); err != nil {
		return nil, err
	}
	m, err := NewRandomMnemonic(MnemonicWords24)
	if err != nil {
		return nil, err
	}
	return RestoreWallet(m, "", network)
}

// RestoreWallet rebuilds the wallet description for an existing mnemonic.
func RestoreWallet(m *Mnemonic, passphrase string, network types.NetworkID) (*CreatedWallet, error) {
	master, err := MasterKeyFromMnemonic(m, passphrase)
	if err != nil {
		return nil, err
	}
	defer master.Zero()
	set, err := DeriveAddresses(master, network, 0, 0, 1, nil)
	if err != nil {
		return nil, err
	}
	return &CreatedWallet{
		Mnemonic:       m.Phrase(),
		ReceiveAddress: set.Receive[0],
		ChangeAddress:  set.Change[0],
		MasterKey:      master.String(),
	}, nil
}

// DeriveAddresses returns count receive and change addresses of account
// starting at start. masterKey must be private; only the neutered account
// key is used below the hardened levels, so cache never sees private keys.
func DeriveAddresses(masterKey *ExtendedKey, network types.NetworkID, account, start, count uint32, cache *DerivationCache) (*AddressSet, error) {
	if _, err := network.Prefix(); err != nil {
		return nil, err
	}
	if start+count < start {
		return nil, fmt.Errorf("address range overflows: start %d count %d", start, count)
	}
	acct, err := masterKey.AccountKey(account)
	if err != nil {
		return nil, err
	}
	pub := acct.Neuter()
	acct.Zero()

	set := &AddressSet{
		Receive: make([]types.Address, 0, count),
		Change:  make([]types.Address, 0, count),
	}
	for i := start; i < start+count; i++ {
		for _, chain := range []uint32{ChainReceive, ChainChange} {
			child, err := cache.Derive(pub, DerivationPath{{Index: chain}, {Index: i}})
			if err != nil {
				return nil, err
			}
			addr, err := child.Address(network, types.AddressPubKey)
			if err != nil {
				return nil, err
			}
			if chain == ChainReceive {
				set.Receive = append(set.Receive, addr)
			} else {
				set.Change = append(set.Change, addr)
			}
		}
	}
	return set, nil
}

// PathAddress is the address at one explicit derivation path.
type PathAddress struct {
	Path    string        `json:"path"`
	Address types.Address `json:"address"`
}

// DeriveAddressAtPath derives the schnorr address at a Kaspa BIP-44 path
// such as m/44'/111111'/0'/0/5.
func DeriveAddressAtPath(masterKey *ExtendedKey, network types.NetworkID, path string) (*PathAddress, error) {
	if _, err := network.Prefix(); err != nil {
		return nil, err
	}
	p, err := ParseBIP44Path(path)
	if err != nil {
		return nil, err
	}
	if p[0].Index != Purpose || p[1].Index != CoinTypeKaspa {
		return nil, fmt.Errorf("%w: %q is not a Kaspa path", ErrInvalidDerivationPath, path)
	}
	key, err := masterKey.DerivePath(p)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	addr, err := key.Address(network, types.AddressPubKey)
	if err != nil {
		return nil, err
	}
	return &PathAddress{Path: p.String(), Address: addr}, nil
}
