package rpcclient

import (
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// Method names.
const (
	MethodGetServerInfo          = "getServerInfo"
	MethodGetUtxosByAddresses    = "getUtxosByAddresses"
	MethodGetBalancesByAddresses = "getBalancesByAddresses"
	MethodSubmitTransaction      = "submitTransaction"
)

// ServerInfo describes the node the client is connected to.
type ServerInfo struct {
	ServerVersion   string `json:"serverVersion"`
	NetworkID       string `json:"networkId"`
	IsSynced        bool   `json:"isSynced"`
	HasUtxoIndex    bool   `json:"hasUtxoIndex"`
	VirtualDaaScore uint64 `json:"virtualDaaScore"`
}

// AddressBalance is the confirmed balance of one address, in sompi.
type AddressBalance struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// AddressesParam is the request body of the by-addresses queries.
type AddressesParam struct {
	Addresses []string `json:"addresses"`
}

// UtxosByAddressesResult is the getUtxosByAddresses response.
type UtxosByAddressesResult struct {
	Entries []UtxoEntryResult `json:"entries"`
}

// BalancesByAddressesResult is the getBalancesByAddresses response.
type BalancesByAddressesResult struct {
	Entries []AddressBalance `json:"entries"`
}

// UtxoEntryResult is one entry of a getUtxosByAddresses response.
type UtxoEntryResult struct {
	Address   string         `json:"address"`
	Outpoint  types.Outpoint `json:"outpoint"`
	UtxoEntry struct {
		Amount          uint64                `json:"amount"`
		ScriptPublicKey types.ScriptPublicKey `json:"scriptPublicKey"`
		BlockDaaScore   uint64                `json:"blockDaaScore"`
		IsCoinbase      bool                  `json:"isCoinbase"`
	} `json:"utxoEntry"`
}

// toEntry converts the wire entry, checking the address parses on network.
func (r UtxoEntryResult) toEntry(network types.NetworkID) (types.UtxoEntry, error) {
	addr, err := types.ParseAddress(r.Address, network)
	if err != nil {
		return types.UtxoEntry{}, fmt.Errorf("utxo %s: %w", r.Outpoint, err)
	}
	return types.UtxoEntry{
		Address:         addr,
		Outpoint:        r.Outpoint,
		Amount:          r.UtxoEntry.Amount,
		ScriptPublicKey: r.UtxoEntry.ScriptPublicKey,
		BlockDaaScore:   r.UtxoEntry.BlockDaaScore,
		IsCoinbase:      r.UtxoEntry.IsCoinbase,
	}, nil
}

// SubmitTransactionParam is the submitTransaction request body.
type SubmitTransactionParam struct {
	Transaction RPCTransaction `json:"transaction"`
	AllowOrphan bool           `json:"allowOrphan"`
}

// SubmitTransactionResult is the submitTransaction response.
type SubmitTransactionResult struct {
	TransactionID string `json:"transactionId"`
}

// RPCTransaction is the JSON wire form of a transaction.
type RPCTransaction struct {
	Version      uint16              `json:"version"`
	Inputs       []RPCTransactionIn  `json:"inputs"`
	Outputs      []RPCTransactionOut `json:"outputs"`
	LockTime     uint64              `json:"lockTime"`
	SubnetworkID string              `json:"subnetworkId"`
	Gas          uint64              `json:"gas"`
	Payload      string              `json:"payload"`
}

// RPCTransactionIn is the wire form of an input.
type RPCTransactionIn struct {
	PreviousOutpoint types.Outpoint `json:"previousOutpoint"`
	SignatureScript  string         `json:"signatureScript"`
	Sequence         uint64         `json:"sequence"`
	SigOpCount       uint8          `json:"sigOpCount"`
}

// RPCTransactionOut is the wire form of an output.
type RPCTransactionOut struct {
	Amount          uint64                `json:"value"`
	ScriptPublicKey types.ScriptPublicKey `json:"scriptPublicKey"`
}

// NewRPCTransaction converts t to its wire form.
func NewRPCTransaction(t *tx.Transaction) RPCTransaction {
	out := RPCTransaction{
		Version:      t.Version,
		Inputs:       make([]RPCTransactionIn, len(t.Inputs)),
		Outputs:      make([]RPCTransactionOut, len(t.Outputs)),
		LockTime:     t.LockTime,
		SubnetworkID: hex.EncodeToString(t.SubnetworkID[:]),
		Gas:          t.Gas,
		Payload:      hex.EncodeToString(t.Payload),
	}
	for i, in := range t.Inputs {
		out.Inputs[i] = RPCTransactionIn{
			PreviousOutpoint: in.PrevOut,
			SignatureScript:  hex.EncodeToString(in.SignatureScript),
			Sequence:         in.Sequence,
			SigOpCount:       in.SigOpCount,
		}
	}
	for i, o := range t.Outputs {
		out.Outputs[i] = RPCTransactionOut{Amount: o.Value, ScriptPublicKey: o.ScriptPublicKey}
	}
	return out
}

func addressStrings(addrs []types.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
