package rpcclient

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// GetServerInfo returns the node's version, network and sync state.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.Call(ctx, MethodGetServerInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUtxosByAddresses returns the spendable entries of addrs. Entries whose
// address does not parse on network are rejected.
func (c *Client) GetUtxosByAddresses(ctx context.Context, network types.NetworkID, addrs []types.Address) ([]types.UtxoEntry, error) {
	var res UtxosByAddressesResult
	if err := c.Call(ctx, MethodGetUtxosByAddresses, AddressesParam{Addresses: addressStrings(addrs)}, &res); err != nil {
		return nil, err
	}
	entries := make([]types.UtxoEntry, 0, len(res.Entries))
	for _, r := range res.Entries {
		e, err := r.toEntry(network)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetBalancesByAddresses returns the confirmed balance of each address.
func (c *Client) GetBalancesByAddresses(ctx context.Context, addrs []types.Address) ([]AddressBalance, error) {
	var res BalancesByAddressesResult
	if err := c.Call(ctx, MethodGetBalancesByAddresses, AddressesParam{Addresses: addressStrings(addrs)}, &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// SubmitTransaction broadcasts a signed transaction and returns the id the
// node assigned. A mismatch with the locally computed id is an error.
func (c *Client) SubmitTransaction(ctx context.Context, signed *tx.SignedTransaction) (types.Hash, error) {
	param := SubmitTransactionParam{Transaction: NewRPCTransaction(signed.Transaction())}
	var res SubmitTransactionResult
	if err := c.Call(ctx, MethodSubmitTransaction, param, &res); err != nil {
		return types.Hash{}, err
	}
	id, err := types.HexToHash(res.TransactionID)
	if err != nil {
		return types.Hash{}, fmt.Errorf("decode transaction id: %w", err)
	}
	if id != signed.ID() {
		return id, fmt.Errorf("node returned transaction id %s, expected %s", id, signed.ID())
	}
	return id, nil
}
