package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// parseAddresses parses addresses that must belong to network.
func parseAddresses(args []string, network types.NetworkID) ([]types.Address, error) {
	addrs := make([]types.Address, 0, len(args))
	for _, s := range args {
		addr, err := types.ParseAddress(strings.TrimSpace(s), network)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", s, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// parseOutputs parses alternating address and KAS amount arguments.
func parseOutputs(args []string, network types.NetworkID) ([]tx.PaymentOutput, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, fmt.Errorf("expected <address> <KAS> pairs")
	}
	outputs := make([]tx.PaymentOutput, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		addr, err := types.ParseAddress(args[i], network)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", args[i], err)
		}
		amount, err := types.KaspaToSompi(args[i+1])
		if err != nil {
			return nil, fmt.Errorf("amount %q: %w", args[i+1], err)
		}
		if amount == 0 {
			return nil, fmt.Errorf("amount %q: must be positive", args[i+1])
		}
		outputs = append(outputs, tx.PaymentOutput{Address: addr, Amount: amount})
	}
	return outputs, nil
}

// parseIndex parses a non-hardened derivation index.
func parseIndex(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
