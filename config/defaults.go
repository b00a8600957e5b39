package config

import (
	"github.com/Klingon-tech/kaswallet/internal/rpcclient"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// DefaultScanDepth is the number of receive and change addresses loaded
// for signing when none is configured.
const DefaultScanDepth = 20

// defaultRPCPort returns the node's JSON wRPC port for the network.
func defaultRPCPort(network types.NetworkID) string {
	switch network {
	case types.Testnet10:
		return "18210"
	case types.Testnet11:
		return "18310"
	case types.Simnet:
		return "18610"
	case types.Devnet:
		return "18710"
	default:
		return "18110"
	}
}

// Default returns the default configuration for the given network.
// UTXO ordering is left unset; it must be chosen in the config file or
// with --ordering before funds can be spent.
func Default(network types.NetworkID) *Config {
	limits := tx.DefaultLimits()
	return &Config{
		Network: network,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Resolvers: []string{"ws://127.0.0.1:" + defaultRPCPort(network)},
			Encoding:  rpcclient.EncodingJSON,
			Timeout:   rpcclient.DefaultTimeout,
		},
		Fee: FeeConfig{
			Policy: tx.FeeRateKind.String(),
			Rate:   tx.DefaultMinRelayFeeRate,
		},
		Limits: LimitsConfig{
			MaxInputs:  limits.MaxInputs,
			MaxOutputs: limits.MaxOutputs,
			MaxPayload: limits.MaxPayloadSize,
			MaxMass:    limits.MaxMass,
		},
		Wallet: WalletConfig{
			ScanDepth: DefaultScanDepth,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
