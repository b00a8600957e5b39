// Package config handles kaswallet configuration.
//
// Settings come from three layers, later ones winning:
//   - per-network defaults (defaults.go)
//   - the key = value config file in the data directory (file.go)
//   - command-line flags (flags.go)
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Klingon-tech/kaswallet/internal/wallet"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// Config holds the wallet runtime configuration.
type Config struct {
	// Core
	Network types.NetworkID `conf:"network"`
	DataDir string          `conf:"datadir"`

	// Node connection
	RPC RPCConfig

	// Transaction construction
	Fee    FeeConfig
	UTXO   UTXOConfig
	Limits LimitsConfig

	// Key derivation
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds node client settings.
type RPCConfig struct {
	Resolvers []string      `conf:"rpc.resolvers"`
	Encoding  string        `conf:"rpc.encoding"`
	Timeout   time.Duration `conf:"rpc.timeout"`
}

// FeeConfig selects the fee policy.
type FeeConfig struct {
	Policy string `conf:"fee.policy"` // rate or fixed
	Amount uint64 `conf:"fee.amount"` // sompi per transaction (fixed)
	Rate   uint64 `conf:"fee.rate"`   // sompi per 1000 grams (rate)
}

// UTXOConfig holds coin selection settings.
type UTXOConfig struct {
	Ordering string `conf:"utxo.ordering"` // ascending, descending or as-given
}

// LimitsConfig bounds the size of built transactions.
type LimitsConfig struct {
	MaxInputs  int    `conf:"limits.maxinputs"`
	MaxOutputs int    `conf:"limits.maxoutputs"`
	MaxPayload int    `conf:"limits.maxpayload"`
	MaxMass    uint64 `conf:"limits.maxmass"`
}

// WalletConfig holds HD derivation settings.
type WalletConfig struct {
	Account   uint32 `conf:"wallet.account"`
	ScanDepth uint32 `conf:"wallet.scandepth"` // addresses per chain loaded for signing
	ECDSA     bool   `conf:"wallet.ecdsa"`     // raw imported keys sign as ECDSA
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// FeePolicy returns the configured fee policy.
func (c *Config) FeePolicy() (tx.FeePolicy, error) {
	kind, err := tx.ParseFeeKind(c.Fee.Policy)
	if err != nil {
		return tx.FeePolicy{}, err
	}
	if kind == tx.FeeFixedKind {
		return tx.FixedFee(c.Fee.Amount), nil
	}
	return tx.RateFee(c.Fee.Rate), nil
}

// Ordering returns the configured UTXO ordering. It fails with
// wallet.ErrNoOrdering when none is set.
func (c *Config) Ordering() (wallet.Ordering, error) {
	if c.UTXO.Ordering == "" {
		return wallet.OrderUnspecified, wallet.ErrNoOrdering
	}
	return wallet.ParseOrdering(c.UTXO.Ordering)
}

// TxLimits returns the builder limits.
func (c *Config) TxLimits() tx.Limits {
	return tx.Limits{
		MaxInputs:      c.Limits.MaxInputs,
		MaxOutputs:     c.Limits.MaxOutputs,
		MaxPayloadSize: c.Limits.MaxPayload,
		MaxMass:        c.Limits.MaxMass,
	}
}

// BuilderParams returns the transaction builder parameters.
func (c *Config) BuilderParams() (tx.Params, error) {
	fee, err := c.FeePolicy()
	if err != nil {
		return tx.Params{}, err
	}
	return tx.Params{Fee: fee, Limits: c.TxLimits()}, nil
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.kaswallet
//	macOS:   ~/Library/Application Support/Kaswallet
//	Windows: %APPDATA%\Kaswallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kaswallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Kaswallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Kaswallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Kaswallet")
	default:
		return filepath.Join(home, ".kaswallet")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// CredentialsDir returns the encrypted credential store directory.
func (c *Config) CredentialsDir() string {
	return filepath.Join(c.NetworkDataDir(), "credentials")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "kaswallet.conf")
}
