package config

import (
	"fmt"
	"net/url"

	"github.com/Klingon-tech/kaswallet/internal/log"
	"github.com/Klingon-tech/kaswallet/internal/rpcclient"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
)

// Validate checks the config for obvious operator mistakes. UTXO ordering
// is checked only when set; spending commands require it separately.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := cfg.Network.Prefix(); err != nil {
		return err
	}

	if len(cfg.RPC.Resolvers) == 0 {
		return fmt.Errorf("rpc.resolvers must list at least one url")
	}
	for i, r := range cfg.RPC.Resolvers {
		u, err := url.Parse(r)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("rpc.resolvers[%d] %q must be a ws:// or wss:// url", i, r)
		}
	}
	if cfg.RPC.Encoding != rpcclient.EncodingJSON {
		return fmt.Errorf("rpc.encoding %q: %w", cfg.RPC.Encoding, rpcclient.ErrUnsupportedEncoding)
	}
	if cfg.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}

	fee, err := cfg.FeePolicy()
	if err != nil {
		return fmt.Errorf("fee.policy: %w", err)
	}
	if fee.Kind == tx.FeeRateKind && fee.Rate == 0 {
		return fmt.Errorf("fee.rate must be positive")
	}
	if fee.Kind == tx.FeeFixedKind && fee.Amount == 0 {
		return fmt.Errorf("fee.amount must be positive")
	}

	if cfg.UTXO.Ordering != "" {
		if _, err := cfg.Ordering(); err != nil {
			return fmt.Errorf("utxo.ordering: %w", err)
		}
	}
	if err := cfg.TxLimits().Validate(); err != nil {
		return err
	}
	if cfg.Wallet.ScanDepth == 0 {
		return fmt.Errorf("wallet.scandepth must be positive")
	}
	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error, off", cfg.Log.Level)
	}
	return nil
}
