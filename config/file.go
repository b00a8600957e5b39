package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// LoadFile loads configuration values from a .conf file.
// Format: key = value (one per line, # for comments). A missing file
// yields no values.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file values to cfg.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets one config value by key. Unknown keys are ignored.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		id, err := types.ParseNetworkID(value)
		if err != nil {
			return err
		}
		cfg.Network = id
	case "datadir":
		cfg.DataDir = value

	// Node connection
	case "rpc.resolvers", "rpc.resolver":
		cfg.RPC.Resolvers = parseStringList(value)
	case "rpc.encoding":
		cfg.RPC.Encoding = strings.ToLower(value)
	case "rpc.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.RPC.Timeout = d

	// Fees
	case "fee.policy":
		cfg.Fee.Policy = strings.ToLower(value)
	case "fee.amount":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Fee.Amount = n
	case "fee.rate":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Fee.Rate = n

	// Coin selection
	case "utxo.ordering":
		cfg.UTXO.Ordering = strings.ToLower(value)

	// Limits
	case "limits.maxinputs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Limits.MaxInputs = n
	case "limits.maxoutputs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Limits.MaxOutputs = n
	case "limits.maxpayload":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Limits.MaxPayload = n
	case "limits.maxmass":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Limits.MaxMass = n

	// Wallet
	case "wallet.account":
		n, err := strconv.ParseUint(value, 10, 31)
		if err != nil {
			return err
		}
		cfg.Wallet.Account = uint32(n)
	case "wallet.scandepth":
		n, err := strconv.ParseUint(value, 10, 31)
		if err != nil {
			return err
		}
		cfg.Wallet.ScanDepth = uint32(n)
	case "wallet.ecdsa":
		cfg.Wallet.ECDSA = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network types.NetworkID) error {
	content := `# kaswallet configuration

# Network: mainnet, testnet-10, testnet-11, simnet or devnet
network = ` + string(network) + `

# Data directory (default: ~/.kaswallet)
# datadir = ~/.kaswallet

# ============================================================================
# Node connection
# ============================================================================

# wRPC resolvers, tried in order (comma-separated). The default is the
# local node's JSON port for the selected network.
# rpc.resolvers = ws://127.0.0.1:` + defaultRPCPort(network) + `
rpc.encoding = json
rpc.timeout = 10s

# ============================================================================
# Fees
# ============================================================================

# rate: fee.rate sompi per 1000 grams of mass
# fixed: fee.amount sompi per transaction
fee.policy = rate
fee.rate = 1000
# fee.amount = 10000

# ============================================================================
# Coin selection
# ============================================================================

# ascending consolidates small outputs, descending spends the fewest inputs,
# as-given keeps the node's order
utxo.ordering = descending

# ============================================================================
# Transaction limits
# ============================================================================

limits.maxinputs = 80
limits.maxoutputs = 20
limits.maxpayload = 16384
limits.maxmass = 100000

# ============================================================================
# Wallet
# ============================================================================

# wallet.account = 0
wallet.scandepth = 20
# wallet.ecdsa = false

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
