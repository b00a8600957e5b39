package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// Version is the kaswallet release.
const Version = "0.1.0"

// Flags holds parsed global command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	Testnet bool
	DataDir string
	Config  string

	// Node connection
	Resolvers string
	Encoding  string
	Timeout   time.Duration

	// Fees and selection
	FeePolicy string
	Fee       uint64
	FeeRate   uint64
	Ordering  string

	// Limits
	MaxInputs  int
	MaxOutputs int
	MaxPayload int
	MaxMass    uint64

	// Wallet
	Account   int
	ScanDepth int
	ECDSA     bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the command and its arguments.
	Args []string

	// Explicitly-set flags (for zero-value overrides).
	SetAccount bool
	SetECDSA   bool
	SetLogJSON bool
}

// ParseFlags parses the global flags in args (without the program name).
// Parsing stops at the first non-flag argument, which starts the command.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("kaswallet", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network (mainnet, testnet-10, testnet-11, simnet, devnet)")
	fs.BoolVar(&f.Testnet, "testnet", false, "Shorthand for --network=testnet-10")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Node connection
	fs.StringVar(&f.Resolvers, "rpc", "", "Comma-separated node wRPC urls")
	fs.StringVar(&f.Encoding, "encoding", "", "wRPC encoding (json)")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Dial and request timeout")

	// Fees and selection
	fs.StringVar(&f.FeePolicy, "fee-policy", "", "Fee policy: rate or fixed")
	fs.Uint64Var(&f.Fee, "fee", 0, "Fixed fee per transaction in sompi")
	fs.Uint64Var(&f.FeeRate, "fee-rate", 0, "Fee rate in sompi per 1000 grams")
	fs.StringVar(&f.Ordering, "ordering", "", "UTXO ordering: ascending, descending or as-given")

	// Limits
	fs.IntVar(&f.MaxInputs, "max-inputs", 0, "Maximum inputs per transaction")
	fs.IntVar(&f.MaxOutputs, "max-outputs", 0, "Maximum payment outputs per transaction")
	fs.IntVar(&f.MaxPayload, "max-payload", 0, "Maximum payload bytes per transaction")
	fs.Uint64Var(&f.MaxMass, "max-mass", 0, "Maximum mass per transaction")

	// Wallet
	fs.IntVar(&f.Account, "account", 0, "HD account index")
	fs.IntVar(&f.ScanDepth, "scan-depth", 0, "Addresses per chain loaded for signing")
	fs.BoolVar(&f.ECDSA, "ecdsa", false, "Sign with raw keys as ECDSA")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	if f.Testnet {
		f.Network = string(types.Testnet10)
	}
	f.SetAccount = isFlagSet(fs, "account")
	f.SetECDSA = isFlagSet(fs, "ecdsa")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()

	if f.Account < 0 || f.ScanDepth < 0 {
		return nil, fmt.Errorf("--account and --scan-depth must not be negative")
	}
	return f, nil
}

// ApplyFlags applies command-line flags to cfg.
func ApplyFlags(cfg *Config, f *Flags) error {
	// Core
	if f.Network != "" {
		id, err := types.ParseNetworkID(f.Network)
		if err != nil {
			return err
		}
		cfg.Network = id
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Node connection
	if f.Resolvers != "" {
		cfg.RPC.Resolvers = parseStringList(f.Resolvers)
	}
	if f.Encoding != "" {
		cfg.RPC.Encoding = strings.ToLower(f.Encoding)
	}
	if f.Timeout != 0 {
		cfg.RPC.Timeout = f.Timeout
	}

	// Fees and selection
	if f.FeePolicy != "" {
		cfg.Fee.Policy = strings.ToLower(f.FeePolicy)
	}
	if f.Fee != 0 {
		cfg.Fee.Amount = f.Fee
	}
	if f.FeeRate != 0 {
		cfg.Fee.Rate = f.FeeRate
	}
	if f.Ordering != "" {
		cfg.UTXO.Ordering = strings.ToLower(f.Ordering)
	}

	// Limits
	if f.MaxInputs != 0 {
		cfg.Limits.MaxInputs = f.MaxInputs
	}
	if f.MaxOutputs != 0 {
		cfg.Limits.MaxOutputs = f.MaxOutputs
	}
	if f.MaxPayload != 0 {
		cfg.Limits.MaxPayload = f.MaxPayload
	}
	if f.MaxMass != 0 {
		cfg.Limits.MaxMass = f.MaxMass
	}

	// Wallet
	if f.SetAccount {
		cfg.Wallet.Account = uint32(f.Account)
	}
	if f.ScanDepth != 0 {
		cfg.Wallet.ScanDepth = uint32(f.ScanDepth)
	}
	if f.SetECDSA {
		cfg.Wallet.ECDSA = f.ECDSA
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
	return nil
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the global help text.
func PrintUsage(w io.Writer) {
	usage := `kaswallet - HD wallet and transfer tool for Kaspa

Usage:
  kaswallet [options] <command> [arguments]

Commands:
  create [--store <owner>]       Generate a mnemonic and print the first addresses
  restore [--store <owner>]      Rebuild wallet details from an existing mnemonic
  derive <owner> <count> [start] Derive receive and change addresses from a stored key
  derive --path <path> <owner>   Derive the address at one BIP-44 path
  import-key <owner> <kind>      Store a raw hex key or extended key (kind: raw, extended)
  keys                           List stored credentials (no secrets shown)
  balance <address>...           Show confirmed balances
  send <owner> <address> <KAS> [<address> <KAS>...]
                                 Send KAS to one or more addresses
  send-token <owner> <address> <symbol> <amount>
                                 Send a token transfer payload with a zero-value output

Core Options:
  --network       mainnet (default), testnet-10, testnet-11, simnet, devnet
  --testnet       Shorthand for --network=testnet-10
  --datadir       Data directory (default: ~/.kaswallet)
  --config, -c    Config file path (default: <datadir>/kaswallet.conf)

Node Options:
  --rpc           Comma-separated wRPC urls, tried in order
  --encoding      wRPC encoding (json)
  --timeout       Dial and request timeout (default: 10s)

Transaction Options:
  --fee-policy    rate (default) or fixed
  --fee-rate      Sompi per 1000 grams of mass (default: 1000)
  --fee           Fixed fee per transaction in sompi
  --ordering      UTXO ordering: ascending, descending, as-given
  --max-inputs    Inputs per transaction (default: 80)
  --max-outputs   Payment outputs per transaction (default: 20)
  --max-payload   Payload bytes per transaction (default: 16384)
  --max-mass      Mass per transaction (default: 100000)

Wallet Options:
  --account       HD account index (default: 0)
  --scan-depth    Addresses per chain loaded for signing (default: 20)
  --ecdsa         Raw keys sign as ECDSA instead of schnorr

Logging Options:
  --log-level     trace, debug, info, warn, error, off (default: info)
  --log-file      Log file path (default: stderr only)
  --log-json      Output logs as JSON
`
	fmt.Fprint(w, usage)
}

// Load builds the configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}

	// Determine network first (needed for defaults)
	network := types.Mainnet
	if flags.Network != "" {
		network, err = types.ParseNetworkID(flags.Network)
		if err != nil {
			return nil, nil, err
		}
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags win over the file, including the network.
	if err := ApplyFlags(cfg, flags); err != nil {
		return nil, nil, err
	}
	// Untouched default resolvers follow the final network.
	if cfg.Network != network && slices.Equal(cfg.RPC.Resolvers, Default(network).RPC.Resolvers) {
		cfg.RPC.Resolvers = Default(cfg.Network).RPC.Resolvers
	}
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	// The file or flags may have moved the network or data dir.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.CredentialsDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
