// kaswallet is a command-line HD wallet that builds, signs and submits
// Kaspa transactions through a node's wRPC interface.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Klingon-tech/kaswallet/config"
	"github.com/Klingon-tech/kaswallet/internal/credstore"
	"github.com/Klingon-tech/kaswallet/internal/log"
	"github.com/Klingon-tech/kaswallet/internal/rpcclient"
	"github.com/Klingon-tech/kaswallet/internal/storage"
	"github.com/Klingon-tech/kaswallet/internal/submit"
	"github.com/Klingon-tech/kaswallet/internal/transfer"
	"github.com/Klingon-tech/kaswallet/internal/wallet"
	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
	"golang.org/x/term"
)

// passwordEnv lets scripts supply the credential store password.
const passwordEnv = "KASWALLET_PASSWORD"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}
	if flags.Help {
		config.PrintUsage(os.Stdout)
		return
	}
	if flags.Version {
		fmt.Printf("kaswallet %s\n", config.Version)
		return
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logger: %v", err)
	}
	if len(flags.Args) == 0 {
		config.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	switch cmd {
	case "create":
		cmdCreate(cfg, cmdArgs)
	case "restore":
		cmdRestore(cfg, cmdArgs)
	case "derive":
		cmdDerive(cfg, cmdArgs)
	case "import-key":
		cmdImportKey(cfg, cmdArgs)
	case "keys":
		cmdKeys(cfg)
	case "balance":
		cmdBalance(ctx, cfg, cmdArgs)
	case "send":
		cmdSend(ctx, cfg, cmdArgs)
	case "send-token":
		cmdSendToken(ctx, cfg, cmdArgs)
	case "help":
		config.PrintUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		config.PrintUsage(os.Stderr)
		os.Exit(1)
	}
}

// ── create / restore ────────────────────────────────────────────────────

func cmdCreate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	owner := fs.String("store", "", "Save the master key in the credential store under this owner")
	fs.Parse(args)

	created, err := wallet.CreateWallet(cfg.Network)
	if err != nil {
		fatal("create wallet: %v", err)
	}
	finishWallet(cfg, created, *owner)
}

func cmdRestore(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	owner := fs.String("store", "", "Save the master key in the credential store under this owner")
	withPassphrase := fs.Bool("passphrase", false, "Prompt for a BIP-39 passphrase")
	fs.Parse(args)

	phrase, err := readPassword("Enter mnemonic: ")
	if err != nil {
		fatal("read mnemonic: %v", err)
	}
	m, err := wallet.MnemonicFromPhrase(strings.Join(strings.Fields(string(phrase)), " "))
	clear(phrase)
	if err != nil {
		fatal("%v", err)
	}

	var passphrase string
	if *withPassphrase {
		p, err := readPassword("Enter passphrase: ")
		if err != nil {
			fatal("read passphrase: %v", err)
		}
		passphrase = string(p)
		clear(p)
	}

	restored, err := wallet.RestoreWallet(m, passphrase, cfg.Network)
	if err != nil {
		fatal("restore wallet: %v", err)
	}
	finishWallet(cfg, restored, *owner)
}

// finishWallet optionally stores the master key, then prints the wallet.
func finishWallet(cfg *config.Config, w *wallet.CreatedWallet, owner string) {
	if owner != "" {
		store, closeStore := openStore(cfg, true)
		defer closeStore()
		material := &credstore.KeyMaterial{Kind: credstore.KindExtended, Raw: []byte(w.MasterKey)}
		if err := store.Put(owner, material); err != nil {
			fatal("store key: %v", err)
		}
		log.Wallet.Info().Str("owner", owner).Msg("Master key stored")
	}
	printJSON(w)
}

// ── derive ──────────────────────────────────────────────────────────────

func cmdDerive(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	path := fs.String("path", "", "Derive only the address at this BIP-44 path, e.g. m/44'/111111'/0'/0/5")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 || (*path == "" && len(rest) < 2) {
		fatal("Usage: kaswallet derive [--path <path>] <owner> [<count> [start]]")
	}
	var count, start uint32
	if *path == "" {
		var err error
		count, err = parseIndex(rest[1])
		if err != nil || count == 0 {
			fatal("invalid count %q", rest[1])
		}
		if len(rest) > 2 {
			if start, err = parseIndex(rest[2]); err != nil {
				fatal("invalid start %q", rest[2])
			}
		}
	}

	store, closeStore := openStore(cfg, false)
	defer closeStore()
	material, err := store.GetPrivateKeyForUser(rest[0])
	if err != nil {
		fatal("load key: %v", err)
	}
	defer material.Zero()
	if material.Kind != credstore.KindExtended {
		fatal("owner %q holds a %s key; derive needs an extended key", rest[0], material.Kind)
	}

	master, err := wallet.ParseExtendedKey(string(material.Raw))
	if err != nil {
		fatal("parse key: %v", err)
	}
	defer master.Zero()

	if *path != "" {
		addr, err := wallet.DeriveAddressAtPath(master, cfg.Network, *path)
		if err != nil {
			fatal("derive %s: %v", *path, err)
		}
		printJSON(addr)
		return
	}

	set, err := wallet.DeriveAddresses(master, cfg.Network, cfg.Wallet.Account, start, count,
		wallet.NewDerivationCache(2*int(count)))
	if err != nil {
		fatal("derive addresses: %v", err)
	}
	printJSON(set)
}

// ── credentials ─────────────────────────────────────────────────────────

func cmdImportKey(cfg *config.Config, args []string) {
	if len(args) != 2 {
		fatal("Usage: kaswallet import-key <owner> <raw|extended>")
	}
	kind, err := credstore.ParseKeyKind(args[1])
	if err != nil {
		fatal("%v", err)
	}

	secret, err := readPassword("Enter key: ")
	if err != nil {
		fatal("read key: %v", err)
	}
	material, err := keyMaterial(kind, strings.TrimSpace(string(secret)))
	clear(secret)
	if err != nil {
		fatal("%v", err)
	}
	defer material.Zero()

	store, closeStore := openStore(cfg, true)
	defer closeStore()
	if err := store.Put(args[0], material); err != nil {
		fatal("store key: %v", err)
	}
	fmt.Printf("Stored %s key for %s\n", kind, args[0])
}

// keyMaterial checks an imported secret and wraps it for the store.
func keyMaterial(kind credstore.KeyKind, secret string) (*credstore.KeyMaterial, error) {
	switch kind {
	case credstore.KindRaw:
		raw, err := hex.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("raw key must be hex: %w", err)
		}
		key, err := crypto.PrivateKeyFromBytes(raw)
		if err != nil {
			clear(raw)
			return nil, err
		}
		key.Zero()
		return &credstore.KeyMaterial{Kind: kind, Raw: raw}, nil
	case credstore.KindExtended:
		k, err := wallet.ParseExtendedKey(secret)
		if err != nil {
			return nil, err
		}
		defer k.Zero()
		if !k.IsPrivate() {
			return nil, fmt.Errorf("extended key is public; a private key is required")
		}
		return &credstore.KeyMaterial{Kind: kind, Raw: []byte(secret)}, nil
	default:
		return nil, fmt.Errorf("%w: %d", credstore.ErrInvalidKind, kind)
	}
}

func cmdKeys(cfg *config.Config) {
	store, closeStore := openStore(cfg, false)
	defer closeStore()
	infos, err := store.List()
	if err != nil {
		fatal("list keys: %v", err)
	}
	if len(infos) == 0 {
		fmt.Println("No keys stored.")
		return
	}
	for _, info := range infos {
		fmt.Printf("  %-24s %-9s %s\n", info.Owner, info.Kind, info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

// ── node commands ───────────────────────────────────────────────────────

func cmdBalance(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) == 0 {
		fatal("Usage: kaswallet balance <address>...")
	}
	addrs, err := parseAddresses(args, cfg.Network)
	if err != nil {
		fatal("%v", err)
	}

	client := connect(ctx, cfg)
	defer client.Close()

	balances, err := client.GetBalancesByAddresses(ctx, addrs)
	if err != nil {
		fatal("get balances: %v", err)
	}
	var total uint64
	for _, b := range balances {
		fmt.Printf("  %s  %s KAS\n", b.Address, types.SompiToKaspa(b.Balance))
		total += b.Balance
	}
	if len(balances) > 1 {
		fmt.Printf("Total: %s KAS\n", types.SompiToKaspa(total))
	}
}

func cmdSend(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	tf := addTransferFlags(fs)
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 3 || len(rest)%2 != 1 {
		fatal("Usage: kaswallet send [flags] <owner> <address> <KAS> [<address> <KAS>...]")
	}
	outputs, err := parseOutputs(rest[1:], cfg.Network)
	if err != nil {
		fatal("%v", err)
	}
	req := tf.request(cfg, rest[0], outputs, nil)
	transferAndReport(ctx, cfg, req)
}

func cmdSendToken(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("send-token", flag.ExitOnError)
	tf := addTransferFlags(fs)
	protocol := fs.String("protocol", transfer.DefaultTokenProtocol, "Token protocol tag")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 4 {
		fatal("Usage: kaswallet send-token [flags] <owner> <address> <symbol> <amount>")
	}
	to, err := types.ParseAddress(rest[1], cfg.Network)
	if err != nil {
		fatal("%v", err)
	}
	amount, err := strconv.ParseUint(rest[3], 10, 64)
	if err != nil {
		fatal("invalid token amount %q", rest[3])
	}
	payload, err := transfer.TokenTransferPayload(*protocol, rest[2], amount)
	if err != nil {
		fatal("%v", err)
	}
	outputs := []tx.PaymentOutput{{Address: to, Amount: 0}}
	req := tf.request(cfg, rest[0], outputs, payload)
	transferAndReport(ctx, cfg, req)
}

// transferFlags are the options shared by send and send-token.
type transferFlags struct {
	from   *string
	change *string
	fee    *uint64
	rate   *uint64
}

func addTransferFlags(fs *flag.FlagSet) *transferFlags {
	return &transferFlags{
		from:   fs.String("from", "", "Comma-separated addresses to spend from (default: all)"),
		change: fs.String("change", "", "Change address (default: the key's change address)"),
		fee:    fs.Uint64("fee", 0, "Fixed fee per transaction in sompi for this send"),
		rate:   fs.Uint64("fee-rate", 0, "Fee rate in sompi per 1000 grams for this send"),
	}
}

func (f *transferFlags) request(cfg *config.Config, owner string, outputs []tx.PaymentOutput, payload []byte) transfer.TransferRequest {
	req := transfer.TransferRequest{Owner: owner, Outputs: outputs, Payload: payload}
	if *f.from != "" {
		from, err := parseAddresses(strings.Split(*f.from, ","), cfg.Network)
		if err != nil {
			fatal("--from: %v", err)
		}
		req.From = from
	}
	if *f.change != "" {
		change, err := types.ParseAddress(*f.change, cfg.Network)
		if err != nil {
			fatal("--change: %v", err)
		}
		req.Change = change
	}
	switch {
	case *f.fee != 0 && *f.rate != 0:
		fatal("--fee and --fee-rate are mutually exclusive")
	case *f.fee != 0:
		p := tx.FixedFee(*f.fee)
		req.FeePolicy = &p
	case *f.rate != 0:
		p := tx.RateFee(*f.rate)
		req.FeePolicy = &p
	}
	return req
}

// transferAndReport runs a transfer and prints every transaction's outcome,
// including the ones accepted before a failure.
func transferAndReport(ctx context.Context, cfg *config.Config, req transfer.TransferRequest) {
	ordering, err := cfg.Ordering()
	if err != nil {
		fatal("%v (set utxo.ordering or pass --ordering)", err)
	}
	params, err := cfg.BuilderParams()
	if err != nil {
		fatal("%v", err)
	}

	store, closeStore := openStore(cfg, false)
	defer closeStore()
	client := connect(ctx, cfg)
	defer client.Close()

	svc, err := transfer.NewService(transfer.Config{
		Network:          cfg.Network,
		Builder:          params,
		Ordering:         ordering,
		CoinbaseMaturity: transfer.DefaultCoinbaseMaturity,
		Account:          cfg.Wallet.Account,
		ScanDepth:        cfg.Wallet.ScanDepth,
		ECDSA:            cfg.Wallet.ECDSA,
	}, client, store)
	if err != nil {
		fatal("%v", err)
	}

	results, err := svc.BuildAndSubmitTransfer(ctx, req)
	if len(results) > 0 {
		printJSON(results)
	}
	if err != nil {
		var rejected *submit.SubmissionRejectedError
		if errors.As(err, &rejected) {
			fatal("transaction %d (%s) rejected: %s", rejected.Index, rejected.TxID, rejected.Reason)
		}
		fatal("%v", err)
	}
}

// ── plumbing ────────────────────────────────────────────────────────────

// openStore opens the credential store, prompting for its password. When
// confirm is set the password is asked twice, as for a new key.
func openStore(cfg *config.Config, confirm bool) (*credstore.Store, func()) {
	password, err := storePassword(confirm)
	if err != nil {
		fatal("%v", err)
	}
	defer clear(password)

	db, err := storage.NewBadger(cfg.CredentialsDir())
	if err != nil {
		fatal("open credential store: %v", err)
	}
	store, err := credstore.New(db, password, credstore.DefaultParams())
	if err != nil {
		db.Close()
		fatal("open credential store: %v", err)
	}
	return store, func() {
		store.Close()
		db.Close()
	}
}

func storePassword(confirm bool) ([]byte, error) {
	if p := os.Getenv(passwordEnv); p != "" {
		return []byte(p), nil
	}
	password, err := readPassword("Credential store password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if !confirm {
		return password, nil
	}
	again, err := readPassword("Confirm password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	defer clear(again)
	if string(password) != string(again) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return password, nil
}

func connect(ctx context.Context, cfg *config.Config) *rpcclient.Client {
	client, err := rpcclient.New(cfg.RPC.Resolvers, rpcclient.Options{
		Encoding: cfg.RPC.Encoding,
		Timeout:  cfg.RPC.Timeout,
	})
	if err != nil {
		fatal("%v", err)
	}
	if err := client.Connect(ctx); err != nil {
		fatal("%v", err)
	}
	return client
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode output: %v", err)
	}
	fmt.Println(string(data))
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
