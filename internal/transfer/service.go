// Package transfer ties key material, the node client, the batch builder,
// the signer and the submission coordinator into one send operation.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Klingon-tech/kaswallet/internal/credstore"
	"github.com/Klingon-tech/kaswallet/internal/log"
	"github.com/Klingon-tech/kaswallet/internal/rpcclient"
	"github.com/Klingon-tech/kaswallet/internal/submit"
	"github.com/Klingon-tech/kaswallet/internal/wallet"
	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// Request errors.
var (
	ErrNoOutputs     = errors.New("transfer has no outputs")
	ErrInvalidOutput = errors.New("invalid transfer output")
)

// DefaultCoinbaseMaturity is the number of DAA score units before a
// coinbase output can be spent.
const DefaultCoinbaseMaturity = 100

// NodeClient is the node API the service consumes.
type NodeClient interface {
	GetServerInfo(ctx context.Context) (*rpcclient.ServerInfo, error)
	GetUtxosByAddresses(ctx context.Context, network types.NetworkID, addrs []types.Address) ([]types.UtxoEntry, error)
	GetBalancesByAddresses(ctx context.Context, addrs []types.Address) ([]rpcclient.AddressBalance, error)
	SubmitTransaction(ctx context.Context, signed *tx.SignedTransaction) (types.Hash, error)
}

// CredentialStore returns decrypted key material for an owner.
type CredentialStore interface {
	GetPrivateKeyForUser(owner string) (*credstore.KeyMaterial, error)
}

// Config holds the service settings.
type Config struct {
	Network          types.NetworkID
	Builder          tx.Params
	Ordering         wallet.Ordering
	CoinbaseMaturity uint64
	// Account and ScanDepth select the HD keys loaded for extended key material.
	Account   uint32
	ScanDepth uint32
	// ECDSA makes raw keys sign as ECDSA instead of schnorr.
	ECDSA bool
}

// TransferRequest describes one send.
type TransferRequest struct {
	Owner string
	// From restricts spending to these addresses. Empty means every
	// address of the owner's keys.
	From    []types.Address
	Outputs []tx.PaymentOutput
	// FeePolicy overrides the configured policy when set.
	FeePolicy *tx.FeePolicy
	Payload   []byte
	// Change receives the remainder. Zero means the owner's default change address.
	Change types.Address
}

// Balance is the confirmed balance of an address.
type Balance struct {
	Address types.Address `json:"address"`
	Sompi   uint64        `json:"balance"`
}

// Service performs transfers.
type Service struct {
	cfg   Config
	node  NodeClient
	creds CredentialStore
	coord *submit.Coordinator
}

// NewService creates a service. creds may be nil for a balance-only service.
func NewService(cfg Config, node NodeClient, creds CredentialStore) (*Service, error) {
	if _, err := cfg.Network.Prefix(); err != nil {
		return nil, err
	}
	if cfg.Ordering == wallet.OrderUnspecified {
		return nil, wallet.ErrNoOrdering
	}
	if err := cfg.Builder.Limits.Validate(); err != nil {
		return nil, err
	}
	if cfg.ScanDepth == 0 {
		cfg.ScanDepth = 1
	}
	return &Service{cfg: cfg, node: node, creds: creds, coord: submit.NewCoordinator()}, nil
}

// BuildAndSubmitTransfer sends req. Request and funding errors are returned
// before anything is signed; the whole batch is built first. On submission
// failure the results are returned together with the error so accepted
// transaction ids are never lost.
func (s *Service) BuildAndSubmitTransfer(ctx context.Context, req TransferRequest) ([]submit.Result, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if s.creds == nil {
		return nil, fmt.Errorf("%w: no credential store", tx.ErrMissingSigningKey)
	}

	material, err := s.creds.GetPrivateKeyForUser(req.Owner)
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	ring, defaultChange, err := s.keyRing(material)
	material.Zero()
	if err != nil {
		return nil, err
	}
	defer ring.Zero()

	from := req.From
	if len(from) == 0 {
		from = ring.Addresses()
	}
	change := req.Change
	if change.IsZero() {
		change = defaultChange
	}

	info, err := s.checkNode(ctx)
	if err != nil {
		return nil, err
	}

	utxos, err := s.node.GetUtxosByAddresses(ctx, s.cfg.Network, from)
	if err != nil {
		return nil, fmt.Errorf("fetch utxos: %w", err)
	}

	params := s.cfg.Builder
	if req.FeePolicy != nil {
		params.Fee = *req.FeePolicy
	}
	builder, err := tx.NewBuilder(params)
	if err != nil {
		return nil, err
	}

	var target uint64
	for _, o := range req.Outputs {
		if target+o.Amount < target {
			return nil, fmt.Errorf("%w: output total overflows", ErrInvalidOutput)
		}
		target += o.Amount
	}
	selector := wallet.Selector{
		Ordering: s.cfg.Ordering,
		FeeEstimator: func(n int) (uint64, error) {
			return builder.EstimateFee(n, req.Outputs, len(req.Payload))
		},
		CoinbaseMaturity: s.cfg.CoinbaseMaturity,
		VirtualDaaScore:  info.VirtualDaaScore,
	}
	sel, err := selector.Select(utxos, target)
	if err != nil {
		return nil, err
	}

	done := log.Benchmark(log.Builder, "build_and_sign")
	batch, err := builder.Build(sel.Inputs, req.Outputs, req.Payload, change)
	if err != nil {
		return nil, err
	}
	if err := tx.VerifyBatch(batch); err != nil {
		done()
		return nil, fmt.Errorf("verify batch: %w", err)
	}
	var fees uint64
	for _, utx := range batch {
		fees += utx.Fee
	}
	log.Builder.Info().
		Int("inputs", len(sel.Inputs)).
		Int("transactions", len(batch)).
		Uint64("amount", target).
		Uint64("fees", fees).
		Msg("Built transfer")

	signed, err := tx.SignBatch(ctx, batch, ring)
	done()
	if err != nil {
		return nil, err
	}

	return s.coord.Submit(ctx, signed, s.node)
}

// Balances returns the confirmed balance of each address.
func (s *Service) Balances(ctx context.Context, addrs []types.Address) ([]Balance, error) {
	prefix, _ := s.cfg.Network.Prefix()
	for _, a := range addrs {
		if a.Prefix != prefix {
			return nil, fmt.Errorf("%w: %s is not a %s address", types.ErrUnsupportedNetwork, a, s.cfg.Network)
		}
	}
	res, err := s.node.GetBalancesByAddresses(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("fetch balances: %w", err)
	}
	out := make([]Balance, 0, len(res))
	for _, r := range res {
		addr, err := types.ParseAddress(r.Address, s.cfg.Network)
		if err != nil {
			return nil, fmt.Errorf("node returned bad address: %w", err)
		}
		out = append(out, Balance{Address: addr, Sompi: r.Balance})
	}
	return out, nil
}

// validateRequest checks everything that can be checked without I/O.
func (s *Service) validateRequest(req TransferRequest) error {
	if req.Owner == "" {
		return credstore.ErrInvalidOwner
	}
	if len(req.Outputs) == 0 {
		return ErrNoOutputs
	}
	prefix, _ := s.cfg.Network.Prefix()
	check := func(what string, a types.Address) error {
		if a.Prefix != prefix {
			return fmt.Errorf("%w: %s %s is not a %s address", types.ErrUnsupportedNetwork, what, a, s.cfg.Network)
		}
		return nil
	}
	for i, o := range req.Outputs {
		if err := check(fmt.Sprintf("output %d", i), o.Address); err != nil {
			return err
		}
		if o.Amount == 0 && len(req.Payload) == 0 {
			return fmt.Errorf("%w: output %d has zero amount and no payload", ErrInvalidOutput, i)
		}
	}
	for _, a := range req.From {
		if err := check("source", a); err != nil {
			return err
		}
	}
	if !req.Change.IsZero() {
		if err := check("change", req.Change); err != nil {
			return err
		}
	}
	if req.FeePolicy != nil && req.FeePolicy.Kind == tx.FeeRateKind && req.FeePolicy.Rate == 0 {
		return fmt.Errorf("%w: zero fee rate", tx.ErrFeeTooLow)
	}
	return nil
}

// checkNode aborts unless the node is synced and on the configured network.
func (s *Service) checkNode(ctx context.Context) (*rpcclient.ServerInfo, error) {
	info, err := s.node.GetServerInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("server info: %w", err)
	}
	if !info.IsSynced {
		return nil, fmt.Errorf("%w: node is not synced", submit.ErrOperationAborted)
	}
	network, err := types.ParseNetworkID(strings.TrimPrefix(info.NetworkID, "kaspa-"))
	if err != nil || network != s.cfg.Network {
		return nil, fmt.Errorf("%w: node is on %q, wallet is on %s", submit.ErrOperationAborted, info.NetworkID, s.cfg.Network)
	}
	return info, nil
}

// keyRing loads material into a key ring and picks the default change address.
func (s *Service) keyRing(m *credstore.KeyMaterial) (*wallet.KeyRing, types.Address, error) {
	ring := wallet.NewKeyRing()
	switch m.Kind {
	case credstore.KindRaw:
		key, err := crypto.PrivateKeyFromBytes(m.Raw)
		if err != nil {
			return nil, types.Address{}, fmt.Errorf("load raw key: %w", err)
		}
		addr, err := ring.Add(key, s.cfg.Network, s.cfg.ECDSA)
		if err != nil {
			key.Zero()
			return nil, types.Address{}, err
		}
		return ring, addr, nil

	case credstore.KindExtended:
		master, err := wallet.ParseExtendedKey(string(m.Raw))
		if err != nil {
			return nil, types.Address{}, fmt.Errorf("load extended key: %w", err)
		}
		defer master.Zero()
		if err := ring.AddAccount(master, s.cfg.Network, s.cfg.Account, s.cfg.ScanDepth); err != nil {
			ring.Zero()
			return nil, types.Address{}, err
		}
		changeKey, err := master.DeriveAddressKey(s.cfg.Account, wallet.ChainChange, 0)
		if err != nil {
			ring.Zero()
			return nil, types.Address{}, err
		}
		defer changeKey.Zero()
		addr, err := changeKey.Address(s.cfg.Network, types.AddressPubKey)
		if err != nil {
			ring.Zero()
			return nil, types.Address{}, err
		}
		return ring, addr, nil

	default:
		return nil, types.Address{}, fmt.Errorf("%w: %s", credstore.ErrInvalidKind, m.Kind)
	}
}
