package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Klingon-tech/kaswallet/internal/credstore"
	klog "github.com/Klingon-tech/kaswallet/internal/log"
	"github.com/Klingon-tech/kaswallet/internal/rpcclient"
	"github.com/Klingon-tech/kaswallet/internal/storage"
	"github.com/Klingon-tech/kaswallet/internal/submit"
	"github.com/Klingon-tech/kaswallet/internal/wallet"
	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// fakeNode is an in-memory NodeClient.
type fakeNode struct {
	mu        sync.Mutex
	info      rpcclient.ServerInfo
	utxos     []types.UtxoEntry
	balances  map[string]uint64
	rejectAt  int
	submitted []*tx.Transaction
	calls     int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		info:     rpcclient.ServerInfo{IsSynced: true, NetworkID: "testnet-10", VirtualDaaScore: 10_000},
		balances: make(map[string]uint64),
		rejectAt: -1,
	}
}

func (n *fakeNode) GetServerInfo(context.Context) (*rpcclient.ServerInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	info := n.info
	return &info, nil
}

func (n *fakeNode) GetUtxosByAddresses(_ context.Context, _ types.NetworkID, addrs []types.Address) ([]types.UtxoEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	var out []types.UtxoEntry
	for _, u := range n.utxos {
		for _, a := range addrs {
			if u.Address.Equal(a) {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (n *fakeNode) GetBalancesByAddresses(_ context.Context, addrs []types.Address) ([]rpcclient.AddressBalance, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	out := make([]rpcclient.AddressBalance, len(addrs))
	for i, a := range addrs {
		out[i] = rpcclient.AddressBalance{Address: a.String(), Balance: n.balances[a.String()]}
	}
	return out, nil
}

func (n *fakeNode) SubmitTransaction(_ context.Context, s *tx.SignedTransaction) (types.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if len(n.submitted) == n.rejectAt {
		return types.Hash{}, &rpcclient.RPCError{Method: rpcclient.MethodSubmitTransaction, Code: -32000, Message: "rejected by mempool"}
	}
	n.submitted = append(n.submitted, s.Transaction())
	return s.ID(), nil
}

// fakeCreds is a map-backed CredentialStore.
type fakeCreds map[string]credstore.KeyMaterial

func (c fakeCreds) GetPrivateKeyForUser(owner string) (*credstore.KeyMaterial, error) {
	m, ok := c[owner]
	if !ok {
		return nil, credstore.ErrNotFound
	}
	raw := append([]byte(nil), m.Raw...)
	return &credstore.KeyMaterial{Kind: m.Kind, Raw: raw}, nil
}

func testConfig() Config {
	return Config{
		Network:          types.Testnet10,
		Builder:          tx.Params{Fee: tx.RateFee(tx.DefaultMinRelayFeeRate), Limits: tx.DefaultLimits()},
		Ordering:         wallet.OrderDescending,
		CoinbaseMaturity: DefaultCoinbaseMaturity,
		ScanDepth:        2,
	}
}

// rawAccount returns a key registered as owner "alice" and its address.
func rawAccount(t *testing.T) (fakeCreds, types.Address, types.ScriptPublicKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr, err := types.AddressFromPublicKey(key.PublicKey(), types.Testnet10, types.AddressPubKey)
	if err != nil {
		t.Fatalf("AddressFromPublicKey: %v", err)
	}
	spk, _ := types.PayToAddrScript(addr)
	return fakeCreds{"alice": {Kind: credstore.KindRaw, Raw: key.Serialize()}}, addr, spk
}

func fund(n *fakeNode, addr types.Address, spk types.ScriptPublicKey, amounts ...uint64) {
	for i, a := range amounts {
		n.utxos = append(n.utxos, types.UtxoEntry{
			Address:         addr,
			Outpoint:        types.Outpoint{TxID: types.Hash{0xcd, byte(len(n.utxos)), byte(i)}, Index: uint32(i)},
			Amount:          a,
			ScriptPublicKey: spk,
			BlockDaaScore:   1,
		})
	}
}

func destination(t *testing.T) types.Address {
	t.Helper()
	key, _ := crypto.GenerateKey()
	addr, err := types.AddressFromPublicKey(key.PublicKey(), types.Testnet10, types.AddressPubKey)
	if err != nil {
		t.Fatalf("AddressFromPublicKey: %v", err)
	}
	return addr
}

func newTestService(t *testing.T, node NodeClient, creds CredentialStore) *Service {
	t.Helper()
	klog.Init("error", false, "")
	s, err := NewService(testConfig(), node, creds)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestTransfer_Simple(t *testing.T) {
	creds, addr, spk := rawAccount(t)
	node := newFakeNode()
	fund(node, addr, spk, 500_000_000, 300_000_000)
	svc := newTestService(t, node, creds)

	to := destination(t)
	results, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{
		Owner:   "alice",
		Outputs: []tx.PaymentOutput{{Address: to, Amount: 100_000_000}},
	})
	if err != nil {
		t.Fatalf("BuildAndSubmitTransfer() error: %v", err)
	}
	if len(results) != 1 || results[0].Status != submit.StatusAccepted {
		t.Fatalf("unexpected results: %+v", results)
	}
	sent := node.submitted[0]
	// Descending order picks the 5 KAS entry alone.
	if len(sent.Inputs) != 1 || sent.Inputs[0].PrevOut != node.utxos[0].Outpoint {
		t.Errorf("unexpected inputs: %+v", sent.Inputs)
	}
	toSPK, _ := types.PayToAddrScript(to)
	if !sent.Outputs[0].ScriptPublicKey.Equal(toSPK) || sent.Outputs[0].Value != 100_000_000 {
		t.Errorf("unexpected payment output: %+v", sent.Outputs[0])
	}
	if len(sent.Outputs) != 2 || !sent.Outputs[1].ScriptPublicKey.Equal(spk) {
		t.Error("remainder should go back to the sending address")
	}
	for i, in := range sent.Inputs {
		if len(in.SignatureScript) != 66 {
			t.Errorf("input %d not signed", i)
		}
	}
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	creds, addr, spk := rawAccount(t)
	node := newFakeNode()
	fund(node, addr, spk, 1000)
	svc := newTestService(t, node, creds)

	_, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{
		Owner:   "alice",
		Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 2000}},
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	if len(node.submitted) != 0 {
		t.Error("nothing should be submitted")
	}
}

func TestTransfer_DuplicateUTXOCaughtBeforeSigning(t *testing.T) {
	creds, addr, spk := rawAccount(t)
	node := newFakeNode()
	fund(node, addr, spk, 60_000_000)
	node.utxos = append(node.utxos, node.utxos[0])
	svc := newTestService(t, node, creds)

	_, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{
		Owner:   "alice",
		Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 100_000_000}},
	})
	if !errors.Is(err, tx.ErrDuplicateInput) {
		t.Fatalf("error = %v, want ErrDuplicateInput", err)
	}
	if len(node.submitted) != 0 {
		t.Error("nothing should be submitted")
	}
}

func TestTransfer_NodeNotReady(t *testing.T) {
	tests := []struct {
		name string
		info rpcclient.ServerInfo
	}{
		{"not synced", rpcclient.ServerInfo{IsSynced: false, NetworkID: "testnet-10"}},
		{"wrong network", rpcclient.ServerInfo{IsSynced: true, NetworkID: "mainnet"}},
		{"unknown network", rpcclient.ServerInfo{IsSynced: true, NetworkID: "foonet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, addr, spk := rawAccount(t)
			node := newFakeNode()
			node.info = tt.info
			fund(node, addr, spk, 500_000_000)
			svc := newTestService(t, node, creds)

			_, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{
				Owner:   "alice",
				Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 1_000_000}},
			})
			if !errors.Is(err, submit.ErrOperationAborted) {
				t.Fatalf("error = %v, want ErrOperationAborted", err)
			}
			if len(node.submitted) != 0 {
				t.Error("nothing should be submitted")
			}
		})
	}
}

func TestTransfer_ValidationBeforeIO(t *testing.T) {
	creds, _, _ := rawAccount(t)
	mainnetKey, _ := crypto.GenerateKey()
	mainnetAddr, _ := types.AddressFromPublicKey(mainnetKey.PublicKey(), types.Mainnet, types.AddressPubKey)
	zeroRate := tx.RateFee(0)

	tests := []struct {
		name string
		req  TransferRequest
		want error
	}{
		{"no owner", TransferRequest{Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 1}}}, credstore.ErrInvalidOwner},
		{"no outputs", TransferRequest{Owner: "alice"}, ErrNoOutputs},
		{"wrong network", TransferRequest{Owner: "alice", Outputs: []tx.PaymentOutput{{Address: mainnetAddr, Amount: 1_000_000}}}, types.ErrUnsupportedNetwork},
		{"zero without payload", TransferRequest{Owner: "alice", Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 0}}}, ErrInvalidOutput},
		{"zero fee rate", TransferRequest{Owner: "alice", Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 1_000_000}}, FeePolicy: &zeroRate}, tx.ErrFeeTooLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := newFakeNode()
			svc := newTestService(t, node, creds)
			_, err := svc.BuildAndSubmitTransfer(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if node.calls != 0 {
				t.Errorf("node saw %d calls, want 0", node.calls)
			}
		})
	}
}

func TestTransfer_UnknownOwner(t *testing.T) {
	node := newFakeNode()
	svc := newTestService(t, node, fakeCreds{})

	_, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{
		Owner:   "bob",
		Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 1_000_000}},
	})
	if !errors.Is(err, credstore.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestTransfer_PartialRejection(t *testing.T) {
	creds, addr, spk := rawAccount(t)
	node := newFakeNode()
	node.rejectAt = 1
	fund(node, addr, spk, 1_000_000_000)

	cfg := testConfig()
	cfg.Builder.Limits.MaxOutputs = 2
	klog.Init("error", false, "")
	svc, err := NewService(cfg, node, creds)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	outs := []tx.PaymentOutput{
		{Address: destination(t), Amount: 10_000_000},
		{Address: destination(t), Amount: 20_000_000},
		{Address: destination(t), Amount: 30_000_000},
	}
	results, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{Owner: "alice", Outputs: outs})
	if !errors.Is(err, submit.ErrSubmissionRejected) {
		t.Fatalf("error = %v, want ErrSubmissionRejected", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Status != submit.StatusAccepted || results[1].Status != submit.StatusRejected {
		t.Errorf("statuses = %s, %s", results[0].Status, results[1].Status)
	}
	if results[0].TxID.IsZero() {
		t.Error("accepted id must be reported")
	}
}

func TestTransfer_TokenPayload(t *testing.T) {
	creds, addr, spk := rawAccount(t)
	node := newFakeNode()
	fund(node, addr, spk, 500_000_000)
	svc := newTestService(t, node, creds)

	payload, err := TokenTransferPayload("", "kasper", 1_500_000_000)
	if err != nil {
		t.Fatalf("TokenTransferPayload: %v", err)
	}
	to := destination(t)
	results, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{
		Owner:   "alice",
		Outputs: []tx.PaymentOutput{{Address: to, Amount: 0}},
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("BuildAndSubmitTransfer() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	sent := node.submitted[0]
	if string(sent.Payload) != "krc20|KASPER|1500000000" {
		t.Errorf("payload = %q", sent.Payload)
	}
	if sent.Outputs[0].Value != 0 {
		t.Errorf("token output value = %d, want 0", sent.Outputs[0].Value)
	}
}

func TestTransfer_ExtendedKeyFromStore(t *testing.T) {
	created, err := wallet.CreateWallet(types.Testnet10)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	store, err := credstore.New(storage.NewMemory(), []byte("pw"), credstore.EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("credstore.New: %v", err)
	}
	if err := store.Put("carol", &credstore.KeyMaterial{Kind: credstore.KindExtended, Raw: []byte(created.MasterKey)}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	node := newFakeNode()
	spk, _ := types.PayToAddrScript(created.ReceiveAddress)
	fund(node, created.ReceiveAddress, spk, 200_000_000)
	svc := newTestService(t, node, store)

	results, err := svc.BuildAndSubmitTransfer(context.Background(), TransferRequest{
		Owner:   "carol",
		Outputs: []tx.PaymentOutput{{Address: destination(t), Amount: 50_000_000}},
	})
	if err != nil {
		t.Fatalf("BuildAndSubmitTransfer() error: %v", err)
	}
	if len(results) != 1 || results[0].Status != submit.StatusAccepted {
		t.Fatalf("unexpected results: %+v", results)
	}
	changeSPK, _ := types.PayToAddrScript(created.ChangeAddress)
	sent := node.submitted[0]
	if len(sent.Outputs) != 2 || !sent.Outputs[1].ScriptPublicKey.Equal(changeSPK) {
		t.Error("remainder should go to the first change address")
	}
}

func TestBalances(t *testing.T) {
	node := newFakeNode()
	a, b := destination(t), destination(t)
	node.balances[a.String()] = 42
	svc := newTestService(t, node, nil)

	got, err := svc.Balances(context.Background(), []types.Address{a, b})
	if err != nil {
		t.Fatalf("Balances() error: %v", err)
	}
	if len(got) != 2 || got[0].Sompi != 42 || got[1].Sompi != 0 || !got[0].Address.Equal(a) {
		t.Errorf("unexpected balances: %+v", got)
	}

	mainnetKey, _ := crypto.GenerateKey()
	m, _ := types.AddressFromPublicKey(mainnetKey.PublicKey(), types.Mainnet, types.AddressPubKey)
	if _, err := svc.Balances(context.Background(), []types.Address{m}); !errors.Is(err, types.ErrUnsupportedNetwork) {
		t.Errorf("mainnet error = %v, want ErrUnsupportedNetwork", err)
	}
}

func TestNewService_RequiresOrdering(t *testing.T) {
	cfg := testConfig()
	cfg.Ordering = wallet.OrderUnspecified
	if _, err := NewService(cfg, newFakeNode(), nil); !errors.Is(err, wallet.ErrNoOrdering) {
		t.Errorf("error = %v, want ErrNoOrdering", err)
	}
}
