package tx

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// DefaultSequence is the sequence number set on built inputs.
const DefaultSequence = 0

// Limits bound the size of a single built transaction.
type Limits struct {
	// MaxInputs is the most inputs per transaction. Must be at least 2
	// so that consolidation makes progress.
	MaxInputs int
	// MaxOutputs is the most payment outputs per transaction. The change
	// output is not counted.
	MaxOutputs int
	// MaxPayloadSize is the most payload bytes per transaction. Larger
	// payloads are split in order across transactions.
	MaxPayloadSize int
	// MaxMass is the largest mass a built transaction may have.
	MaxMass uint64
}

// DefaultLimits returns limits that keep standard P2PK transactions under
// MaxStandardMass.
func DefaultLimits() Limits {
	return Limits{
		MaxInputs:      80,
		MaxOutputs:     20,
		MaxPayloadSize: 16 * 1024,
		MaxMass:        MaxStandardMass,
	}
}

// Validate checks that the limits allow a batch to make progress.
func (l Limits) Validate() error {
	if l.MaxInputs < 2 {
		return fmt.Errorf("%w: max inputs %d, need at least 2", ErrInvalidLimits, l.MaxInputs)
	}
	if l.MaxOutputs < 1 {
		return fmt.Errorf("%w: max outputs %d", ErrInvalidLimits, l.MaxOutputs)
	}
	if l.MaxPayloadSize < 1 {
		return fmt.Errorf("%w: max payload size %d", ErrInvalidLimits, l.MaxPayloadSize)
	}
	if l.MaxMass == 0 {
		return fmt.Errorf("%w: max mass is zero", ErrInvalidLimits)
	}
	return nil
}

// Params configure a Builder.
type Params struct {
	Fee    FeePolicy
	Limits Limits
	// MinRelayFeeRate is the node's minimum fee in sompi per 1000 grams.
	// Zero means DefaultMinRelayFeeRate.
	MinRelayFeeRate uint64
}

// PaymentOutput is a requested payment.
type PaymentOutput struct {
	Address types.Address
	Amount  uint64
}

// UnsignedTransaction is a built transaction awaiting signatures.
type UnsignedTransaction struct {
	Tx *Transaction
	// Entries holds the UTXO spent by each input, in input order.
	Entries []types.UtxoEntry
	// Fee is total input value minus total output value.
	Fee  uint64
	Mass uint64
	// ChangeIndex is the index of the change output, or -1.
	ChangeIndex int

	id          types.Hash
	fingerprint types.Hash
	signed      atomic.Bool
}

// ID returns the transaction ID computed when the transaction was built.
func (utx *UnsignedTransaction) ID() types.Hash {
	return utx.id
}

// Builder turns funded inputs and requested payments into a sequence of
// unsigned transactions that respect the configured limits.
type Builder struct {
	params Params
}

// NewBuilder creates a builder.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Limits.Validate(); err != nil {
		return nil, err
	}
	if p.MinRelayFeeRate == 0 {
		p.MinRelayFeeRate = DefaultMinRelayFeeRate
	}
	return &Builder{params: p}, nil
}

// Params returns the builder's parameters.
func (b *Builder) Params() Params {
	return b.params
}

// Transactions returns the lazy sequence of transactions that spend
// inputs, pay outputs and carry payload, sending any remainder to change.
//
// While more inputs remain than one transaction can hold, a consolidation
// transaction folds MaxInputs of them into a single change output. The
// remaining inputs then fund the payments, MaxOutputs and one payload
// chunk per transaction. Each transaction but the last sends its whole
// remainder to change, which the next transaction spends. The final
// remainder goes to change on the last transaction, or to the fee if it
// is dust.
//
// Each iteration rebuilds the sequence from scratch and yields identical
// transactions. Iteration stops after the first error.
func (b *Builder) Transactions(inputs []types.UtxoEntry, outputs []PaymentOutput, payload []byte, change types.Address) iter.Seq2[*UnsignedTransaction, error] {
	return func(yield func(*UnsignedTransaction, error) bool) {
		changeSPK, err := types.PayToAddrScript(change)
		if err != nil {
			yield(nil, fmt.Errorf("change address: %w", err))
			return
		}
		payments := make([]Output, len(outputs))
		for i, o := range outputs {
			spk, err := types.PayToAddrScript(o.Address)
			if err != nil {
				yield(nil, fmt.Errorf("output %d: %w", i, err))
				return
			}
			payments[i] = Output{Value: o.Amount, ScriptPublicKey: spk}
		}
		err = b.plan(inputs, payments, payload, change, changeSPK, func(utx *UnsignedTransaction) bool {
			return yield(utx, nil)
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

// Build drains Transactions into a slice.
func (b *Builder) Build(inputs []types.UtxoEntry, outputs []PaymentOutput, payload []byte, change types.Address) ([]*UnsignedTransaction, error) {
	var batch []*UnsignedTransaction
	for utx, err := range b.Transactions(inputs, outputs, payload, change) {
		if err != nil {
			return nil, err
		}
		batch = append(batch, utx)
	}
	return batch, nil
}

// EstimateFee returns the total fee the configured policy charges for a
// batch spending numInputs inputs to pay outputs and carry a payload of
// payloadLen bytes, assuming a remainder goes to a P2PK change output.
func (b *Builder) EstimateFee(numInputs int, outputs []PaymentOutput, payloadLen int) (uint64, error) {
	if numInputs <= 0 {
		return 0, ErrNoInputs
	}
	const syntheticAmount = 1 << 40
	entries := make([]types.UtxoEntry, numInputs)
	for i := range entries {
		entries[i] = types.UtxoEntry{
			Outpoint: types.Outpoint{TxID: types.Hash{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24), 0xff}, Index: uint32(i)},
			Amount:   syntheticAmount,
		}
	}
	changeSPK := types.ScriptPublicKey{Script: make([]byte, types.PubKeySize+2)}
	payments := make([]Output, len(outputs))
	for i, o := range outputs {
		spk, err := types.PayToAddrScript(o.Address)
		if err != nil {
			return 0, fmt.Errorf("output %d: %w", i, err)
		}
		payments[i] = Output{ScriptPublicKey: spk}
	}
	var total uint64
	err := b.plan(entries, payments, make([]byte, payloadLen), types.Address{}, changeSPK, func(utx *UnsignedTransaction) bool {
		total += utx.Fee
		return true
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// plan builds the batch, handing each transaction to emit. It stops
// without error when emit returns false.
func (b *Builder) plan(inputs []types.UtxoEntry, payments []Output, payload []byte, change types.Address, changeSPK types.ScriptPublicKey, emit func(*UnsignedTransaction) bool) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInsufficientFunds)
	}
	totalIn, ok := types.TotalAmount(inputs)
	if !ok {
		return fmt.Errorf("input values overflow")
	}
	var totalOut uint64
	for _, p := range payments {
		if totalOut+p.Value < totalOut {
			return ErrOutputOverflow
		}
		totalOut += p.Value
	}
	if totalIn < totalOut {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalIn, totalOut)
	}

	lim := b.params.Limits
	queue := append([]types.UtxoEntry(nil), inputs...)

	for len(queue) > lim.MaxInputs {
		utx, err := b.buildTx(queue[:lim.MaxInputs], nil, nil, change, changeSPK, false)
		if err != nil {
			return fmt.Errorf("consolidation: %w", err)
		}
		queue = append(queue[lim.MaxInputs:], changeEntry(utx, change, changeSPK))
		if !emit(utx) {
			return nil
		}
	}

	var chunks [][]byte
	for off := 0; off < len(payload); off += lim.MaxPayloadSize {
		end := min(off+lim.MaxPayloadSize, len(payload))
		chunks = append(chunks, payload[off:end])
	}
	numTx := max((len(payments)+lim.MaxOutputs-1)/lim.MaxOutputs, len(chunks), 1)

	for k := range numTx {
		start := min(k*lim.MaxOutputs, len(payments))
		end := min(start+lim.MaxOutputs, len(payments))
		var chunk []byte
		if k < len(chunks) {
			chunk = chunks[k]
		}
		last := k == numTx-1
		utx, err := b.buildTx(queue, payments[start:end], chunk, change, changeSPK, last)
		if err != nil {
			return fmt.Errorf("tx %d: %w", k, err)
		}
		if !emit(utx) {
			return nil
		}
		if !last {
			queue = []types.UtxoEntry{changeEntry(utx, change, changeSPK)}
		}
	}
	return nil
}

// buildTx assembles one transaction with a change output after the
// payments. The change output is dropped from the final transaction if it
// would be dust and other outputs remain.
func (b *Builder) buildTx(entries []types.UtxoEntry, payments []Output, payload []byte, change types.Address, changeSPK types.ScriptPublicKey, final bool) (*UnsignedTransaction, error) {
	lim := b.params.Limits
	if len(payload) > lim.MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(payload), lim.MaxPayloadSize)
	}

	t := &Transaction{Version: TxVersion}
	if len(payload) > 0 {
		t.Payload = append([]byte(nil), payload...)
	}
	t.Inputs = make([]Input, len(entries))
	for i, e := range entries {
		t.Inputs[i] = Input{PrevOut: e.Outpoint, Sequence: DefaultSequence, SigOpCount: 1}
	}
	t.Outputs = make([]Output, 0, len(payments)+1)
	t.Outputs = append(t.Outputs, payments...)
	t.Outputs = append(t.Outputs, Output{ScriptPublicKey: changeSPK})
	changeIdx := len(payments)

	mass := t.Mass()
	if mass > lim.MaxMass {
		return nil, fmt.Errorf("%w: %d, max %d", ErrMassTooHigh, mass, lim.MaxMass)
	}
	fee := b.params.Fee.Fee(mass)
	if minFee := MinimumFee(mass, b.params.MinRelayFeeRate); fee < minFee {
		return nil, fmt.Errorf("%w: %d, minimum %d for mass %d", ErrFeeTooLow, fee, minFee, mass)
	}

	in, ok := types.TotalAmount(entries)
	if !ok {
		return nil, fmt.Errorf("input values overflow")
	}
	var out uint64
	for _, p := range payments {
		out += p.Value
	}
	if in < out || in-out < fee {
		return nil, fmt.Errorf("%w: have %d, need %d plus fee %d", ErrInsufficientFunds, in, out, fee)
	}
	remainder := in - out - fee
	t.Outputs[changeIdx].Value = remainder

	switch {
	case !final:
		if remainder == 0 {
			return nil, fmt.Errorf("%w: nothing left to fund the next transaction", ErrInsufficientFunds)
		}
	case len(payments) > 0 && (remainder == 0 || IsDust(t.Outputs[changeIdx], b.params.MinRelayFeeRate)):
		t.Outputs = t.Outputs[:changeIdx]
		changeIdx = -1
		fee += remainder
		mass = t.Mass()
	}

	utx := &UnsignedTransaction{
		Tx:          t,
		Entries:     append([]types.UtxoEntry(nil), entries...),
		Fee:         fee,
		Mass:        mass,
		ChangeIndex: changeIdx,
	}
	utx.id = t.ID()
	utx.fingerprint = utx.contentHash()
	return utx, nil
}

// changeEntry returns the UTXO the change output of utx will create.
func changeEntry(utx *UnsignedTransaction, change types.Address, changeSPK types.ScriptPublicKey) types.UtxoEntry {
	return types.UtxoEntry{
		Address:         change,
		Outpoint:        types.Outpoint{TxID: utx.id, Index: uint32(utx.ChangeIndex)},
		Amount:          utx.Tx.Outputs[utx.ChangeIndex].Value,
		ScriptPublicKey: changeSPK,
	}
}
