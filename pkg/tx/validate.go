package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrDuplicateInput     = errors.New("duplicate input")
	ErrOutputOverflow     = errors.New("output values overflow")
	ErrInputOverlap       = errors.New("input spent by more than one transaction in batch")
	ErrValueNotConserved  = errors.New("inputs do not equal outputs plus fee")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrFeeTooLow          = errors.New("fee below network minimum")
	ErrMassTooHigh        = errors.New("transaction mass exceeds limit")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrInvalidLimits      = errors.New("invalid builder limits")
	ErrMissingSigningKey  = errors.New("missing signing key")
	ErrAlreadySigned      = errors.New("transaction already signed")
	ErrTransactionMutated = errors.New("transaction changed after it was built")
	ErrEntryMismatch      = errors.New("utxo entries do not match inputs")
)

// Validate checks transaction structure. It does not check that inputs
// exist or are signed.
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}

	seen := make(map[types.Outpoint]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in.PrevOut] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PrevOut] = true
	}

	if _, err := tx.TotalOutputValue(); err != nil {
		return ErrOutputOverflow
	}
	return nil
}

// CheckBalance verifies that the inputs of utx pay exactly for its
// outputs and recorded fee.
func (utx *UnsignedTransaction) CheckBalance() error {
	if len(utx.Entries) != len(utx.Tx.Inputs) {
		return fmt.Errorf("%w: %d entries, %d inputs", ErrEntryMismatch, len(utx.Entries), len(utx.Tx.Inputs))
	}
	in, ok := types.TotalAmount(utx.Entries)
	if !ok {
		return fmt.Errorf("input values overflow")
	}
	out, err := utx.Tx.TotalOutputValue()
	if err != nil {
		return ErrOutputOverflow
	}
	if out > in || in-out != utx.Fee {
		return fmt.Errorf("%w: in=%d out=%d fee=%d", ErrValueNotConserved, in, out, utx.Fee)
	}
	return nil
}

// VerifyBatch checks every transaction of a batch for structure and
// balance, and that no outpoint is spent twice across the batch.
func VerifyBatch(batch []*UnsignedTransaction) error {
	spent := make(map[types.Outpoint]int)
	for i, utx := range batch {
		if err := utx.Tx.Validate(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
		if err := utx.CheckBalance(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
		for _, in := range utx.Tx.Inputs {
			if prev, ok := spent[in.PrevOut]; ok {
				return fmt.Errorf("tx %d: %w: %s also spent by tx %d", i, ErrInputOverlap, in.PrevOut, prev)
			}
			spent[in.PrevOut] = i
		}
	}
	return nil
}
