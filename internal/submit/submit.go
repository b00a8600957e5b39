// Package submit broadcasts a signed transaction batch in order.
package submit

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/kaswallet/internal/log"
	"github.com/Klingon-tech/kaswallet/internal/rpcclient"
	"github.com/Klingon-tech/kaswallet/pkg/tx"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// Submission errors.
var (
	ErrSubmissionRejected = errors.New("transaction rejected")
	ErrOperationAborted   = errors.New("operation aborted")
)

// SubmissionRejectedError reports which transaction of a batch the node refused.
type SubmissionRejectedError struct {
	Index  int
	TxID   types.Hash
	Reason error
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("transaction %d (%s) rejected: %v", e.Index, e.TxID, e.Reason)
}

// Is makes errors.Is(err, ErrSubmissionRejected) hold.
func (e *SubmissionRejectedError) Is(target error) bool {
	return target == ErrSubmissionRejected
}

func (e *SubmissionRejectedError) Unwrap() error {
	return e.Reason
}

// Status is the outcome of one transaction in a batch.
type Status int

const (
	StatusAccepted Status = iota
	StatusRejected
	StatusAborted
	// StatusUnknown marks a send that failed without a node verdict. The
	// node may or may not hold the transaction.
	StatusUnknown
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusAborted:
		return "aborted"
	case StatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one transaction.
type Result struct {
	Index  int        `json:"index"`
	TxID   types.Hash `json:"txid"`
	Status Status     `json:"status"`
	Err    error      `json:"-"`
}

// Client is the part of a node client the coordinator needs.
type Client interface {
	SubmitTransaction(ctx context.Context, signed *tx.SignedTransaction) (types.Hash, error)
}

// Coordinator submits batches. The zero value is ready to use.
type Coordinator struct{}

// NewCoordinator returns a coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Submit sends signed in order, stopping at the first failure. The returned
// slice always has one Result per transaction. The error is nil when every
// transaction was accepted, a *SubmissionRejectedError when the node refused
// one with an RPC error, or wraps ErrOperationAborted otherwise. A send that
// fails without an RPC error from the node is StatusUnknown.
// Nothing is retried; transactions accepted before a failure stay accepted.
func (c *Coordinator) Submit(ctx context.Context, signed []*tx.SignedTransaction, client Client) ([]Result, error) {
	results := make([]Result, len(signed))
	for i, s := range signed {
		results[i] = Result{Index: i, TxID: s.ID(), Status: StatusAborted}
	}

	for i, s := range signed {
		if err := ctx.Err(); err != nil {
			return results, abort(results, i, err)
		}

		id, err := client.SubmitTransaction(ctx, s)
		if err != nil {
			var rpcErr *rpcclient.RPCError
			if errors.As(err, &rpcErr) && ctx.Err() == nil {
				return results, reject(results, i, err)
			}
			return results, unknown(results, i, err)
		}

		results[i].TxID = id
		results[i].Status = StatusAccepted
		log.Submit.Info().Int("index", i).Str("txid", id.String()).Msg("Transaction accepted")
	}
	return results, nil
}

// reject marks results[i] rejected by the node and the rest aborted.
func reject(results []Result, i int, reason error) error {
	rejErr := &SubmissionRejectedError{Index: i, TxID: results[i].TxID, Reason: reason}
	results[i].Status = StatusRejected
	results[i].Err = rejErr
	markAborted(results[i+1:], fmt.Errorf("%w: transaction %d was rejected", ErrOperationAborted, i))
	log.Submit.Warn().Int("index", i).Str("txid", results[i].TxID.String()).Err(reason).Msg("Transaction rejected")
	return rejErr
}

// unknown marks results[i] unknown and the rest aborted.
func unknown(results []Result, i int, cause error) error {
	err := fmt.Errorf("%w: transaction %d (%s) outcome unknown: %w", ErrOperationAborted, i, results[i].TxID, cause)
	markAborted(results[i+1:], err)
	results[i].Status = StatusUnknown
	results[i].Err = err
	log.Submit.Warn().Int("index", i).Str("txid", results[i].TxID.String()).Err(cause).Msg("Submission outcome unknown")
	return err
}

// abort marks results[i:] aborted.
func abort(results []Result, i int, cause error) error {
	err := fmt.Errorf("%w: %d of %d transactions not sent: %v",
		ErrOperationAborted, len(results)-i, len(results), cause)
	markAborted(results[i:], err)
	log.Submit.Warn().Int("index", i).Int("remaining", len(results)-i).Msg("Submission aborted")
	return err
}

func markAborted(results []Result, err error) {
	for i := range results {
		results[i].Status = StatusAborted
		results[i].Err = err
	}
}
