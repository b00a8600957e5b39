// Package storage provides the key-value stores that back the wallet's
// local state.
package storage

import "errors"

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch collects writes that are applied together by Commit. Cancel
// discards uncommitted writes and releases the batch; it is a no-op after
// Commit, so callers can defer it.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Cancel()
}

// Batcher is implemented by stores that can commit batches atomically.
type Batcher interface {
	NewBatch() Batch
}
