// Package storage is the optional persistence of the guard. The guard works
// entirely in memory; a database only backs the block registry when it must
// survive restarts and the queue used for retried incident delivery.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyInTx is returned by Begin on a handle that already is a transaction.
	ErrAlreadyInTx = errors.New("already in tx")
	// ErrNotInTx is returned by Commit and Rollback outside a transaction.
	ErrNotInTx = errors.New("not in tx")
)

// AllStorage is everything a backend persists.
type AllStorage interface {
	BlockStorage
	JobStorage
}

// TxStorage is a handle bound to an open transaction. It must not be used
// after Commit or Rollback.
type TxStorage interface {
	AllStorage

	Commit() error
	Rollback() error
}

// Storage is the root handle of a backend.
type Storage interface {
	AllStorage

	// Close releases the connection pool.
	Close() error
	// Begin opens a transaction.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx runs cb in a transaction, committing when cb returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
