// Package store defines the key-value persistence used for session
// snapshots. Implementations include PostgreSQL, SQLite, Redis (standalone
// or as a read-through cache over another store) and in-memory (for testing).
//
// Only small opaque JSON documents are stored; the engine never depends on a
// store being reachable.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is the snapshot persistence interface.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
