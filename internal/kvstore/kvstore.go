// Package kvstore defines the typed key-value gateway used by every
// durable component in the story engine, and a Redis-backed
// implementation of it.
//
// The engine assumes single-writer-at-a-time semantics per key is
// provided by the store; this package neither retries nor adds its own
// locking, matching the blocking, non-retrying contract described for
// the gateway.
package kvstore

import "context"

// Store is the gateway every durable component depends on.
type Store interface {
	// Get returns the value at key, or (nil, false) if it doesn't exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value at key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// MGet returns one result per requested key, in order; a missing
	// key yields (nil, false) at its position.
	MGet(ctx context.Context, keys []string) ([][]byte, []bool, error)

	// Scan returns keys matching prefix starting from cursor, and the
	// cursor to resume from. A returned cursor of 0 means iteration is
	// complete.
	Scan(ctx context.Context, cursor uint64, prefix string, count int64) (nextCursor uint64, keys []string, err error)
}
