// File: internal/store/store.go

// Package store provides the persistent key-value layer backing the
// environment cache. Three backends share one contract: embedded sqlite for
// the default single-user install, postgres for shared deployments, and an
// in-memory map for tests and throwaway runs.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists under the key.
// Absence is an expected state, not a failure.
var ErrNotFound = errors.New("store: key not found")

// KeyValueStore is the opaque persistence capability handed to the cache.
// Implementations must be safe for concurrent use.
type KeyValueStore interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key.
	Clear(ctx context.Context) error

	Close() error
}

// metaVersionKey holds the schema/application version marker used by
// EnsureVersion. It lives in the same keyspace under a reserved prefix.
const metaVersionKey = "__meta/version"

// EnsureVersion compares the stored version marker against want and clears
// the store on mismatch. Cached records are only meaningful to the build
// that wrote them; an upgrade invalidates them wholesale.
func EnsureVersion(ctx context.Context, kv KeyValueStore, want string) (cleared bool, err error) {
	got, err := kv.Get(ctx, metaVersionKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err == nil && string(got) == want {
		return false, nil
	}

	if err := kv.Clear(ctx); err != nil {
		return false, err
	}
	if err := kv.Set(ctx, metaVersionKey, []byte(want)); err != nil {
		return false, err
	}
	return true, nil
}
