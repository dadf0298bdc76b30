package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KVStore.Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// KVStore is the byte-oriented storage behind session persistence.
// Values are opaque to the store; the session manager owns the encoding.
type KVStore interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys starting with prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}
