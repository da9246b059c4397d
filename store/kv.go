package store

import (
	"context"
	"iter"
)

// Entry is a single key/value pair produced by [KV.Scan].
type Entry struct {
	Key   string
	Value []byte
}

// KV is a persistent, namespaced byte-to-byte mapping. Implementations must
// be safe for concurrent use; every method is a single atomic store call.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, tree, key string) ([]byte, error)

	// Exists reports whether a value is stored under key.
	Exists(ctx context.Context, tree, key string) (bool, error)

	// Insert writes value under key unconditionally.
	Insert(ctx context.Context, tree, key string, value []byte) error

	// Replace writes value under key only if the key is present, checked
	// atomically with the write. Returns ErrNotFound otherwise.
	Replace(ctx context.Context, tree, key string, value []byte) error

	// CompareAndSwap replaces old with new. A nil old means the key is
	// expected to be absent and a nil new deletes the key.
	//
	// Errors: ErrExists when old is nil but the key is present, ErrNotFound
	// when old is non-nil but the key is absent, ErrConflict when the stored
	// value differs from old.
	CompareAndSwap(ctx context.Context, tree, key string, old, new []byte) error

	// Scan lazily yields every entry of tree in store-native order. Each
	// call starts a fresh pass.
	Scan(ctx context.Context, tree string) iter.Seq2[Entry, error]
}
