package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/MrEthical07/goCrud/session"
)

// Record is a value a [Repository] can persist. Clone must return a deep
// copy so records handed to callers never alias repository state.
type Record[T any] interface {
	Clone() T
}

// SessionIssuer mints session identity cookies. *session.Authenticator
// satisfies it.
type SessionIssuer interface {
	IssueSessionCookie(kind, value string) session.Mutation
}

// Stored is a record as read from the store together with the bytes it was
// decoded from. [Repository.SwapStored] and [Repository.DeleteStored]
// compare against those bytes, so a record whose encoding does not
// reproduce byte for byte (invalid UTF-8 in JSON, for one) can still be
// swapped.
type Stored[T any] struct {
	Record T
	raw    []byte
}

// Repository layers record semantics on a [KV]: existence rules on create
// and update, compare-and-swap on swap and delete, and decoding on reads.
type Repository[T Record[T]] struct {
	kv    KV
	codec Codec
}

// NewRepository returns a [Repository] storing records in kv with codec.
func NewRepository[T Record[T]](kv KV, codec Codec) (*Repository[T], error) {
	if kv == nil {
		return nil, errors.New("store: kv required")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Repository[T]{kv: kv, codec: codec}, nil
}

// Exists reports whether tree holds a record under key.
func (r *Repository[T]) Exists(ctx context.Context, tree, key string) (bool, error) {
	return r.kv.Exists(ctx, tree, key)
}

// Create stores rec under key if the key is absent. Among concurrent
// creates of one key exactly one succeeds; the others get ErrExists and the
// stored record is the winner's.
func (r *Repository[T]) Create(ctx context.Context, tree, key string, rec T) (T, error) {
	var zero T

	data, err := r.encode(rec)
	if err != nil {
		return zero, err
	}
	if err := r.kv.CompareAndSwap(ctx, tree, key, nil, data); err != nil {
		return zero, err
	}
	return rec.Clone(), nil
}

// Get returns the record stored under key, or ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, tree, key string) (T, error) {
	var zero T

	data, err := r.kv.Get(ctx, tree, key)
	if err != nil {
		return zero, err
	}
	return r.decode(data)
}

// Load returns the record stored under key with its stored encoding, or
// ErrNotFound.
func (r *Repository[T]) Load(ctx context.Context, tree, key string) (Stored[T], error) {
	data, err := r.kv.Get(ctx, tree, key)
	if err != nil {
		return Stored[T]{}, err
	}
	rec, err := r.decode(data)
	if err != nil {
		return Stored[T]{}, err
	}
	return Stored[T]{Record: rec, raw: data}, nil
}

// All lazily yields every record of tree. Each range over the returned
// sequence starts a fresh pass. Iteration stops after the first error.
func (r *Repository[T]) All(ctx context.Context, tree string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for e, err := range r.kv.Scan(ctx, tree) {
			if err != nil {
				yield(zero, err)
				return
			}
			rec, err := r.decode(e.Value)
			if err != nil {
				yield(zero, fmt.Errorf("%w: key %q", err, e.Key))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Update overwrites the record under key. The presence check and the write
// are one atomic store call; an absent key yields ErrNotFound and nothing
// is written.
func (r *Repository[T]) Update(ctx context.Context, tree, key string, rec T) (T, error) {
	var zero T

	data, err := r.encode(rec)
	if err != nil {
		return zero, err
	}
	if err := r.kv.Replace(ctx, tree, key, data); err != nil {
		return zero, err
	}
	return rec.Clone(), nil
}

// Swap replaces expected with next under key. It fails with ErrNotFound if
// the key is absent and ErrConflict if the stored record is no longer
// expected.
func (r *Repository[T]) Swap(ctx context.Context, tree, key string, expected, next T) (T, error) {
	var zero T

	old, err := r.encode(expected)
	if err != nil {
		return zero, err
	}
	data, err := r.encode(next)
	if err != nil {
		return zero, err
	}
	if err := r.kv.CompareAndSwap(ctx, tree, key, old, data); err != nil {
		return zero, err
	}
	return next.Clone(), nil
}

// Delete removes key if its stored record still equals rec and returns the
// removed record. It fails with ErrNotFound if the key is absent and
// ErrConflict if the stored record differs.
func (r *Repository[T]) Delete(ctx context.Context, tree, key string, rec T) (T, error) {
	var zero T

	old, err := r.encode(rec)
	if err != nil {
		return zero, err
	}
	if err := r.kv.CompareAndSwap(ctx, tree, key, old, nil); err != nil {
		return zero, err
	}
	return rec.Clone(), nil
}

// SwapStored replaces prev with next under key. Unlike [Repository.Swap] the
// comparison uses the bytes prev was loaded from.
func (r *Repository[T]) SwapStored(ctx context.Context, tree, key string, prev Stored[T], next T) (T, error) {
	var zero T

	old, err := r.expected(prev)
	if err != nil {
		return zero, err
	}
	data, err := r.encode(next)
	if err != nil {
		return zero, err
	}
	if err := r.kv.CompareAndSwap(ctx, tree, key, old, data); err != nil {
		return zero, err
	}
	return next.Clone(), nil
}

// DeleteStored removes key if it still holds the bytes prev was loaded
// from.
func (r *Repository[T]) DeleteStored(ctx context.Context, tree, key string, prev Stored[T]) (T, error) {
	var zero T

	old, err := r.expected(prev)
	if err != nil {
		return zero, err
	}
	if err := r.kv.CompareAndSwap(ctx, tree, key, old, nil); err != nil {
		return zero, err
	}
	return prev.Record.Clone(), nil
}

// expected returns the bytes to compare against. A Stored built by hand
// carries no bytes; encoding its record keeps nil from meaning "absent".
func (r *Repository[T]) expected(prev Stored[T]) ([]byte, error) {
	if prev.raw != nil {
		return prev.raw, nil
	}
	return r.encode(prev.Record)
}

// GetAndBind looks up the record under key and, only if it exists, returns
// it with a cookie mutation that binds the session identity for tree to
// value.
func (r *Repository[T]) GetAndBind(ctx context.Context, tree, key string, issuer SessionIssuer, value string) (T, session.Mutation, error) {
	var zero T

	if issuer == nil {
		return zero, session.Mutation{}, errors.New("store: session issuer required")
	}
	rec, err := r.Get(ctx, tree, key)
	if err != nil {
		return zero, session.Mutation{}, err
	}
	return rec, issuer.IssueSessionCookie(tree, value), nil
}

func (r *Repository[T]) encode(rec T) ([]byte, error) {
	data, err := r.codec.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("store: encode %s: %w", r.codec.Name(), err)
	}
	return data, nil
}

func (r *Repository[T]) decode(data []byte) (T, error) {
	var rec T
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}
