package store

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
)

// Compile-time contract assertions.
var (
	_ KV = (*MemoryKV)(nil)
	_ KV = (*RedisKV)(nil)
)

// MemoryKV is an in-process [KV] for tests and ephemeral runs. Values are
// copied on the way in and out so callers never share backing arrays with
// the store.
type MemoryKV struct {
	mu    sync.RWMutex
	trees map[string]map[string][]byte
}

// NewMemoryKV returns an empty [MemoryKV].
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{trees: make(map[string]map[string][]byte)}
}

func (m *MemoryKV) tree(name string) map[string][]byte {
	t, ok := m.trees[name]
	if !ok {
		t = make(map[string][]byte)
		m.trees[name] = t
	}
	return t
}

// Get implements [KV].
func (m *MemoryKV) Get(ctx context.Context, tree, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.trees[tree][key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Exists implements [KV].
func (m *MemoryKV) Exists(ctx context.Context, tree, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.trees[tree][key]
	return ok, nil
}

// Insert implements [KV].
func (m *MemoryKV) Insert(ctx context.Context, tree, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree(tree)[key] = bytes.Clone(value)
	return nil
}

// Replace implements [KV].
func (m *MemoryKV) Replace(ctx context.Context, tree, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tree(tree)
	if _, ok := t[key]; !ok {
		return ErrNotFound
	}
	t[key] = bytes.Clone(value)
	return nil
}

// CompareAndSwap implements [KV].
func (m *MemoryKV) CompareAndSwap(ctx context.Context, tree, key string, old, new []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tree(tree)
	current, ok := t[key]

	switch {
	case old == nil && ok:
		return ErrExists
	case old != nil && !ok:
		return ErrNotFound
	case old != nil && !bytes.Equal(current, old):
		return ErrConflict
	}

	if new == nil {
		delete(t, key)
		return nil
	}
	t[key] = bytes.Clone(new)
	return nil
}

// Scan implements [KV]. A pass iterates over a snapshot taken when it
// starts, in key order.
func (m *MemoryKV) Scan(ctx context.Context, tree string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Entry{}, err)
			return
		}

		m.mu.RLock()
		entries := make([]Entry, 0, len(m.trees[tree]))
		for k, v := range m.trees[tree] {
			entries = append(entries, Entry{Key: k, Value: bytes.Clone(v)})
		}
		m.mu.RUnlock()

		slices.SortFunc(entries, func(a, b Entry) int {
			return strings.Compare(a.Key, b.Key)
		})

		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}
