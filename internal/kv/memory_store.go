package kv

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs. Writes made
// inside an Update closure are buffered and applied only when the closure
// returns nil, matching the all-or-nothing contract of the Badger backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{store: s})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{store: s, pending: make(map[string][]byte), writable: true}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.pending {
		s.data[k] = v
	}
	return nil
}

type memTx struct {
	store    *MemoryStore
	pending  map[string][]byte
	writable bool
}

func (t *memTx) Get(key []byte) ([]byte, bool, error) {
	if t.writable {
		if v, ok := t.pending[string(key)]; ok {
			return append([]byte(nil), v...), true, nil
		}
	}
	v, ok := t.store.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *memTx) Set(key, value []byte) error {
	if !t.writable {
		return errReadOnly
	}
	t.pending[string(key)] = append([]byte(nil), value...)
	return nil
}

func (t *memTx) Scan(prefix []byte, fn func(key, value []byte) error) error {
	keys := make([]string, 0)
	seen := make(map[string]bool)
	for k := range t.store.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	if t.writable {
		for k := range t.pending {
			if !seen[k] && bytes.HasPrefix([]byte(k), prefix) {
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, _, err := t.Get([]byte(k))
		if err != nil {
			return err
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Tx = (*memTx)(nil)
