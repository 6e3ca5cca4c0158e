package kv

import (
	"errors"
	"fmt"
)

var errReadOnly = errors.New("kv: set not allowed in read-only transaction")

// Open creates a Store for the configured backend. An empty backend selects
// the in-memory store.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadger(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
