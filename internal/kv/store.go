// Package kv defines the ordered key-value store contract the game core is
// built on: point get/put plus ordered range scans over a key prefix, with
// multi-key atomicity inside a single Update transaction.
package kv

import "context"

// Tx is the read/write surface available inside a transaction. Keys iterate
// in lexicographic byte order; the key encodings in package game rely on it.
type Tx interface {
	// Get returns the value for key. The second return is false when the key
	// does not exist.
	Get(key []byte) ([]byte, bool, error)
	// Set stores value under key. Only valid inside Update transactions.
	Set(key, value []byte) error
	// Scan calls fn for every key with the given prefix, in ascending key
	// order. Returning an error from fn stops the scan and propagates it.
	Scan(prefix []byte, fn func(key, value []byte) error) error
}

// Store is an ordered key-value store. Update closures either commit every
// write or none of them; an error returned from the closure rolls back.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}
