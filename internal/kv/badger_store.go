package kv

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// badgerUpdateRetries bounds the retries on optimistic-concurrency conflicts.
// Callers serialize writers per session, so conflicts only show up when
// unrelated namespaces collide inside one managed transaction.
const badgerUpdateRetries = 3

// BadgerStore backs the Store contract with an embedded BadgerDB. Badger
// iterates keys in byte order, which is exactly the ordering the session and
// segment key encodings are designed around.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(&badgerTx{txn: txn, ctx: ctx})
	})
}

func (s *BadgerStore) Update(ctx context.Context, fn func(Tx) error) error {
	var err error
	for attempt := 0; attempt < badgerUpdateRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(&badgerTx{txn: txn, ctx: ctx})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

type badgerTx struct {
	txn *badger.Txn
	ctx context.Context
}

func (t *badgerTx) Get(key []byte) ([]byte, bool, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (t *badgerTx) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t *badgerTx) Scan(prefix []byte, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		select {
		case <-t.ctx.Done():
			return t.ctx.Err()
		default:
		}
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.KeyCopy(nil), val); err != nil {
			return err
		}
	}
	return nil
}

// Ensure interface compliance at compile time.
var _ Store = (*BadgerStore)(nil)
var _ Tx = (*badgerTx)(nil)
