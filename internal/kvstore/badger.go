package kvstore

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// Badger is an embedded store for single-node production deployments.
type Badger struct {
	db *badger.DB
}

// NewBadger opens a badger-backed store at the given directory.
func NewBadger(path string) (*Badger, error) {
	if path == "" {
		path = "./crispy-badger"
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) Rename(_ context.Context, oldKey, newKey string) error {
	err := b.retry(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(oldKey))
		if err != nil {
			return err
		}
		var value []byte
		if err := item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		if err := txn.Delete([]byte(oldKey)); err != nil {
			return err
		}
		return txn.Set([]byte(newKey), value)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (b *Badger) Update(_ context.Context, key string, fn UpdateFunc) error {
	return b.retry(func(txn *badger.Txn) error {
		var current []byte
		found := true
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
		} else if err != nil {
			return err
		} else {
			if err := item.Value(func(val []byte) error {
				current = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
		}
		next, err := fn(current, found)
		if err != nil {
			return err
		}
		return txn.Set([]byte(key), next)
	})
}

func (b *Badger) NextID(_ context.Context, counter string) (int64, error) {
	key := []byte("counter:" + counter)
	var id int64
	err := b.retry(func(txn *badger.Txn) error {
		id = 1
		item, err := txn.Get(key)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				id = int64(binary.BigEndian.Uint64(val)) + 1
				return nil
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(id))
		return txn.Set(key, buf)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// retry re-runs fn on optimistic transaction conflicts, which badger reports
// instead of blocking concurrent writers.
func (b *Badger) retry(fn func(txn *badger.Txn) error) error {
	for {
		err := b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

func (b *Badger) Close() error { return b.db.Close() }
