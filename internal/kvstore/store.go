// Package kvstore defines the keyed persistent store the session model sits
// on, and its storage drivers.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation requires a key that is absent.
var ErrNotFound = errors.New("kvstore: key not found")

// UpdateFunc transforms the current value of a key. found is false when the
// key is absent; the returned bytes replace the value atomically.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Store is a keyed store with atomic single-key operations. Update runs a
// read-modify-write cycle that no concurrent writer to the same key can
// interleave with; everything else a driver guarantees beyond that is
// incidental.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Rename(ctx context.Context, oldKey, newKey string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	NextID(ctx context.Context, counter string) (int64, error)
	Close() error
}

// Driver identifies a store backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverBadger   Driver = "badger"
	DriverPostgres Driver = "postgres"
)

// Open constructs a Store for the given driver. The dsn is a file path for
// sqlite and badger, a connection string for postgres, and ignored for the
// in-memory driver.
func Open(driver Driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(dsn)
	case DriverBadger:
		return NewBadger(dsn)
	case DriverPostgres:
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
