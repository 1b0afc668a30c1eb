package store

import (
	"github.com/pkg/errors"
)

// DefaultCapacity mirrors the multi-megabyte ceiling of browser-grade
// local storage.
const DefaultCapacity int64 = 5 * 1024 * 1024

// LimitedStore enforces a capacity ceiling over another Store. A Set that
// would leave total usage above the ceiling is rejected before anything is
// written.
type LimitedStore struct {
	Store
	capacity int64
}

// Limited wraps s with the given capacity in bytes. A non-positive
// capacity selects DefaultCapacity.
func Limited(s Store, capacity int64) *LimitedStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LimitedStore{Store: s, capacity: capacity}
}

// Capacity returns the ceiling in bytes.
func (l *LimitedStore) Capacity() int64 {
	return l.capacity
}

func (l *LimitedStore) Set(key string, value []byte) error {
	used, err := l.Store.Usage()
	if err != nil {
		return err
	}
	var previous int64
	old, err := l.Store.Get(key)
	switch {
	case err == nil:
		previous = int64(len(old))
	case errors.Is(err, ErrNotFound):
	default:
		return err
	}
	if used-previous+int64(len(value)) > l.capacity {
		return errors.Wrapf(ErrQuotaExceeded, "writing %d bytes to %s", len(value), key)
	}
	return l.Store.Set(key, value)
}
