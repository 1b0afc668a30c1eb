// Package store defines the key-value slot interface and its backends.
package store

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Get when a key holds no value.
	ErrNotFound = errors.New("store: key not found")

	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// store's capacity ceiling.
	ErrQuotaExceeded = errors.New("store: storage quota exceeded")

	// ErrInvalidKey is returned for empty keys or keys containing path
	// separators.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Store is the interface that all backing stores must implement.
// It holds opaque byte values under flat string keys; every Set fully
// replaces the previous value in a single write.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set inserts or replaces the value under key.
	Set(key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys returns all keys holding a value, sorted.
	Keys() ([]string, error)

	// Usage returns the total number of value bytes held.
	Usage() (int64, error)
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return nil
}
