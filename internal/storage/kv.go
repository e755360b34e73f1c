// ABOUTME: Key-value store abstraction backing the persistent cache.
// ABOUTME: Backends are file (default), redis, and in-memory; all support atomic multi-key updates.
package storage

import "errors"

// ErrTxConflict is returned when an optimistic multi-key update keeps losing races.
var ErrTxConflict = errors.New("storage: transaction conflict, giving up")

// UpdateFunc receives the current values of the watched keys (missing keys are
// absent from the map) and returns the values to write. A nil value deletes the key.
type UpdateFunc func(current map[string][]byte) (map[string][]byte, error)

// KV is the persistence contract used by Cache.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(keys ...string) error

	// Update performs an atomic read-modify-write across keys.
	Update(keys []string, fn UpdateFunc) error

	// Close releases any resources held by the store.
	Close() error
}
