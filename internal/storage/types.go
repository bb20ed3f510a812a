// Package storage persists the todo collection and tag registry as serialized
// text under well-known keys in a key-value backend.
//
// The package has two layers. A Backend is a plain string key-value store
// (memory, JSON file, SQLite, PostgreSQL). A Store sits on top of a Backend,
// owns the key layout and the JSON encoding, and upgrades old records to the
// current schema at load time.
package storage

import "errors"

// ErrQuotaExceeded is returned (possibly wrapped) when a backend has no room
// for a write. Callers check for it with errors.Is.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend defines the contract for the durable key-value store.
//
// All backends must implement these methods to be usable by a Store.
// Implementations should make each Set atomic so a failed write never leaves
// a half-written value behind.
type Backend interface {
	// Get returns the value stored under key.
	//
	// Returns ok=false with a nil error if the key is absent.
	// Returns an error if the underlying store cannot be read.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	//
	// Returns an error wrapping ErrQuotaExceeded if the store is full.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Sizer is implemented by backends that can report the number of bytes held
// under each key. QuotaBackend uses it to seed its accounting.
type Sizer interface {
	Sizes() (map[string]int, error)
}
