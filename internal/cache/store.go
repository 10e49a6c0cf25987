// Handles persistent caching of fetched HTTP responses
package cache

import "errors"

// ErrNotFound is returned by a Store when the key holds no value
var ErrNotFound = errors.New("cache: key not found")

// Store is a flat key/value area backing one cache directory
type Store interface {
	// retrieves the value stored under key, or ErrNotFound
	Get(key string) ([]byte, error)
	// stores value under key, replacing any previous value atomically
	Set(key string, value []byte) error
	// removes key; removing a missing key is not an error
	Remove(key string) error
	// initializes the store (e.g., creates necessary directories)
	Init() error
}
