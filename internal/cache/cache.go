// Package cache provides key-value caching for resolved content metadata.
// Providers register themselves by name; the configured provider is selected
// at client construction time. An in-memory LRU is the default, with a
// Redis/Valkey backend for deployments that share a cache across restarts.
package cache

// EvictCallback is called when an entry is evicted from the cache.
// Not all providers support eviction callbacks.
type EvictCallback func(key string, value []byte)

// Logger receives error reports from cache operations. If nil, errors are
// silently ignored.
type Logger interface {
	Error(msg string, err error)
}

// Cache defines the interface for key-value caching with LRU semantics.
type Cache interface {
	// Get retrieves a value by key. Returns the value and true if found.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key, overwriting any existing entry.
	Set(key string, value []byte)

	// Contains checks whether a key exists without affecting LRU ordering.
	Contains(key string) bool

	// Len returns the number of entries currently in the cache.
	Len() int

	// Close releases any resources held by the cache (e.g. network connections).
	Close() error
}
