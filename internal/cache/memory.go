package cache

import (
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultMemoryEntries bounds the cache when no size is configured. Resolved
// content records are a few KB of JSON each, so this stays well under a
// megabyte.
const defaultMemoryEntries = 256

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache is the default provider: an in-process expirable LRU holding
// serialized content records. Entries vanish on restart, which is fine for a
// single-instance deployment.
type memoryCache struct {
	entries *lru.LRU[string, []byte]
}

func newMemoryCache(cfg ProviderConfig) (Cache, error) {
	size := cfg.Size
	if size <= 0 {
		size = defaultMemoryEntries
	}
	// EvictCallback has the exact signature the LRU expects; a nil callback
	// stays nil so the LRU skips the dispatch entirely.
	var onEvict func(key string, value []byte)
	if cfg.OnEvict != nil {
		onEvict = cfg.OnEvict
	}
	return &memoryCache{
		entries: lru.NewLRU[string, []byte](size, onEvict, cfg.TTL),
	}, nil
}

func (m *memoryCache) Get(key string) ([]byte, bool) {
	return m.entries.Get(key)
}

func (m *memoryCache) Set(key string, value []byte) {
	m.entries.Add(key, value)
}

func (m *memoryCache) Contains(key string) bool {
	return m.entries.Contains(key)
}

// Len counts live entries; expired ones are purged by the LRU's reaper.
func (m *memoryCache) Len() int {
	return m.entries.Len()
}

// Close is a no-op, there is nothing to release in-process.
func (m *memoryCache) Close() error {
	return nil
}
