package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local Cache backed by go-cache. A zero
// defaultTTL keeps entries until Delete or Clear.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (m *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := m.store.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false
	}
	return data, true
}

// Set never fails for the in-memory backend; the error return satisfies Cache.
func (m *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	m.store.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.store.Delete(key)
	return nil
}

func (m *MemoryCache) Clear() error {
	m.store.Flush()
	return nil
}

// Len reports the number of live entries, mainly for tests and stats.
func (m *MemoryCache) Len() int {
	return m.store.ItemCount()
}
