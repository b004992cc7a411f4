// internal/cache/memory.go - Bounded in-memory tile cache
package cache

import (
	"context"
	"sync"
)

// MemoryCache keeps up to maxEntries tiles in memory and evicts the oldest
// insertion first
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string][]byte
	order      []string
}

// NewMemoryCache creates a memory cache. A non-positive size is treated as 1.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		entries:    make(map[string][]byte),
	}
}

// Get returns a copy of the cached tile
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Set stores a copy of the tile
func (c *MemoryCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		for len(c.order) >= c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = append([]byte(nil), data...)
	return nil
}

// Len returns the number of cached tiles
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close releases nothing
func (c *MemoryCache) Close() error {
	return nil
}
