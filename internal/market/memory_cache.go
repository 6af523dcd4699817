package market

import (
	"context"
	"sync"
)

// MemoryCache keeps entries in process. Entries are never evicted; a newer
// Set for the same key replaces the old one.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{Entries: cloneEntries(e.Entries), FetchedAt: e.FetchedAt}, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Entries: cloneEntries(entry.Entries), FetchedAt: entry.FetchedAt}
	return nil
}

// Ping always succeeds.
func (c *MemoryCache) Ping(context.Context) error {
	return nil
}
