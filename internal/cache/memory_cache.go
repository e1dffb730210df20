package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryReportCache is the in-process cache used when Redis is not
// configured.
type MemoryReportCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryReportCache() *MemoryReportCache {
	return &MemoryReportCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryReportCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryReportCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if len(value) == 0 || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expires: c.now().Add(ttl)}
	return nil
}
