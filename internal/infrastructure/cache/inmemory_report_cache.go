package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryReportCache implements ReportCache with a process-local map.
// Suitable for single-instance deployments and tests. Expired entries are
// dropped lazily on read.
type InMemoryReportCache struct {
	mu      sync.RWMutex
	entries map[string]inMemoryEntry
}

type inMemoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewInMemoryReportCache creates a new in-memory report cache
func NewInMemoryReportCache() *InMemoryReportCache {
	return &InMemoryReportCache{
		entries: make(map[string]inMemoryEntry),
	}
}

// Get returns the cached payload for a key, with a presence flag.
func (c *InMemoryReportCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.payload, true, nil
}

// Set stores a payload under the key for the given TTL.
func (c *InMemoryReportCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = inMemoryEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a cached payload.
func (c *InMemoryReportCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Close clears all entries.
func (c *InMemoryReportCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]inMemoryEntry)
	return nil
}

// Len returns the number of live entries (for tests/monitoring).
func (c *InMemoryReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ ReportCache = (*InMemoryReportCache)(nil)
