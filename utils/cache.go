package utils

import (
	"sync"
	"time"

	"threadmail/models"
)

// headerEntry is one cached fetch window with expiration.
type headerEntry struct {
	records    []models.HeaderRecord
	expiration time.Time
}

// HeaderCache caches fetched header windows per (user, folder, window) key
// so repeated listing requests don't re-issue the same FETCH.
type HeaderCache struct {
	items map[string]*headerEntry
	mu    sync.RWMutex
	ttl   time.Duration
}

// NewHeaderCache creates a header cache with the given TTL and starts the
// cleanup loop.
func NewHeaderCache(ttl time.Duration) *HeaderCache {
	cache := &HeaderCache{
		items: make(map[string]*headerEntry),
		ttl:   ttl,
	}
	go cache.cleanupLoop()
	return cache
}

// Set stores a header window under key.
func (c *HeaderCache) Set(key string, records []models.HeaderRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &headerEntry{
		records:    records,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a header window, reporting whether a live entry was found.
func (c *HeaderCache) Get(key string) ([]models.HeaderRecord, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if time.Now().After(item.expiration) {
		c.Delete(key)
		return nil, false
	}
	return item.records, true
}

// Delete removes an entry.
func (c *HeaderCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Size returns the number of cached windows.
func (c *HeaderCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// cleanupLoop periodically removes expired entries.
func (c *HeaderCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, item := range c.items {
			if now.After(item.expiration) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}
