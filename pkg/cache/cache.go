// Package cache provides small TTL caches used for the model tag list.
package cache

import (
	"context"
	"sync"
	"time"
)

// item represents a cached value with expiration
type item struct {
	value      string
	expiration int64
}

// expired checks if the cache item has expired
func (i item) expired() bool {
	if i.expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > i.expiration
}

// Memory is a thread-safe in-memory cache with expiration
type Memory struct {
	mu              sync.RWMutex
	items           map[string]item
	maxItems        int
	cleanupInterval time.Duration
}

// NewMemory creates an in-memory cache. A cleanupInterval of zero disables
// the background purge.
func NewMemory(maxItems int, cleanupInterval time.Duration) *Memory {
	c := &Memory{
		items:           make(map[string]item),
		maxItems:        maxItems,
		cleanupInterval: cleanupInterval,
	}

	if cleanupInterval > 0 {
		go c.startCleanupTimer()
	}

	return c
}

// Get returns the cached value for key, if present and unexpired.
func (c *Memory) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found || it.expired() {
		return "", false
	}
	return it.value, true
}

// Set stores a value with the given TTL. A TTL of zero means no expiration.
func (c *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxItems > 0 && len(c.items) >= c.maxItems {
		if _, exists := c.items[key]; !exists {
			c.evictOldest()
		}
	}

	c.items[key] = item{value: value, expiration: exp}
}

// Delete removes a key from the cache.
func (c *Memory) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Memory) startCleanupTimer() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.deleteExpired()
	}
}

func (c *Memory) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, it := range c.items {
		if it.expired() {
			delete(c.items, key)
		}
	}
}

// evictOldest removes the entry closest to expiring. Caller must hold the lock.
func (c *Memory) evictOldest() {
	var oldestKey string
	var oldestExp int64 = -1
	for key, it := range c.items {
		if oldestExp == -1 || (it.expiration != 0 && it.expiration < oldestExp) {
			oldestKey = key
			oldestExp = it.expiration
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
