package memory

// Package memory provides an in-memory AuthCache backend for development and
// tests, mirroring the redis adapter's contract.

import (
	"context"
	"sync"
	"time"
)

type item struct {
	payload  []byte
	deadline time.Time // zero means no expiry
}

// AuthCache is a process-local cache backend. Safe for concurrent use.
type AuthCache struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries map[string]item
}

// Option configures an AuthCache.
type Option func(*AuthCache)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *AuthCache) { c.now = now }
}

// NewAuthCache creates an empty in-memory cache backend.
func NewAuthCache(opts ...Option) *AuthCache {
	c := &AuthCache{
		now:     time.Now,
		entries: make(map[string]item),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored payload, or nil when the key is absent or past its
// backend deadline.
func (c *AuthCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	it, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !it.deadline.IsZero() && !c.now().Before(it.deadline) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return it.payload, nil
}

// Set stores the payload. A non-positive ttl stores it without a backend
// deadline; entry-level expiry stays with the cache store.
func (c *AuthCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	var deadline time.Time
	if ttl > 0 {
		deadline = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = item{payload: payload, deadline: deadline}
	c.mu.Unlock()
	return nil
}

// Delete removes the key.
func (c *AuthCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries.
func (c *AuthCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
