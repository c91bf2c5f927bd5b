package redis

// Package redis provides the Redis-backed cache for effective authorization
// payloads, shared across service replicas.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuthCache stores opaque effective-authorization payloads in Redis keyed
// by principal. Payload semantics (expiry, format) belong to the caller;
// the Redis TTL is only an upper bound for garbage collection.
type AuthCache struct {
	client redis.UniversalClient
	prefix string
}

// NewAuthCache creates a Redis auth cache with the default key prefix.
func NewAuthCache(client redis.UniversalClient) *AuthCache {
	return &AuthCache{
		client: client,
		prefix: "effectiveauth:",
	}
}

// NewAuthCacheWithPrefix creates a Redis auth cache with a custom key prefix.
func NewAuthCacheWithPrefix(client redis.UniversalClient, prefix string) *AuthCache {
	return &AuthCache{
		client: client,
		prefix: prefix,
	}
}

// Get returns the stored payload, or nil when the key is absent.
func (c *AuthCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores the payload. A non-positive ttl stores it without expiry.
func (c *AuthCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (c *AuthCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
