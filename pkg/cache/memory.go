package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache implements an in-memory prediction cache.
// It is safe for concurrent use by multiple goroutines.
//
// MemoryCache holds at most size entries, evicting the least recently used,
// and drops entries older than the TTL. For multi-instance deployments that
// should share hits, consider using RedisCache instead.
type MemoryCache struct {
	lru *expirable.LRU[string, float64]
}

// NewMemoryCache creates a cache holding up to size entries for ttl each.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	if ttl <= 0 {
		return nil, errors.New("cache TTL must be positive")
	}

	return &MemoryCache{
		lru: expirable.NewLRU[string, float64](size, nil, ttl),
	}, nil
}

// Get returns the cached value for key.
// The only error returned is the context error if ctx is already done.
func (c *MemoryCache) Get(ctx context.Context, key string) (float64, bool, error) {
	select {
	case <-ctx.Done():
		return 0, false, ctx.Err()
	default:
	}

	v, ok := c.lru.Get(key)
	return v, ok, nil
}

// Put stores value under key.
func (c *MemoryCache) Put(ctx context.Context, key string, value float64) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.lru.Add(key, value)
	return nil
}

// Len returns the number of live entries.
// This method is primarily useful for testing and metrics.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge removes every entry.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}
