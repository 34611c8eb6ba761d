package cache

import (
	"context"
	"time"

	"divdataset/ports"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process SessionCache
type MemoryCache struct {
	store *gocache.Cache
}

var _ ports.SessionCache = (*MemoryCache)(nil)

// NewMemoryCache creates an in-process cache that purges expired entries every cleanupInterval
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.store.Set(key, stored, ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// Len reports the number of stored entries, expired ones included until purged
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}
