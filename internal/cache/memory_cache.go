package cache

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when Redis is not configured.
// Values are stored encoded so callers cannot mutate cached state.
type MemoryCache struct {
	lru *lru.Cache
	now func() time.Time
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = 1024
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: l, now: time.Now}, nil
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return false, nil
	}
	e := v.(memoryEntry)
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		c.lru.Remove(key)
		return false, nil
	}
	return true, nil
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	e := memoryEntry{data: b}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lru.Remove(k)
	}
	return nil
}
