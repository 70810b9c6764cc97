package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values. A miss is (false, nil).
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Locker hands out short-lived, non-blocking locks. TryLock returns ok=false
// when someone else holds the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}
