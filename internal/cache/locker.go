package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisLocker shares locks across every process using the same Redis.
type RedisLocker struct {
	rs     *redsync.Redsync
	logger *logrus.Logger
}

func NewRedisLocker(rdb *redis.Client, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{rs: redsync.New(goredis.NewPool(rdb)), logger: logger}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	m := l.rs.NewMutex("lock:"+key, redsync.WithExpiry(ttl), redsync.WithTries(1))
	if err := m.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, false, nil
		}
		return nil, false, err
	}
	unlock := func() {
		if _, err := m.Unlock(); err != nil && l.logger != nil {
			l.logger.WithError(err).WithField("lock", key).Warn("unlock failed")
		}
	}
	return unlock, true, nil
}

// MemoryLocker only excludes within one process.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]time.Time{}, clock: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, false, nil
	}
	exp := now.Add(ttl)
	l.held[key] = exp

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// a newer holder may own the key after our ttl lapsed
		if l.held[key].Equal(exp) {
			delete(l.held, key)
		}
	}, true, nil
}
