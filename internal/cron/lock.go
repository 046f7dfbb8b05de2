package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Minute

// Lock keeps a job from running on two worker instances at once.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory returns the lock guarding the named job.
type LockFactory func(job string) (Lock, error)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key string, value string) (bool, error)
	LockKey(name string) string
}

// RedisLock stores a random owner token under its key. The key expires after
// ttl so a crashed holder cannot block the job forever.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	token string
}

// RedisLocks builds one lock per job, keyed hb:lock:cron:<job>.
func RedisLocks(store lockStore, ttl time.Duration) LockFactory {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return func(job string) (Lock, error) {
		if store == nil {
			return nil, errors.New("redis is required for job locks")
		}
		if job == "" {
			return nil, errors.New("job name is required for a lock")
		}
		return &RedisLock{store: store, key: store.LockKey("cron:" + job), ttl: ttl}, nil
	}
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return won, nil
}

// Release is a no-op unless this instance still holds the token.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return nil
	}
	if _, err := l.store.DelIfValue(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
