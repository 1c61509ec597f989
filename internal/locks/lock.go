package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLockTTL  = 30 * time.Minute
	defaultLeaseTTL = 10 * time.Minute
)

// Lock coordinates exclusive batch runs across processes.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore defines the operations used by the Redis-backed primitives.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock implements Lock using Redis SETNX + TTL.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	owner string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owner = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	owner := l.owner
	l.owner = ""
	l.mu.Unlock()
	if owner == "" {
		return nil
	}
	if _, err := l.client.DelIfValue(ctx, l.key, owner); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}

// KeyFunc maps an entity id to its lease key.
type KeyFunc func(id string) string

// Leases hands out short-lived per-entity claims so two overlapping batches never work the same row.
type Leases struct {
	client redisStore
	key    KeyFunc
	ttl    time.Duration
}

// NewLeases constructs a lease manager.
func NewLeases(client redisStore, key KeyFunc, ttl time.Duration) (*Leases, error) {
	if client == nil {
		return nil, errors.New("redis client required for leases")
	}
	if key == nil {
		return nil, errors.New("lease key func is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &Leases{client: client, key: key, ttl: ttl}, nil
}

// Claim takes the lease for id. When ok is false another holder owns it and release is a no-op.
func (l *Leases) Claim(ctx context.Context, id string) (release func(context.Context) error, ok bool, err error) {
	key := l.key(id)
	owner := uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return noopRelease, false, fmt.Errorf("claim lease %s: %w", key, err)
	}
	if !ok {
		return noopRelease, false, nil
	}
	return func(ctx context.Context) error {
		if _, err := l.client.DelIfValue(ctx, key, owner); err != nil {
			return fmt.Errorf("release lease %s: %w", key, err)
		}
		return nil
	}, true, nil
}

func noopRelease(context.Context) error { return nil }
