package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease a held multi-resource lock. Release is idempotent and must be
// called on every exit path of the guarded section.
type Lease interface {
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

// Coordinator hands out exclusive leases over resource key sets
type Coordinator interface {
	Acquire(ctx context.Context, keys []string, ttl time.Duration) (Lease, error)
}

// RedisCoordinator Coordinator backed by Redis SetNX leases
type RedisCoordinator struct {
	client     *redis.Client
	maxRetries int
	retryDelay time.Duration
}

// NewRedisCoordinator creates a coordinator with the given retry budget
func NewRedisCoordinator(client *redis.Client, maxRetries int, retryDelay time.Duration) *RedisCoordinator {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if retryDelay <= 0 {
		retryDelay = 200 * time.Millisecond
	}
	return &RedisCoordinator{
		client:     client,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Acquire acquires a lease over every key or fails with ErrLockFailed
func (c *RedisCoordinator) Acquire(ctx context.Context, keys []string, ttl time.Duration) (Lease, error) {
	l := NewMultiLock(c.client, keys, ttl)
	if err := l.Acquire(ctx, c.maxRetries, c.retryDelay); err != nil {
		return nil, err
	}
	return l, nil
}
