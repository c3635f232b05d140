package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockFailed lock acquisition failed within the retry budget
	ErrLockFailed = errors.New("failed to acquire lock")
	// ErrLockNotHeld lock is not held
	ErrLockNotHeld = errors.New("lock not held")
)

// unlockScript compare-and-delete so only the owner can release a key
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// extendScript compare-and-expire so only the owner can extend the lease
const extendScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// MultiLock time-bounded exclusive lease over a set of resource keys.
// Keys are sorted and deduplicated so two locks over overlapping sets
// always contend on the first shared key instead of deadlocking.
type MultiLock struct {
	client   *redis.Client
	keys     []string
	token    string
	ttl      time.Duration
	acquired bool
}

// NewMultiLock creates a lock over the given resource keys
func NewMultiLock(client *redis.Client, keys []string, ttl time.Duration) *MultiLock {
	deduped := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, key)
	}
	sort.Strings(deduped)

	return &MultiLock{
		client: client,
		keys:   deduped,
		token:  newToken(),
		ttl:    ttl,
	}
}

// newToken random owner token; release is a no-op for non-owners
func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}

// Keys returns the normalized key set
func (l *MultiLock) Keys() []string {
	return l.keys
}

// tryAcquire attempts one SetNX pass over every key. Partially acquired
// keys are released before reporting failure.
func (l *MultiLock) tryAcquire(ctx context.Context) error {
	for i, key := range l.keys {
		ok, err := l.client.SetNX(ctx, key, l.token, l.ttl).Result()
		if err == nil && ok {
			continue
		}

		l.releaseKeys(ctx, l.keys[:i])
		if err != nil {
			return err
		}
		return ErrLockFailed
	}

	l.acquired = true
	return nil
}

// Acquire acquires the lease on every key, retrying with a fixed backoff.
// Returns ErrLockFailed once the retry budget is exhausted.
func (l *MultiLock) Acquire(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	if len(l.keys) == 0 {
		l.acquired = true
		return nil
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := l.tryAcquire(ctx)
		if err == nil {
			return nil
		}
		if err != ErrLockFailed {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return ErrLockFailed
}

// Release releases every key still owned by this lock. Idempotent: keys
// already expired or released are skipped without error.
func (l *MultiLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}
	l.acquired = false
	return l.releaseKeys(ctx, l.keys)
}

func (l *MultiLock) releaseKeys(ctx context.Context, keys []string) error {
	var firstErr error
	for _, key := range keys {
		if _, err := l.client.Eval(ctx, unlockScript, []string{key}, l.token).Int(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Extend extends the lease on every key
func (l *MultiLock) Extend(ctx context.Context, ttl time.Duration) error {
	for _, key := range l.keys {
		result, err := l.client.Eval(ctx, extendScript, []string{key}, l.token, ttl.Milliseconds()).Int()
		if err != nil {
			return err
		}
		if result == 0 {
			return ErrLockNotHeld
		}
	}
	return nil
}

// IsHeld checks every key is still owned by this lock
func (l *MultiLock) IsHeld(ctx context.Context) (bool, error) {
	for _, key := range l.keys {
		value, err := l.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				return false, nil
			}
			return false, err
		}
		if value != l.token {
			return false, nil
		}
	}
	return true, nil
}
