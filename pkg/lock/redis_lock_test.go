package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		s.Close()
	})

	return client
}

func TestMultiLock(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	t.Run("AcquireRelease", func(t *testing.T) {
		l := NewMultiLock(client, []string{"lock:sku:1", "lock:sku:2"}, time.Minute)

		err := l.Acquire(ctx, 1, 10*time.Millisecond)
		assert.NoError(t, err)

		held, err := l.IsHeld(ctx)
		assert.NoError(t, err)
		assert.True(t, held)

		err = l.Release(ctx)
		assert.NoError(t, err)

		held, err = l.IsHeld(ctx)
		assert.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("KeysSortedAndDeduplicated", func(t *testing.T) {
		l := NewMultiLock(client, []string{"lock:sku:7", "lock:sku:3", "lock:sku:7"}, time.Minute)
		assert.Equal(t, []string{"lock:sku:3", "lock:sku:7"}, l.Keys())
	})

	t.Run("OverlappingSetsConflict", func(t *testing.T) {
		l1 := NewMultiLock(client, []string{"lock:sku:10", "lock:sku:11"}, time.Minute)
		l2 := NewMultiLock(client, []string{"lock:sku:11", "lock:sku:12"}, time.Minute)

		require.NoError(t, l1.Acquire(ctx, 1, 10*time.Millisecond))

		err := l2.Acquire(ctx, 2, 10*time.Millisecond)
		assert.Equal(t, ErrLockFailed, err)

		require.NoError(t, l1.Release(ctx))

		err = l2.Acquire(ctx, 1, 10*time.Millisecond)
		assert.NoError(t, err)
		require.NoError(t, l2.Release(ctx))
	})

	t.Run("PartialAcquireReleasesHeldKeys", func(t *testing.T) {
		blocker := NewMultiLock(client, []string{"lock:sku:21"}, time.Minute)
		require.NoError(t, blocker.Acquire(ctx, 1, 10*time.Millisecond))

		// l needs 20 and 21; 21 is taken, so 20 must be released again.
		l := NewMultiLock(client, []string{"lock:sku:20", "lock:sku:21"}, time.Minute)
		err := l.Acquire(ctx, 1, 10*time.Millisecond)
		assert.Equal(t, ErrLockFailed, err)

		free := NewMultiLock(client, []string{"lock:sku:20"}, time.Minute)
		err = free.Acquire(ctx, 1, 10*time.Millisecond)
		assert.NoError(t, err, "first key should not stay locked after a failed acquire")

		require.NoError(t, free.Release(ctx))
		require.NoError(t, blocker.Release(ctx))
	})

	t.Run("ReleaseIsIdempotent", func(t *testing.T) {
		l := NewMultiLock(client, []string{"lock:sku:30"}, time.Minute)
		require.NoError(t, l.Acquire(ctx, 1, 10*time.Millisecond))

		assert.NoError(t, l.Release(ctx))
		assert.NoError(t, l.Release(ctx))
	})

	t.Run("ReleaseIgnoresForeignOwner", func(t *testing.T) {
		l1 := NewMultiLock(client, []string{"lock:sku:40"}, time.Minute)
		l2 := NewMultiLock(client, []string{"lock:sku:40"}, time.Minute)

		require.NoError(t, l1.Acquire(ctx, 1, 10*time.Millisecond))

		// l2 never acquired, releasing it must not steal l1's lease.
		assert.NoError(t, l2.Release(ctx))

		held, err := l1.IsHeld(ctx)
		assert.NoError(t, err)
		assert.True(t, held)

		require.NoError(t, l1.Release(ctx))
	})

	t.Run("RetriesUntilBudgetExhausted", func(t *testing.T) {
		l1 := NewMultiLock(client, []string{"lock:sku:50"}, time.Minute)
		l2 := NewMultiLock(client, []string{"lock:sku:50"}, time.Minute)

		require.NoError(t, l1.Acquire(ctx, 1, 10*time.Millisecond))

		start := time.Now()
		err := l2.Acquire(ctx, 3, 20*time.Millisecond)
		assert.Equal(t, ErrLockFailed, err)
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

		require.NoError(t, l1.Release(ctx))
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		l1 := NewMultiLock(client, []string{"lock:sku:60"}, time.Minute)
		l2 := NewMultiLock(client, []string{"lock:sku:60"}, time.Minute)

		require.NoError(t, l1.Acquire(ctx, 1, 10*time.Millisecond))

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		err := l2.Acquire(cancelCtx, 3, 50*time.Millisecond)
		assert.Equal(t, context.Canceled, err)

		require.NoError(t, l1.Release(ctx))
	})

	t.Run("Extend", func(t *testing.T) {
		l := NewMultiLock(client, []string{"lock:sku:70"}, time.Minute)
		require.NoError(t, l.Acquire(ctx, 1, 10*time.Millisecond))

		assert.NoError(t, l.Extend(ctx, 2*time.Minute))

		require.NoError(t, l.Release(ctx))
		assert.Equal(t, ErrLockNotHeld, l.Extend(ctx, time.Minute))
	})

	t.Run("EmptyKeySet", func(t *testing.T) {
		l := NewMultiLock(client, nil, time.Minute)
		assert.NoError(t, l.Acquire(ctx, 1, 10*time.Millisecond))
		assert.NoError(t, l.Release(ctx))
	})
}

func TestRedisCoordinator(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	coordinator := NewRedisCoordinator(client, 2, 10*time.Millisecond)

	lease, err := coordinator.Acquire(ctx, []string{"lock:sku:100", "lock:sku:101"}, time.Minute)
	require.NoError(t, err)

	_, err = coordinator.Acquire(ctx, []string{"lock:sku:101"}, time.Minute)
	assert.Equal(t, ErrLockFailed, err)

	require.NoError(t, lease.Release(ctx))

	lease2, err := coordinator.Acquire(ctx, []string{"lock:sku:101"}, time.Minute)
	assert.NoError(t, err)
	require.NoError(t, lease2.Release(ctx))
}
