package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/pkg/errors"
)

const testLockKey = "sessionsync:lock:mutex:test-lock"

func TestMutex_LockUnlock(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock := factory.NewMutex("test-lock", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))
	assert.True(t, mr.Exists(testLockKey))

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Second)

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists(testLockKey))
}

func TestMutex_Contention(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock1 := factory.NewMutex("test-lock", WithRetryCount(1), WithRetryDelay(10*time.Millisecond))
	lock2 := factory.NewMutex("test-lock", WithRetryCount(2), WithRetryDelay(10*time.Millisecond))

	require.NoError(t, lock1.Lock(ctx))

	ok, err := lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	err = lock2.Lock(ctx)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.True(t, errors.IsConflict(err))

	require.NoError(t, lock1.Unlock(ctx))
	ok, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMutex_UnlockNotHeld(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	owner := factory.NewMutex("test-lock")
	other := factory.NewMutex("test-lock")
	require.NoError(t, owner.Lock(ctx))

	assert.ErrorIs(t, other.Unlock(ctx), ErrLockNotHeld)
	ok, err := other.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, owner.Unlock(ctx))
	assert.ErrorIs(t, owner.Unlock(ctx), ErrLockNotHeld)
}

func TestMutex_ExpiresAfterTTL(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock := factory.NewMutex("test-lock", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists(testLockKey))

	other := factory.NewMutex("test-lock")
	ok, err := other.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMutex_Extend(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock := factory.NewMutex("test-lock", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	ok, err := lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, mr.TTL(testLockKey), 30*time.Second)
}

func TestMutex_WatchdogStopsOnUnlock(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock := factory.NewMutex("test-lock",
		WithLockTTL(time.Second),
		WithWatchdog(true),
		WithWatchdogInterval(10*time.Millisecond),
	)
	require.NoError(t, lock.Lock(ctx))
	time.Sleep(50 * time.Millisecond)
	assert.True(t, mr.Exists(testLockKey))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists(testLockKey))
}

func TestMutex_ClosedClient(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)
	require.NoError(t, client.Close())

	_, err := factory.NewMutex("test-lock").TryLock(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

//Personal.AI order the ending
