package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/testutil"
	"github.com/turtacn/SessionSync/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	log := testutil.NewMockLogger()

	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, log)
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, log.HasMessage("info", "Redis client connected"))
	assert.Equal(t, "redis", client.Name())
	assert.NoError(t, client.Check(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(config.RedisConfig{Addr: addr, DialTimeout: 100 * time.Millisecond}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
	assert.Contains(t, err.Error(), addr)
}

func TestClient_KeyPrefix(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, client.Key("k"), "v", 0).Err())
	assert.True(t, mr.Exists("sessionsync:k"))

	custom := NewClientWithRDB(client.GetUnderlyingClient(), "other:", nil)
	assert.Equal(t, "other:k", custom.Key("k"))
}

func TestClient_CommandsAfterClose(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	assert.ErrorIs(t, client.Ping(ctx), ErrClientClosed)
	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.SetNX(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.PTTL(ctx, "k").Err(), ErrClientClosed)
	assert.Error(t, client.Check(ctx))
}

func TestClient_CheckFailsWhenServerGone(t *testing.T) {
	client, mr := newTestClient(t)
	mr.Close()

	err := client.Check(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

//Personal.AI order the ending
