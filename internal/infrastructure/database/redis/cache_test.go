package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/application/backfill"
	"github.com/turtacn/SessionSync/pkg/errors"
)

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCache_SetGet(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "thing", cachedThing{Name: "a", Count: 2}, time.Minute))
	assert.True(t, mr.Exists("sessionsync:thing"))

	var got cachedThing
	require.NoError(t, cache.Get(ctx, "thing", &got))
	assert.Equal(t, cachedThing{Name: "a", Count: 2}, got)

	ok, err := cache.Exists(ctx, "thing")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_MissIsNotFound(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewRedisCache(client, nil)

	var got cachedThing
	err := cache.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, errors.IsNotFound(err))
}

func TestCache_CorruptValue(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil)
	require.NoError(t, mr.Set("sessionsync:bad", "{not json"))

	var got cachedThing
	err := cache.Get(context.Background(), "bad", &got)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestCache_DefaultTTLWithJitter(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewRedisCache(client, nil, WithDefaultTTL(time.Hour), WithTTLJitter(0.1))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "thing", cachedThing{}, 0))
	ttl, err := cache.TTL(ctx, "thing")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ttl, 54*time.Minute)
	assert.LessOrEqual(t, ttl, 66*time.Minute)
}

func TestCache_Delete(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, cache.Delete(ctx, "a", "b"))
	require.NoError(t, cache.Delete(ctx))

	ok, err := cache.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_BackfillReportRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewRedisCache(client, nil, WithCacheName("backfill"))
	ctx := context.Background()

	started := time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC)
	report := &backfill.Report{
		Trigger:    backfill.TriggerManual,
		Scanned:    4,
		Eligible:   2,
		Fixed:      1,
		Failures:   []backfill.Failure{{ID: "a-2", Err: errors.TimezoneResolution("Mars/Base", nil)}},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
	require.NoError(t, cache.Set(ctx, backfill.LastReportKey, report, time.Hour))

	var got backfill.Report
	require.NoError(t, cache.Get(ctx, backfill.LastReportKey, &got))
	assert.Equal(t, 1, got.Fixed)
	assert.Equal(t, 2*time.Second, got.Duration())
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "a-2", got.Failures[0].ID)
	assert.True(t, errors.IsTimezoneResolution(got.Failures[0].Err))
}

func TestCache_SatisfiesReportCache(t *testing.T) {
	client, _ := newTestClient(t)
	var _ backfill.ReportCache = NewRedisCache(client, nil)
	var _ backfill.Lease = NewLockFactory(client, nil).NewMutex("backfill")
}

//Personal.AI order the ending
