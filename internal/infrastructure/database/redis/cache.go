package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// Cache stores JSON values under prefixed keys.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonSerializer struct{}

func (jsonSerializer) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type redisCache struct {
	client     *Client
	logger     logging.Logger
	name       string
	defaultTTL time.Duration
	jitter     float64
	serializer Serializer
	metrics    *prometheus.AppMetrics
}

type CacheOption func(*redisCache)

// WithCacheName labels the cache in metrics.
func WithCacheName(name string) CacheOption {
	return func(c *redisCache) { c.name = name }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// WithTTLJitter spreads expirations by ±fraction of the TTL.
func WithTTLJitter(fraction float64) CacheOption {
	return func(c *redisCache) {
		if fraction >= 0 && fraction < 1 {
			c.jitter = fraction
		}
	}
}

func WithCacheMetrics(m *prometheus.AppMetrics) CacheOption {
	return func(c *redisCache) { c.metrics = m }
}

func NewRedisCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &redisCache{
		client:     client,
		logger:     log,
		name:       "default",
		defaultTTL: 15 * time.Minute,
		jitter:     0.1,
		serializer: jsonSerializer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 || c.jitter == 0 {
		return ttl
	}
	delta := float64(ttl) * c.jitter * (rand.Float64()*2 - 1)
	return ttl + time.Duration(delta)
}

// Get decodes the value at key into dest.  A missing key yields ErrCacheMiss,
// which is a not-found error.
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.client.Key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		prometheus.RecordCacheAccess(c.metrics, c.name, false)
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	prometheus.RecordCacheAccess(c.metrics, c.name, true)
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := c.client.Set(ctx, c.client.Key(key), data, c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write cache")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.client.Key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.client.Key(key)).Result()
	return n > 0, err
}

func (c *redisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.client.PTTL(ctx, c.client.Key(key)).Result()
}

//Personal.AI order the ending
