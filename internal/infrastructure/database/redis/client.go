// Package redis backs the backfill lease and the last-report cache.
package redis

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// DefaultKeyPrefix namespaces every key the service writes.
const DefaultKeyPrefix = "sessionsync:"

var (
	ErrClientClosed     = errors.New(errors.ErrCodeCacheError, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeCacheError, "redis connection failed")
)

// Client wraps a go-redis client with a closed guard and the key prefix.
type Client struct {
	rdb    redis.UniversalClient
	prefix string
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to a standalone Redis and verifies it with PING.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	client := NewClientWithRDB(rdb, cfg.KeyPrefix, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err).WithDetail(cfg.Addr)
	}

	log.Info("Redis client connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return client, nil
}

// NewClientWithRDB wraps an existing client.  An empty prefix selects
// DefaultKeyPrefix.
func NewClientWithRDB(rdb redis.UniversalClient, prefix string, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Client{rdb: rdb, prefix: prefix, logger: log}
}

func applyDefaults(cfg *config.RedisConfig) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10 * runtime.GOMAXPROCS(0)
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = 2
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
}

// Key prepends the namespace prefix to key.
func (c *Client) Key(key string) string {
	return c.prefix + key
}

func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	return c.rdb.Ping(ctx).Err()
}

// Name identifies the client in health reports.
func (c *Client) Name() string { return "redis" }

// Check implements the readiness contract of the health endpoints.
func (c *Client) Check(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis health check failed")
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("Closed Redis client")
	} else {
		c.logger.Error("Failed to close Redis client", logging.Err(err))
	}
	return err
}

func (c *Client) GetUnderlyingClient() redis.UniversalClient {
	return c.rdb
}

// Commands.  Keys are passed through unchanged; callers prefix with Key.

func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	if c.isClosed() {
		return errorStringCmd(ErrClientClosed)
	}
	return c.rdb.Get(ctx, key)
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.isClosed() {
		return errorStatusCmd(ErrClientClosed)
	}
	return c.rdb.Set(ctx, key, value, expiration)
}

func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if c.isClosed() {
		return errorBoolCmd(ErrClientClosed)
	}
	return c.rdb.SetNX(ctx, key, value, expiration)
}

func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if c.isClosed() {
		return errorIntCmd(ErrClientClosed)
	}
	return c.rdb.Del(ctx, keys...)
}

func (c *Client) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	if c.isClosed() {
		return errorIntCmd(ErrClientClosed)
	}
	return c.rdb.Exists(ctx, keys...)
}

func (c *Client) PTTL(ctx context.Context, key string) *redis.DurationCmd {
	if c.isClosed() {
		return errorDurationCmd(ErrClientClosed)
	}
	return c.rdb.PTTL(ctx, key)
}

// RunScript evaluates s, loading it on a NOSCRIPT miss.
func (c *Client) RunScript(ctx context.Context, s *redis.Script, keys []string, args ...interface{}) *redis.Cmd {
	if c.isClosed() {
		cmd := redis.NewCmd(ctx)
		cmd.SetErr(ErrClientClosed)
		return cmd
	}
	return s.Run(ctx, c.rdb, keys, args...)
}

// Helpers

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func errorStringCmd(err error) *redis.StringCmd {
	cmd := redis.NewStringCmd(context.Background())
	cmd.SetErr(err)
	return cmd
}

func errorStatusCmd(err error) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(context.Background())
	cmd.SetErr(err)
	return cmd
}

func errorIntCmd(err error) *redis.IntCmd {
	cmd := redis.NewIntCmd(context.Background())
	cmd.SetErr(err)
	return cmd
}

func errorBoolCmd(err error) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(context.Background())
	cmd.SetErr(err)
	return cmd
}

func errorDurationCmd(err error) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(context.Background(), time.Millisecond)
	cmd.SetErr(err)
	return cmd
}

//Personal.AI order the ending
