package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// DistributedLock is a named mutual-exclusion lease with a TTL.
type DistributedLock interface {
	Lock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

// LockFactory creates locks bound to one client.
type LockFactory interface {
	NewMutex(name string, opts ...LockOption) DistributedLock
}

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

// WithWatchdog keeps extending a held lock until Unlock.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

func WithWatchdogInterval(interval time.Duration) LockOption {
	return func(c *lockConfig) { c.watchdogInterval = interval }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

type redisLockFactory struct {
	client *Client
	log    logging.Logger
}

func NewLockFactory(client *Client, log logging.Logger) LockFactory {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &redisLockFactory{client: client, log: log}
}

func (f *redisLockFactory) NewMutex(name string, opts ...LockOption) DistributedLock {
	cfg := lockConfig{
		ttl:        30 * time.Second,
		retryDelay: 100 * time.Millisecond,
		retryCount: 30,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.watchdogInterval <= 0 {
		cfg.watchdogInterval = cfg.ttl / 3
	}

	return &redisMutex{
		client: f.client,
		key:    f.client.Key(buildLockKey("mutex", name)),
		value:  generateLockValue(),
		config: cfg,
		logger: f.log.With(logging.String("lock", name)),
	}
}

// Mutex Implementation

type redisMutex struct {
	client         *Client
	key            string
	value          string
	config         lockConfig
	logger         logging.Logger
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

var mutexUnlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var mutexExtendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

func (m *redisMutex) Lock(ctx context.Context) error {
	for i := 0; i < m.config.retryCount; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.config.retryDelay):
		}
	}
	return ErrLockNotAcquired
}

func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key, m.value, m.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	if ok && m.config.watchdogEnabled {
		m.startWatchdog()
	}
	return ok, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	n, err := m.client.RunScript(ctx, mutexUnlockScript, []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (m *redisMutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := m.client.RunScript(ctx, mutexExtendScript, []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to extend lock")
	}
	return n == 1, nil
}

func (m *redisMutex) TTL(ctx context.Context) (time.Duration, error) {
	return m.client.PTTL(ctx, m.key).Result()
}

func (m *redisMutex) startWatchdog() {
	if m.watchdogCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.watchdogCancel = cancel
	m.watchdogDone = make(chan struct{})
	go runWatchdog(ctx, m.Extend, m.config.watchdogInterval, m.config.ttl, m.logger, m.watchdogDone)
}

func (m *redisMutex) stopWatchdog() {
	if m.watchdogCancel != nil {
		m.watchdogCancel()
		<-m.watchdogDone
		m.watchdogCancel = nil
	}
}

// Helpers

func generateLockValue() string {
	return uuid.New().String()
}

func buildLockKey(lockType, name string) string {
	return "lock:" + lockType + ":" + name
}

func runWatchdog(ctx context.Context, extendFn func(context.Context, time.Duration) (bool, error), interval, ttl time.Duration, log logging.Logger, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extendFn(ctx, ttl)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("Watchdog failed to extend lock", logging.Err(err))
				}
				return
			}
			if !ok {
				log.Warn("Watchdog lost lock")
				return
			}
		}
	}
}

//Personal.AI order the ending
