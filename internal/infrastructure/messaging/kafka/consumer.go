package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topics            []string
	AutoOffsetReset   string // "earliest" | "latest"
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxWait           time.Duration
	FetchMaxBytes     int
	Security          SecurityConfig
	RetryConfig       RetryConfig
}

// ConsumerConfigFrom maps the kafka config section onto a ConsumerConfig
// for topics.
func ConsumerConfigFrom(cfg config.KafkaConfig, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topics:   topics,
		Security: securityFrom(cfg),
		RetryConfig: RetryConfig{
			MaxRetries:      cfg.MaxRetries,
			DeadLetterTopic: cfg.DeadLetterTopic,
		},
	}
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads from a consumer group and dispatches by topic.  Offsets are
// committed after the handler finishes, successfully or not.
type Consumer struct {
	reader ReaderInterface
	config ConsumerConfig
	logger logging.Logger

	handlers map[string]MessageHandler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	deadLetter     messagePublisher
	ownsDeadLetter bool
	metrics        *prometheus.AppMetrics

	consumed     atomic.Int64
	failed       atomic.Int64
	deadLettered atomic.Int64
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithConsumerMetrics records handler latency per topic.
func WithConsumerMetrics(m *prometheus.AppMetrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// WithReader replaces the kafka.Reader.
func WithReader(r ReaderInterface) ConsumerOption {
	return func(c *Consumer) { c.reader = r }
}

// WithDeadLetterProducer routes exhausted messages through p instead of a
// producer built from the consumer's brokers.  The caller keeps ownership.
func WithDeadLetterProducer(p *Producer) ConsumerOption {
	return func(c *Consumer) { c.deadLetter = p }
}

func withDeadLetter(p messagePublisher) ConsumerOption {
	return func(c *Consumer) { c.deadLetter = p }
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	// Defaults
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 10 * time.Second
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = 10 * 1024 * 1024
	}
	if cfg.RetryConfig.RetryBackoff == 0 {
		cfg.RetryConfig.RetryBackoff = time.Second
	}
	if cfg.RetryConfig.MaxRetryBackoff == 0 {
		cfg.RetryConfig.MaxRetryBackoff = 30 * time.Second
	}

	c := &Consumer{
		config:   cfg,
		logger:   logger.Named("kafka.consumer"),
		handlers: make(map[string]MessageHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.reader == nil {
		r, err := newReader(cfg)
		if err != nil {
			return nil, err
		}
		c.reader = r
	}
	if c.deadLetter == nil && cfg.RetryConfig.DeadLetterTopic != "" {
		p, err := NewProducer(ProducerConfig{Brokers: cfg.Brokers, RequiredAcks: -1, Security: cfg.Security}, logger)
		if err != nil {
			return nil, err
		}
		c.deadLetter = p
		c.ownsDeadLetter = true
	}
	return c, nil
}

func newReader(cfg ConsumerConfig) (*kafka.Reader, error) {
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	mech, err := cfg.Security.saslMechanism()
	if err != nil {
		return nil, err
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		MaxBytes:          cfg.FetchMaxBytes,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       startOffset,
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			TLS:           tlsCfg,
			SASLMechanism: mech,
		},
	}), nil
}

// Subscribe registers handler for topic.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("Subscribed to topic", logging.String("topic", topic))
}

// Start runs the consume loop in the background until ctx ends or Close.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Any("topics", c.config.Topics))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.consumed.Add(1)

		msg := fromKafkaMessage(m)
		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("No handler for topic", logging.String("topic", m.Topic))
		} else {
			start := time.Now()
			if err := c.processMessage(ctx, msg, handler); err != nil {
				c.failed.Add(1)
			}
			prometheus.RecordMessageProcessed(c.metrics, m.Topic, time.Since(start))
		}

		if ctx.Err() != nil {
			// Leave the offset uncommitted so the message is redelivered.
			return
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("CommitMessages failed", logging.Err(err))
		}
	}
}

// processMessage retries with exponential backoff, then dead-letters.  The
// returned error is the handler's last error.
func (c *Consumer) processMessage(ctx context.Context, msg *Message, handler MessageHandler) error {
	err := handler(ctx, msg)
	if err == nil {
		return nil
	}

	backoff := c.config.RetryConfig.RetryBackoff
	for i := 0; i < c.config.RetryConfig.MaxRetries; i++ {
		c.logger.Warn("Message handler failed, retrying",
			logging.String("topic", msg.Topic),
			logging.Int("attempt", i+1),
			logging.Err(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err = handler(ctx, msg); err == nil {
			return nil
		}
		backoff *= 2
		if backoff > c.config.RetryConfig.MaxRetryBackoff {
			backoff = c.config.RetryConfig.MaxRetryBackoff
		}
	}

	c.logger.Error("Message processing failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))
	prometheus.RecordError(c.metrics, "kafka", string(errors.GetCode(err)))

	if c.deadLetter != nil && c.config.RetryConfig.DeadLetterTopic != "" {
		headers := make(map[string]string, len(msg.Headers)+2)
		for k, v := range msg.Headers {
			headers[k] = v
		}
		headers["original_topic"] = msg.Topic
		headers["error_message"] = err.Error()

		dl := &ProducerMessage{
			Topic:   c.config.RetryConfig.DeadLetterTopic,
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: headers,
		}
		if dlErr := c.deadLetter.Publish(ctx, dl); dlErr != nil {
			c.logger.Error("Failed to send to dead letter queue", logging.Err(dlErr))
		} else {
			c.deadLettered.Add(1)
		}
	}
	return err
}

// Close stops the loop and releases the reader.  It is safe to call twice.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.cancel()
	c.wg.Wait()

	err := c.reader.Close()
	if c.ownsDeadLetter {
		if closer, ok := c.deadLetter.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	c.logger.Info("Kafka consumer closed",
		logging.Int64("consumed", c.consumed.Load()),
		logging.Int64("failed", c.failed.Load()),
		logging.Int64("dead_lettered", c.deadLettered.Load()))
	return err
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "GroupID required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid AutoOffsetReset")
	}
	if cfg.RetryConfig.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
