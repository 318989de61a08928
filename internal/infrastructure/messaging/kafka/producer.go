package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodeMessagingError, "producer closed")
)

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	Brokers         []string
	ClientID        string
	RequiredAcks    int // -1 all, 0 none, 1 leader
	MaxRetries      int
	BatchSize       int
	BatchTimeout    time.Duration
	MaxMessageBytes int
	WriteTimeout    time.Duration
	Security        SecurityConfig
}

// ProducerConfigFrom maps the kafka config section onto a ProducerConfig.
func ProducerConfigFrom(cfg config.KafkaConfig) ProducerConfig {
	return ProducerConfig{
		Brokers:      cfg.Brokers,
		ClientID:     cfg.ClientID,
		RequiredAcks: cfg.RequiredAcks,
		MaxRetries:   cfg.MaxRetries,
		BatchSize:    cfg.BatchSize,
		WriteTimeout: cfg.WriteTimeout,
		Security:     securityFrom(cfg),
	}
}

func securityFrom(cfg config.KafkaConfig) SecurityConfig {
	return SecurityConfig{
		SASLMechanism: cfg.SASLMechanism,
		SASLUsername:  cfg.SASLUsername,
		SASLPassword:  cfg.SASLPassword,
		TLSEnabled:    cfg.TLSEnabled,
		TLSCAFile:     cfg.TLSCAFile,
	}
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// Producer writes messages to Kafka.
type Producer struct {
	writer  WriterInterface
	config  ProducerConfig
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	closed  atomic.Bool
	sent    atomic.Int64
}

// ProducerOption configures a Producer.
type ProducerOption func(*Producer)

// WithProducerMetrics records publish outcomes per topic.
func WithProducerMetrics(m *prometheus.AppMetrics) ProducerOption {
	return func(p *Producer) { p.metrics = m }
}

// WithWriter replaces the kafka.Writer.
func WithWriter(w WriterInterface) ProducerOption {
	return func(p *Producer) { p.writer = w }
}

// NewProducer creates a new Producer.  Topics are set per message.
func NewProducer(cfg ProducerConfig, logger logging.Logger, opts ...ProducerOption) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	// Defaults
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 1024 * 1024
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	p := &Producer{config: cfg, logger: logger.Named("kafka.producer")}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		w, err := newWriter(cfg)
		if err != nil {
			return nil, err
		}
		p.writer = w
	}
	return p, nil
}

func newWriter(cfg ProducerConfig) (*kafka.Writer, error) {
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	mech, err := cfg.Security.saslMechanism()
	if err != nil {
		return nil, err
	}

	var acks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case 0:
		acks = kafka.RequireNone
	case 1:
		acks = kafka.RequireOne
	default:
		acks = kafka.RequireAll
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            cfg.MaxRetries + 1,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           acks,
		AllowAutoTopicCreation: false,
		Transport: &kafka.Transport{
			DialTimeout: 10 * time.Second,
			ClientID:    cfg.ClientID,
			TLS:         tlsCfg,
			SASL:        mech,
		},
	}, nil
}

// Publish publishes a single message.
func (p *Producer) Publish(ctx context.Context, msg *ProducerMessage) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	if len(msg.Value) == 0 {
		return errors.New(errors.ErrCodeValidation, "value required")
	}
	if len(msg.Value) > p.config.MaxMessageBytes {
		return errors.New(errors.ErrCodeValidation, "message too large")
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	prometheus.RecordEventPublish(p.metrics, msg.Topic, err)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "publish failed").WithDetail(msg.Topic)
	}
	p.sent.Add(1)

	p.logger.Debug("Message published",
		logging.String("topic", msg.Topic),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.sent.Load()))
	return err
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	switch cfg.RequiredAcks {
	case -1, 0, 1:
	default:
		return errors.New(errors.ErrCodeValidation, "RequiredAcks must be -1, 0 or 1")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// EventPublisher
// ─────────────────────────────────────────────────────────────────────────────

// messagePublisher is the slice of *Producer the adapters need.
type messagePublisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// EventPublisher publishes appointment events to the topic named by their
// event type.
type EventPublisher struct {
	producer messagePublisher
	source   string
}

var _ appointment.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher returns an appointment.EventPublisher over producer.
// source names the emitting service in every envelope.
func NewEventPublisher(producer *Producer, source string) *EventPublisher {
	return &EventPublisher{producer: producer, source: source}
}

func (p *EventPublisher) Publish(ctx context.Context, event appointment.Event) error {
	env, err := EnvelopeFromEvent(event, p.source)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(event.EventType())
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

//Personal.AI order the ending
