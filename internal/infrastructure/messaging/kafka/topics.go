package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// Topic Constants
const (
	TopicAppointmentCreated       = appointment.EventCreated
	TopicAppointmentStatusChanged = appointment.EventStatusChanged
	TopicCalendarLinkBackfilled   = appointment.EventCalendarBackfilled
	TopicBackfillRequested        = "appointment.backfill.requested"
	TopicDeadLetter               = "dead_letter.appointment"
)

// SchemaVersion is stamped on every envelope this service writes.
const SchemaVersion = "v1"

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	AggregateID   string            `json:"aggregate_id,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// BackfillRequestedPayload is the body of a backfill command.
type BackfillRequestedPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// NewEventEnvelope wraps an arbitrary payload with a fresh event ID.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

// EnvelopeFromEvent wraps a domain event, keeping its ID and timestamp.
func EnvelopeFromEvent(event appointment.Event, source string) (*EventEnvelope, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event")
	}
	return &EventEnvelope{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		Source:        source,
		AggregateID:   event.AggregateID(),
		Timestamp:     event.OccurredAt().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}

// ToMessage serializes the envelope.  The aggregate ID is the key so events
// of one appointment stay on one partition.
func (e *EventEnvelope) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	var key []byte
	if e.AggregateID != "" {
		key = []byte(e.AggregateID)
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       key,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic management
// ─────────────────────────────────────────────────────────────────────────────

// TopicConfig describes a topic to provision.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager provisions the service's topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if stderrors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create topic "+cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	return m.EnsureTopics(ctx, DefaultTopics())
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

const day = int64(24 * time.Hour / time.Millisecond)

func DefaultTopics() []TopicConfig {
	return []TopicConfig{
		{Name: TopicAppointmentCreated, NumPartitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: TopicAppointmentStatusChanged, NumPartitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: TopicCalendarLinkBackfilled, NumPartitions: 3, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: TopicBackfillRequested, NumPartitions: 1, ReplicationFactor: 3, RetentionMs: 1 * day},
		{Name: TopicDeadLetter, NumPartitions: 1, ReplicationFactor: 3, RetentionMs: 30 * day},
	}
}

//Personal.AI order the ending
