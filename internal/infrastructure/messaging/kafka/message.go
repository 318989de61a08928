package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/SessionSync/pkg/errors"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message.  A non-nil error triggers
// the consumer's retry policy.
type MessageHandler func(ctx context.Context, msg *Message) error

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func toKafkaMessage(msg *ProducerMessage) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

// SecurityConfig carries the optional TLS and SASL settings shared by the
// producer and the consumer.
type SecurityConfig struct {
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
	TLSEnabled    bool
	TLSCAFile     string
}

func (s SecurityConfig) tlsConfig() (*tls.Config, error) {
	if !s.TLSEnabled {
		return nil, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.TLSCAFile != "" {
		pem, err := os.ReadFile(s.TLSCAFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read kafka CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New(errors.ErrCodeValidation, "kafka CA file holds no certificates")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func (s SecurityConfig) saslMechanism() (sasl.Mechanism, error) {
	switch s.SASLMechanism {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: s.SASLUsername, Password: s.SASLPassword}, nil
	case "SCRAM-SHA-256":
		m, err := scram.Mechanism(scram.SHA256, s.SASLUsername, s.SASLPassword)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create SASL mechanism")
		}
		return m, nil
	case "SCRAM-SHA-512":
		m, err := scram.Mechanism(scram.SHA512, s.SASLUsername, s.SASLPassword)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create SASL mechanism")
		}
		return m, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported SASL mechanism "+s.SASLMechanism)
	}
}

//Personal.AI order the ending
