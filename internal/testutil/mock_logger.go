// Package testutil provides common test utilities for SessionSync.
package testutil

import (
	"sync"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry so tests can
// assert on what a component logged.  Children created with With or Named
// share the parent's record.
type MockLogger struct {
	rec    *record
	name   string
	fields []logging.Field
}

type record struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage represents a single log entry captured by MockLogger.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field and whether it was present.
func (m LogMessage) Field(key string) (interface{}, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// NewMockLogger creates a new MockLogger instance.
func NewMockLogger() *MockLogger {
	return &MockLogger{rec: &record{}}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	m.rec.mu.Lock()
	defer m.rec.mu.Unlock()
	m.rec.messages = append(m.rec.messages, LogMessage{
		Level:   level,
		Logger:  m.name,
		Message: msg,
		Fields:  all,
	})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	child := append(append([]logging.Field{}, m.fields...), fields...)
	return &MockLogger{rec: m.rec, name: m.name, fields: child}
}

func (m *MockLogger) Named(name string) logging.Logger {
	full := name
	if m.name != "" {
		full = m.name + "." + name
	}
	return &MockLogger{rec: m.rec, name: full, fields: m.fields}
}

// GetMessages returns a copy of all logged messages.
func (m *MockLogger) GetMessages() []LogMessage {
	m.rec.mu.Lock()
	defer m.rec.mu.Unlock()
	result := make([]LogMessage, len(m.rec.messages))
	copy(result, m.rec.messages)
	return result
}

// Clear removes all logged messages.
func (m *MockLogger) Clear() {
	m.rec.mu.Lock()
	defer m.rec.mu.Unlock()
	m.rec.messages = m.rec.messages[:0]
}

// HasMessage checks if a message with the given level and content was logged.
func (m *MockLogger) HasMessage(level, msg string) bool {
	_, ok := m.Find(level, msg)
	return ok
}

// Find returns the first entry with the given level and message.
func (m *MockLogger) Find(level, msg string) (LogMessage, bool) {
	m.rec.mu.Lock()
	defer m.rec.mu.Unlock()
	for _, logged := range m.rec.messages {
		if logged.Level == level && logged.Message == msg {
			return logged, true
		}
	}
	return LogMessage{}, false
}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.rec.mu.Lock()
	defer m.rec.mu.Unlock()
	n := 0
	for _, logged := range m.rec.messages {
		if logged.Level == level {
			n++
		}
	}
	return n
}

//Personal.AI order the ending
