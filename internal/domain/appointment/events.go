package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event type names; they double as Kafka topic names.
const (
	EventCreated            = "appointment.created"
	EventStatusChanged      = "appointment.status_changed"
	EventCalendarBackfilled = "appointment.calendar_link.backfilled"
)

// BaseEvent provides common fields for appointment events.
type BaseEvent struct {
	ID        string    `json:"event_id"`
	Timestamp time.Time `json:"occurred_at"`
	AggID     string    `json:"aggregate_id"`
}

func newBaseEvent(aggID string, now time.Time) BaseEvent {
	return BaseEvent{ID: uuid.New().String(), Timestamp: now.UTC(), AggID: aggID}
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggID }

// Event is implemented by every appointment event.
type Event interface {
	EventID() string
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// CreatedEvent is emitted after a new appointment is stored.
type CreatedEvent struct {
	BaseEvent
	Date           string `json:"date"`
	Time           string `json:"time"`
	HostTimezone   string `json:"host_timezone"`
	ViewerTimezone string `json:"viewer_timezone"`
}

func NewCreatedEvent(a *Appointment, now time.Time) *CreatedEvent {
	return &CreatedEvent{
		BaseEvent:      newBaseEvent(a.ID, now),
		Date:           a.Date,
		Time:           a.Time,
		HostTimezone:   a.HostTimezone,
		ViewerTimezone: a.ViewerTimezone,
	}
}

func (*CreatedEvent) EventType() string { return EventCreated }

// StatusChangedEvent is emitted after a status transition is stored.
type StatusChangedEvent struct {
	BaseEvent
	From         Status `json:"from"`
	To           Status `json:"to"`
	CalendarLink string `json:"calendar_link,omitempty"`
	MeetLink     string `json:"meet_link,omitempty"`
}

func NewStatusChangedEvent(a *Appointment, from, to Status, now time.Time) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseEvent:    newBaseEvent(a.ID, now),
		From:         from,
		To:           to,
		CalendarLink: a.CalendarLink,
		MeetLink:     a.MeetLink,
	}
}

func (*StatusChangedEvent) EventType() string { return EventStatusChanged }

// CalendarBackfilledEvent is emitted for each link written by the backfill.
type CalendarBackfilledEvent struct {
	BaseEvent
	CalendarLink string `json:"calendar_link"`
}

func NewCalendarBackfilledEvent(id, link string, now time.Time) *CalendarBackfilledEvent {
	return &CalendarBackfilledEvent{BaseEvent: newBaseEvent(id, now), CalendarLink: link}
}

func (*CalendarBackfilledEvent) EventType() string { return EventCalendarBackfilled }

// EventPublisher delivers appointment events.  Publishing is best effort;
// callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

//Personal.AI order the ending
