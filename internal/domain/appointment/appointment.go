// Package appointment holds the appointment aggregate, its status lifecycle
// and the persistence port.
package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// DefaultDurationMinutes applies when an appointment carries no duration.
const DefaultDurationMinutes = 30

// Appointment is a scheduled session between a host and a viewer.  Date and
// Time are civil values interpreted in HostTimezone; that triple is the single
// source of truth for the instant.  Views in other zones are derived.
type Appointment struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	HostTimezone    string    `json:"host_timezone"`
	ViewerTimezone  string    `json:"viewer_timezone"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Status          string    `json:"status"`
	HostName        string    `json:"host_name"`
	ViewerName      string    `json:"viewer_name"`
	Notes           string    `json:"notes,omitempty"`
	MeetLink        string    `json:"meet_link,omitempty"`
	CalendarLink    string    `json:"calendar_link,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewParams carries the caller-supplied fields of a new appointment.
type NewParams struct {
	Date            string
	Time            string
	HostTimezone    string
	ViewerTimezone  string
	DurationMinutes int
	HostName        string
	ViewerName      string
	Notes           string
}

// NewAppointment creates a pending appointment with a fresh ID.
func NewAppointment(p NewParams, now time.Time) (*Appointment, error) {
	a := &Appointment{
		ID:              uuid.New().String(),
		Date:            strings.TrimSpace(p.Date),
		Time:            strings.TrimSpace(p.Time),
		HostTimezone:    strings.TrimSpace(p.HostTimezone),
		ViewerTimezone:  strings.TrimSpace(p.ViewerTimezone),
		DurationMinutes: p.DurationMinutes,
		Status:          string(StatusPending),
		HostName:        strings.TrimSpace(p.HostName),
		ViewerName:      strings.TrimSpace(p.ViewerName),
		Notes:           p.Notes,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks field formats.  Zone names are only checked for presence;
// resolving them is the converter's job.
func (a *Appointment) Validate() error {
	if a.ID == "" {
		return errors.Validation("id is required")
	}
	if _, err := timezone.ParseCivil(a.Date, a.Time); err != nil {
		return err
	}
	if a.HostTimezone == "" {
		return errors.Validation("host_timezone is required")
	}
	if a.ViewerTimezone == "" {
		return errors.Validation("viewer_timezone is required")
	}
	if strings.TrimSpace(a.HostName) == "" {
		return errors.Validation("host_name is required")
	}
	if strings.TrimSpace(a.ViewerName) == "" {
		return errors.Validation("viewer_name is required")
	}
	if a.DurationMinutes < 0 {
		return errors.Validation("duration_minutes must not be negative")
	}
	return nil
}

// Duration returns the session length, defaulting to DefaultDurationMinutes.
func (a *Appointment) Duration() time.Duration {
	return a.DurationOr(DefaultDurationMinutes)
}

// DurationOr returns the session length, or defaultMinutes when none is set.
func (a *Appointment) DurationOr(defaultMinutes int) time.Duration {
	if a.DurationMinutes > 0 {
		return time.Duration(a.DurationMinutes) * time.Minute
	}
	return time.Duration(defaultMinutes) * time.Minute
}

// CurrentStatus classifies the stored status spelling.
func (a *Appointment) CurrentStatus() (Status, error) {
	return Classify(a.Status)
}

// HasStatus reports whether the stored spelling classifies as s.
func (a *Appointment) HasStatus(s Status) bool {
	got, err := a.CurrentStatus()
	return err == nil && got == s
}

// TransitionTo moves the appointment to status to, storing the canonical
// spelling.
func (a *Appointment) TransitionTo(to Status, now time.Time) error {
	from, err := a.CurrentStatus()
	if err != nil {
		return err
	}
	if err := ValidateTransition(from, to); err != nil {
		return err
	}
	a.Status = string(to)
	a.UpdatedAt = now.UTC()
	return nil
}

// NeedsCalendarLink reports whether the appointment is confirmed but has no
// calendar link yet.  Unclassifiable statuses never need one.
func (a *Appointment) NeedsCalendarLink() bool {
	return a.HasStatus(StatusConfirmed) && a.CalendarLink == ""
}

//Personal.AI order the ending
