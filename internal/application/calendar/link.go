// Package calendar derives calendar artifacts from appointments: the
// add-to-calendar deep link stored on confirmed appointments and an on-demand
// iCalendar export.  Output is a pure function of the appointment's stable
// fields; nothing time- or request-dependent goes into it.
package calendar

import (
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/SessionSync/internal/domain/appointment"
)

// Defaults for LinkConfig.
const (
	DefaultBaseURL      = "https://calendar.google.com/calendar/render"
	DefaultHomeURL      = "https://calendar.google.com/calendar"
	DefaultSessionLabel = "Session"
	DefaultSignature    = "Generated by SessionSync"

	// UTCStampLayout is the basic ISO 8601 UTC form used by the dates query
	// parameter and by iCalendar.
	UTCStampLayout = "20060102T150405Z"
)

// LinkConfig tunes the deep-link template.
type LinkConfig struct {
	BaseURL                string
	HomeURL                string
	SessionLabel           string
	Signature              string
	DefaultDurationMinutes int
}

// LinkResult is the outcome of BuildLink.  A degraded result carries the
// provider's home URL instead of a template link and is never persisted.
type LinkResult struct {
	URL      string `json:"url"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// InstantResolver resolves a civil time in a zone to an absolute instant.
// *timezone.Converter implements it.
type InstantResolver interface {
	Instant(clock, date, zone string) (time.Time, error)
}

// LinkBuilder builds calendar deep links.  It holds only configuration and is
// safe for concurrent use.
type LinkBuilder struct {
	cfg LinkConfig
}

// NewLinkBuilder applies defaults to cfg and returns a builder.
func NewLinkBuilder(cfg LinkConfig) *LinkBuilder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = DefaultHomeURL
	}
	if cfg.SessionLabel == "" {
		cfg.SessionLabel = DefaultSessionLabel
	}
	if cfg.Signature == "" {
		cfg.Signature = DefaultSignature
	}
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = appointment.DefaultDurationMinutes
	}
	return &LinkBuilder{cfg: cfg}
}

// Window resolves the appointment's start from its host-zone civil time and
// derives the end from its duration.
func (b *LinkBuilder) Window(a *appointment.Appointment, resolver InstantResolver) (start, end time.Time, err error) {
	start, err = resolver.Instant(a.Time, a.Date, a.HostTimezone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(a.DurationOr(b.cfg.DefaultDurationMinutes)), nil
}

// BuildLink renders the add-to-calendar template link for a.  If end is zero
// or not after start, the appointment's duration is used.  Missing
// participant names degrade the result to the calendar home URL.
func (b *LinkBuilder) BuildLink(a *appointment.Appointment, start, end time.Time) LinkResult {
	if reason := degradeReason(a, start); reason != "" {
		return LinkResult{URL: b.cfg.HomeURL, Degraded: true, Reason: reason}
	}
	if !end.After(start) {
		end = start.Add(a.DurationOr(b.cfg.DefaultDurationMinutes))
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", b.Title(a))
	q.Set("dates", start.UTC().Format(UTCStampLayout)+"/"+end.UTC().Format(UTCStampLayout))
	q.Set("details", b.Details(a))
	q.Set("sf", "true")
	q.Set("output", "xml")

	return LinkResult{URL: b.cfg.BaseURL + "?" + q.Encode()}
}

// Title is the event title: "<label> - <viewer> & <host>".
func (b *LinkBuilder) Title(a *appointment.Appointment) string {
	return b.cfg.SessionLabel + " - " + strings.TrimSpace(a.ViewerName) + " & " + strings.TrimSpace(a.HostName)
}

// Details is the event description.
func (b *LinkBuilder) Details(a *appointment.Appointment) string {
	lines := []string{
		"Host: " + strings.TrimSpace(a.HostName),
		"Viewer: " + strings.TrimSpace(a.ViewerName),
	}
	if strings.TrimSpace(a.Notes) != "" {
		lines = append(lines, "Notes: "+a.Notes)
	}
	if meet := strings.TrimSpace(a.MeetLink); meet != "" {
		lines = append(lines, "Meeting link: "+meet)
	}
	lines = append(lines, "", b.cfg.Signature)
	return strings.Join(lines, "\n")
}

func degradeReason(a *appointment.Appointment, start time.Time) string {
	switch {
	case a == nil:
		return "appointment missing"
	case strings.TrimSpace(a.HostName) == "":
		return "host name missing"
	case strings.TrimSpace(a.ViewerName) == "":
		return "viewer name missing"
	case start.IsZero():
		return "start time missing"
	}
	return ""
}

//Personal.AI order the ending
