// Package scheduling implements the single-appointment use cases: creating
// appointments, viewing them in the viewer's zone, moving them through the
// status lifecycle and producing their calendar artifacts.
package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/internal/infrastructure/meetlink"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// CreateInput carries the fields of a new appointment.
type CreateInput struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	HostTimezone    string `json:"host_timezone"`
	ViewerTimezone  string `json:"viewer_timezone"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	HostName        string `json:"host_name"`
	ViewerName      string `json:"viewer_name"`
	Notes           string `json:"notes,omitempty"`
}

// ViewerView is the appointment's start as observed in the viewer's zone.
type ViewerView struct {
	Time      string `json:"time"`
	Date      string `json:"date"`
	DayOffset int    `json:"day_offset"`
	Fallback  bool   `json:"fallback"`
}

// AppointmentView is an appointment together with its derived viewer view.
type AppointmentView struct {
	*appointment.Appointment
	CanonicalStatus appointment.Status `json:"canonical_status,omitempty"`
	Viewer          ViewerView         `json:"viewer"`
}

// ConvertInput is a standalone conversion request.
type ConvertInput struct {
	Time     string `json:"time"`
	Date     string `json:"date"`
	FromZone string `json:"from_zone"`
	ToZone   string `json:"to_zone"`
}

// ConvertResult is the converted civil time.  Warning is set when a zone
// could not be resolved and the input was echoed back.
type ConvertResult struct {
	timezone.Conversion
	Warning string `json:"warning,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service is the application contract used by the HTTP API and the CLI.
type Service interface {
	// Create validates and stores a pending appointment.
	Create(ctx context.Context, in CreateInput) (*AppointmentView, error)

	// Get returns the appointment with its viewer view.
	Get(ctx context.Context, id string) (*AppointmentView, error)

	// ChangeStatus classifies rawStatus and applies the transition.
	ChangeStatus(ctx context.Context, id, rawStatus string) (*AppointmentView, error)

	// CalendarLink recomputes the add-to-calendar link.
	CalendarLink(ctx context.Context, id string) (calendar.LinkResult, error)

	// ICS renders the appointment as an iCalendar document.
	ICS(ctx context.Context, id string) ([]byte, error)

	// Convert renders a civil time in another zone.
	Convert(in ConvertInput) (ConvertResult, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type service struct {
	repo      appointment.Repository
	converter *timezone.Converter
	links     *calendar.LinkBuilder
	meet      meetlink.Provider
	publisher appointment.EventPublisher
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	now       func() time.Time
}

// Option configures the service.
type Option func(*service)

// WithMeetLinkProvider asks p for a meeting link on confirmation.
func WithMeetLinkProvider(p meetlink.Provider) Option {
	return func(s *service) {
		if p != nil {
			s.meet = p
		}
	}
}

// WithPublisher publishes domain events to p.
func WithPublisher(p appointment.EventPublisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the scheduling use cases.
func NewService(repo appointment.Repository, converter *timezone.Converter, links *calendar.LinkBuilder, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &service{
		repo:      repo,
		converter: converter,
		links:     links,
		meet:      meetlink.NopProvider{},
		publisher: appointment.NopPublisher{},
		logger:    logger.Named("scheduling"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, in CreateInput) (*AppointmentView, error) {
	a, err := appointment.NewAppointment(appointment.NewParams{
		Date:            in.Date,
		Time:            in.Time,
		HostTimezone:    in.HostTimezone,
		ViewerTimezone:  in.ViewerTimezone,
		DurationMinutes: in.DurationMinutes,
		HostName:        in.HostName,
		ViewerName:      in.ViewerName,
		Notes:           in.Notes,
	}, s.now())
	if err != nil {
		return nil, err
	}
	for _, zone := range []string{a.HostTimezone, a.ViewerTimezone} {
		if _, err := s.converter.Location(zone); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("appointment created",
		logging.String("appointment_id", a.ID),
		logging.String("date", a.Date),
		logging.String("time", a.Time),
		logging.String("host_timezone", a.HostTimezone))
	s.publish(ctx, appointment.NewCreatedEvent(a, s.now()))

	return s.view(a), nil
}

func (s *service) Get(ctx context.Context, id string) (*AppointmentView, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(a), nil
}

// maxStatusAttempts bounds the re-reads when another writer changes the
// status between the read and the conditional write.
const maxStatusAttempts = 3

func (s *service) ChangeStatus(ctx context.Context, id, rawStatus string) (*AppointmentView, error) {
	to, err := appointment.Classify(rawStatus)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		view, err := s.changeStatusOnce(ctx, id, to)
		if err == nil || !errors.IsStaleStatus(err) || attempt == maxStatusAttempts {
			return view, err
		}
		s.logger.Info("status changed concurrently, re-reading",
			logging.String("appointment_id", id),
			logging.Int("attempt", attempt))
	}
}

// changeStatusOnce validates the transition against a fresh read and writes
// it only if the stored status is still the one that was read.
func (s *service) changeStatusOnce(ctx context.Context, id string, to appointment.Status) (*AppointmentView, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := a.Status
	from, err := a.CurrentStatus()
	if err != nil {
		return nil, err
	}
	if err := a.TransitionTo(to, s.now()); err != nil {
		prometheus.RecordStatusTransition(s.metrics, string(from), string(to), err)
		s.logger.Info("status transition rejected",
			logging.String("appointment_id", id),
			logging.String("from", string(from)),
			logging.String("to", string(to)))
		return nil, err
	}

	if to == appointment.StatusConfirmed {
		s.attachLinks(ctx, a)
	}

	if err := s.repo.UpdateStatus(ctx, a.ID, expected, to, a.MeetLink, a.CalendarLink); err != nil {
		if !errors.IsStaleStatus(err) {
			prometheus.RecordStatusTransition(s.metrics, string(from), string(to), err)
			s.logger.Error("status update failed", logging.String("appointment_id", id), logging.Err(err))
		}
		return nil, err
	}
	prometheus.RecordStatusTransition(s.metrics, string(from), string(to), nil)
	s.logger.Info("status changed",
		logging.String("appointment_id", id),
		logging.String("from", string(from)),
		logging.String("to", string(to)),
		logging.Bool("calendar_link", a.CalendarLink != ""))
	s.publish(ctx, appointment.NewStatusChangedEvent(a, from, to, s.now()))

	return s.view(a), nil
}

// attachLinks fills in the meeting and calendar links of a freshly confirmed
// appointment.  Failures leave the link empty; the backfill picks up a
// missing calendar link later.
func (s *service) attachLinks(ctx context.Context, a *appointment.Appointment) {
	start, end, err := s.links.Window(a, s.converter)
	if err != nil {
		s.logger.Warn("calendar window unavailable",
			logging.String("appointment_id", a.ID), logging.Err(err))
		return
	}

	if a.MeetLink == "" {
		link, err := s.meet.CreateMeeting(ctx, meetlink.MeetingRequest{
			AppointmentID: a.ID,
			Title:         s.links.Title(a),
			Start:         start,
			End:           end,
			HostName:      a.HostName,
			ViewerName:    a.ViewerName,
		})
		if err != nil {
			s.logger.Warn("meet link unavailable", logging.String("appointment_id", a.ID), logging.Err(err))
		} else {
			a.MeetLink = link
		}
	}

	if a.CalendarLink != "" {
		return
	}
	res := s.links.BuildLink(a, start, end)
	prometheus.RecordCalendarLink(s.metrics, prometheus.LinkSourceTransition, res.Degraded)
	if res.Degraded {
		s.logger.Warn("calendar link degraded",
			logging.String("appointment_id", a.ID), logging.String("reason", res.Reason))
		return
	}
	a.CalendarLink = res.URL
}

func (s *service) CalendarLink(ctx context.Context, id string) (calendar.LinkResult, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return calendar.LinkResult{}, err
	}
	start, end, err := s.links.Window(a, s.converter)
	if err != nil {
		return calendar.LinkResult{}, err
	}
	res := s.links.BuildLink(a, start, end)
	prometheus.RecordCalendarLink(s.metrics, prometheus.LinkSourceAPI, res.Degraded)
	return res, nil
}

func (s *service) ICS(ctx context.Context, id string) ([]byte, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	start, end, err := s.links.Window(a, s.converter)
	if err != nil {
		return nil, err
	}
	return s.links.ExportICS(a, start, end)
}

func (s *service) Convert(in ConvertInput) (ConvertResult, error) {
	conv, err := s.converter.Convert(in.Time, in.Date, in.FromZone, in.ToZone)
	prometheus.RecordConversion(s.metrics, conv.Fallback, err)
	if err != nil && !conv.Fallback {
		return ConvertResult{}, err
	}
	out := ConvertResult{Conversion: conv}
	if conv.Fallback {
		out.Warning = err.Error()
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *service) find(ctx context.Context, id string) (*appointment.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.Validation("appointment id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) view(a *appointment.Appointment) *AppointmentView {
	v := &AppointmentView{Appointment: a}
	if st, err := a.CurrentStatus(); err == nil {
		v.CanonicalStatus = st
	}
	conv, _ := s.converter.Convert(a.Time, a.Date, a.HostTimezone, a.ViewerTimezone)
	v.Viewer = ViewerView{Time: conv.Time, Date: conv.Date, DayOffset: conv.DayOffset, Fallback: conv.Fallback}
	return v
}

func (s *service) publish(ctx context.Context, e appointment.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("event publish failed",
			logging.String("event_type", e.EventType()),
			logging.String("appointment_id", e.AggregateID()),
			logging.Err(err))
	}
}

//Personal.AI order the ending
