// Package backfill repairs confirmed appointments that are missing their
// calendar link.  A Reconciler pass is safe to repeat and safe to run from
// several replicas at once: the link is a pure function of the appointment's
// stable fields, so concurrent writers converge on the same value.
package backfill

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// Triggers label how a run was started.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerCommand  = "command"
)

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

// Failure records a candidate that could not be repaired.
type Failure struct {
	ID  string
	Err error
}

type failureJSON struct {
	ID    string           `json:"id"`
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

func (f Failure) MarshalJSON() ([]byte, error) {
	out := failureJSON{ID: f.ID, Code: errors.GetCode(f.Err)}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a failure read back from the report cache.  The
// cause chain is lost; the code survives.
func (f *Failure) UnmarshalJSON(data []byte) error {
	var in failureJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.ID = in.ID
	f.Err = &errors.AppError{Code: in.Code, Message: in.Error}
	return nil
}

// Report summarises one reconciliation pass.
type Report struct {
	Trigger    string    `json:"trigger"`
	Scanned    int       `json:"scanned"`
	Eligible   int       `json:"eligible"`
	Fixed      int       `json:"fixed"`
	Degraded   int       `json:"degraded"`
	Skipped    int       `json:"skipped"`
	Failures   []Failure `json:"failures"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall time of the pass.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ---------------------------------------------------------------------------
// Reconciler
// ---------------------------------------------------------------------------

// Reconciler scans confirmed appointments and writes missing calendar links.
type Reconciler struct {
	repo      appointment.Repository
	resolver  calendar.InstantResolver
	links     *calendar.LinkBuilder
	publisher appointment.EventPublisher
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	now       func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithPublisher emits a backfilled event for every link written.
func WithPublisher(p appointment.EventPublisher) Option {
	return func(r *Reconciler) {
		if p != nil {
			r.publisher = p
		}
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler wires a Reconciler.  logger may be nil.
func NewReconciler(repo appointment.Repository, resolver calendar.InstantResolver, links *calendar.LinkBuilder, logger logging.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Reconciler{
		repo:      repo,
		resolver:  resolver,
		links:     links,
		publisher: appointment.NopPublisher{},
		logger:    logger.Named("backfill"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs one pass with the manual trigger.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	return r.Run(ctx, TriggerManual)
}

// Run performs one pass.  Per-item failures are collected in the report and
// never abort the pass.  A failed query returns a persistence error and no
// report.  When ctx is done the pass stops issuing writes and returns the
// partial report together with ctx.Err().
func (r *Reconciler) Run(ctx context.Context, trigger string) (*Report, error) {
	report := &Report{Trigger: trigger, Failures: []Failure{}, StartedAt: r.now().UTC()}

	rows, err := r.repo.FindByStatus(ctx, appointment.StatusConfirmed)
	if err != nil {
		if !errors.IsPersistence(err) {
			err = errors.Persistence(err, "query confirmed appointments")
		}
		r.logger.Error("backfill query failed", logging.String("trigger", trigger), logging.Err(err))
		r.finish(report, err)
		return nil, err
	}
	report.Scanned = len(rows)

	var candidates []*appointment.Appointment
	for _, a := range rows {
		if a.NeedsCalendarLink() {
			candidates = append(candidates, a)
		}
	}
	report.Eligible = len(candidates)

	for _, a := range candidates {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("backfill canceled",
				logging.String("trigger", trigger),
				logging.Int("fixed", report.Fixed),
				logging.Int("remaining", report.Eligible-report.Fixed-report.Degraded-report.Skipped-len(report.Failures)))
			r.finish(report, err)
			return report, err
		}
		r.repair(ctx, a, report)
	}

	r.finish(report, nil)
	r.logger.Info("backfill completed",
		logging.String("trigger", trigger),
		logging.Int("scanned", report.Scanned),
		logging.Int("eligible", report.Eligible),
		logging.Int("fixed", report.Fixed),
		logging.Int("degraded", report.Degraded),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", len(report.Failures)),
		logging.Duration("duration", report.Duration()))
	return report, nil
}

func (r *Reconciler) repair(ctx context.Context, a *appointment.Appointment, report *Report) {
	start, end, err := r.links.Window(a, r.resolver)
	if err != nil {
		r.fail(report, a.ID, err)
		return
	}

	res := r.links.BuildLink(a, start, end)
	prometheus.RecordCalendarLink(r.metrics, prometheus.LinkSourceBackfill, res.Degraded)
	if res.Degraded {
		report.Degraded++
		r.logger.Warn("backfill link degraded", logging.String("id", a.ID), logging.String("reason", res.Reason))
		return
	}

	if err := r.repo.UpdateCalendarLink(ctx, a.ID, a.Status, res.URL); err != nil {
		if errors.IsStaleStatus(err) {
			report.Skipped++
			r.logger.Info("backfill item changed since scan, skipped", logging.String("id", a.ID))
			return
		}
		if !errors.IsPersistence(err) && !errors.IsNotFound(err) {
			err = errors.Persistence(err, "update calendar link")
		}
		r.fail(report, a.ID, err)
		return
	}
	report.Fixed++

	if err := r.publisher.Publish(ctx, appointment.NewCalendarBackfilledEvent(a.ID, res.URL, r.now())); err != nil {
		r.logger.Warn("backfill event publish failed", logging.String("id", a.ID), logging.Err(err))
	}
}

func (r *Reconciler) fail(report *Report, id string, err error) {
	report.Failures = append(report.Failures, Failure{ID: id, Err: err})
	r.logger.Warn("backfill item failed",
		logging.String("id", id),
		logging.String("code", errors.GetCode(err).String()),
		logging.Err(err))
}

func (r *Reconciler) finish(report *Report, err error) {
	report.FinishedAt = r.now().UTC()
	prometheus.RecordBackfillRun(r.metrics, report.Trigger, report.Fixed, len(report.Failures), report.Degraded, report.Duration(), err)
}

//Personal.AI order the ending
