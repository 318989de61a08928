// Package repositories provides the PostgreSQL implementation of the
// appointment repository.
package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
)

const appointmentColumns = `id, appointment_date, appointment_time, host_timezone, viewer_timezone,
	duration_minutes, status, host_name, viewer_name, notes, meet_link, calendar_link,
	created_at, updated_at`

// PostgreSQL SQLSTATE codes the repository distinguishes.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

type postgresAppointmentRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
	metrics  *prometheus.AppMetrics
}

// Option configures the repository.
type Option func(*postgresAppointmentRepo)

// WithMetrics records query latency and failures.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(r *postgresAppointmentRepo) { r.metrics = m }
}

// NewPostgresAppointmentRepo returns an appointment.Repository backed by conn.
func NewPostgresAppointmentRepo(conn *postgres.Connection, log logging.Logger, opts ...Option) appointment.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	r := &postgresAppointmentRepo{
		conn:     conn,
		log:      log.Named("appointment_repo"),
		executor: conn.DB(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *postgresAppointmentRepo) Create(ctx context.Context, a *appointment.Appointment) (err error) {
	defer r.observe("create", time.Now(), &err)

	query := `INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.executor.ExecContext(ctx, query,
		a.ID, a.Date, a.Time, a.HostTimezone, a.ViewerTimezone,
		a.DurationMinutes, a.Status, a.HostName, a.ViewerName, a.Notes, a.MeetLink, a.CalendarLink,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return classify(err, "create appointment "+a.ID)
	}
	return nil
}

func (r *postgresAppointmentRepo) FindByID(ctx context.Context, id string) (a *appointment.Appointment, err error) {
	defer r.observe("find_by_id", time.Now(), &err)

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err = scanAppointment(r.executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.AppointmentNotFound(id)
		}
		return nil, classify(err, "find appointment "+id)
	}
	return a, nil
}

// FindByStatus loads every row and keeps those whose stored spelling
// classifies as status.  Spellings are folded in Go because SQL LOWER neither
// strips accents nor unifies separators, so no SQL predicate is a safe filter.
func (r *postgresAppointmentRepo) FindByStatus(ctx context.Context, status appointment.Status) (out []*appointment.Appointment, err error) {
	defer r.observe("find_by_status", time.Now(), &err)

	if !status.IsValid() {
		return nil, errors.UnknownStatus(string(status))
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments ORDER BY id`

	rows, err := r.executor.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err, "query appointments by status")
	}
	defer rows.Close()

	scanned, unknown := 0, 0
	for rows.Next() {
		a, serr := scanAppointment(rows)
		if serr != nil {
			return nil, classify(serr, "scan appointment")
		}
		scanned++
		if _, cerr := a.CurrentStatus(); cerr != nil {
			unknown++
			continue
		}
		if a.HasStatus(status) {
			out = append(out, a)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, classify(err, "iterate appointments")
	}
	if unknown > 0 {
		r.log.Warn("appointments with unclassifiable status skipped", logging.Int("count", unknown))
	}
	r.log.Debug("appointments loaded by status",
		logging.String("status", string(status)),
		logging.Int("scanned", scanned),
		logging.Int("count", len(out)))
	return out, nil
}

// UpdateStatus writes only while the stored status still equals expected.
func (r *postgresAppointmentRepo) UpdateStatus(ctx context.Context, id, expected string, status appointment.Status, meetLink, calendarLink string) (err error) {
	defer r.observe("update_status", time.Now(), &err)

	query := `UPDATE appointments
		SET status = $3, meet_link = $4, calendar_link = $5, updated_at = NOW()
		WHERE id = $1 AND status = $2`
	return r.execConditional(ctx, id, expected, "update appointment status "+id, query,
		id, expected, string(status), meetLink, calendarLink)
}

// UpdateCalendarLink writes only while the stored status still equals
// expected and no link is present.
func (r *postgresAppointmentRepo) UpdateCalendarLink(ctx context.Context, id, expected, link string) (err error) {
	defer r.observe("update_calendar_link", time.Now(), &err)

	query := `UPDATE appointments SET calendar_link = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND calendar_link = ''`
	return r.execConditional(ctx, id, expected, "update calendar link "+id, query, id, expected, link)
}

// execConditional runs a single-row conditional update.  Zero affected rows
// is not-found when the id is absent and a stale status otherwise.
func (r *postgresAppointmentRepo) execConditional(ctx context.Context, id, expected, op, query string, args ...interface{}) error {
	res, err := r.executor.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, op)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.executor.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return classify(err, op)
	}
	if !exists {
		return errors.AppointmentNotFound(id)
	}
	return errors.StaleStatus(id, expected)
}

func (r *postgresAppointmentRepo) observe(op string, start time.Time, errp *error) {
	err := *errp
	if errors.IsNotFound(err) || errors.IsStaleStatus(err) {
		err = nil
	}
	prometheus.RecordDBQuery(r.metrics, op, time.Since(start), err)
	if err != nil {
		r.log.Error("appointment query failed", logging.String("operation", op), logging.Err(err))
	}
}

func scanAppointment(s scanner) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := s.Scan(
		&a.ID, &a.Date, &a.Time, &a.HostTimezone, &a.ViewerTimezone,
		&a.DurationMinutes, &a.Status, &a.HostName, &a.ViewerName, &a.Notes, &a.MeetLink, &a.CalendarLink,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// classify maps driver errors onto the error taxonomy.  Anything that is not
// a constraint violation is a persistence failure.
func classify(err error, op string) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Wrap(err, errors.ErrCodeConflict, "appointment already exists").WithDetail(pgErr.ConstraintName)
		case pgCheckViolation:
			return errors.Wrap(err, errors.ErrCodeValidation, "appointment violates a constraint").WithDetail(pgErr.ConstraintName)
		}
	}
	return errors.Persistence(err, op)
}

//Personal.AI order the ending
