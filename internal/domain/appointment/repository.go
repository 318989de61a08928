package appointment

import "context"

// Repository is the persistence port for appointments.  Single-row updates
// only; there are no multi-row transactions.
//
// Both updates are conditional on expected, the stored status spelling the
// caller read.  When the row still exists but its status no longer equals
// expected (or, for UpdateCalendarLink, a link is already present) they
// return a stale-status error and write nothing.
type Repository interface {
	// Create stores a new appointment.
	Create(ctx context.Context, a *Appointment) error

	// FindByID returns the appointment or an appointment-not-found error.
	FindByID(ctx context.Context, id string) (*Appointment, error)

	// FindByStatus returns every appointment whose stored status classifies
	// as status, whatever its spelling.
	FindByStatus(ctx context.Context, status Status) ([]*Appointment, error)

	// UpdateStatus writes the canonical status together with the meeting and
	// calendar links computed for it.
	UpdateStatus(ctx context.Context, id, expected string, status Status, meetLink, calendarLink string) error

	// UpdateCalendarLink fills in a missing calendar link.
	UpdateCalendarLink(ctx context.Context, id, expected, link string) error
}

//Personal.AI order the ending
