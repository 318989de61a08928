package calendar

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/pkg/errors"
)

const productID = "-//SessionSync//Appointment Export//EN"

// ExportICS renders a as a single-event iCalendar document.  The UID is
// "<id>@sessionsync" and DTSTAMP is the start instant, so the same
// appointment always serialises to the same bytes.
func (b *LinkBuilder) ExportICS(a *appointment.Appointment, start, end time.Time) ([]byte, error) {
	if reason := degradeReason(a, start); reason != "" {
		return nil, errors.Validation("cannot export calendar event: " + reason)
	}
	if !end.After(start) {
		end = start.Add(a.DurationOr(b.cfg.DefaultDurationMinutes))
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	ev := cal.AddEvent(a.ID + "@sessionsync")
	ev.SetDtStampTime(start.UTC())
	ev.SetStartAt(start.UTC())
	ev.SetEndAt(end.UTC())
	ev.SetSummary(b.Title(a))
	ev.SetDescription(b.Details(a))
	ev.SetStatus(eventStatus(a.Status))
	if meet := strings.TrimSpace(a.MeetLink); meet != "" {
		ev.SetURL(meet)
		ev.SetLocation(meet)
	}

	return []byte(cal.Serialize()), nil
}

func eventStatus(raw string) ical.ObjectStatus {
	s, err := appointment.Classify(raw)
	if err != nil {
		return ical.ObjectStatusTentative
	}
	switch s {
	case appointment.StatusConfirmed, appointment.StatusCompleted:
		return ical.ObjectStatusConfirmed
	case appointment.StatusRejected:
		return ical.ObjectStatusCancelled
	default:
		return ical.ObjectStatusTentative
	}
}

//Personal.AI order the ending
