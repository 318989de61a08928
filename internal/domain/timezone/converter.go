// Package timezone converts civil wall-clock times between IANA time zones.
//
// A civil time is a (date, clock) pair with no zone attached.  Conversion
// anchors it in the source zone using that zone's rules for that particular
// date, then re-renders the absolute instant in the target zone.  No offset
// arithmetic is done by hand; DST is handled by the IANA database.
package timezone

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// Layouts of the civil values exchanged with callers and storage.
const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"
)

// Conversion is the result of rendering a civil time in another zone.
type Conversion struct {
	// Time is the converted wall clock, HH:MM.
	Time string `json:"time"`
	// Date is the converted civil date, YYYY-MM-DD.
	Date string `json:"date"`
	// DayOffset is Date minus the input date in days: -1, 0 or +1.
	DayOffset int `json:"day_offset"`
	// Fallback is set when a zone could not be resolved and Time/Date are the
	// unconverted input.
	Fallback bool `json:"fallback"`
}

// Converter resolves IANA zones and converts civil times.  Resolved locations
// are cached per instance.  A Converter is safe for concurrent use.
type Converter struct {
	logger    logging.Logger
	locations sync.Map // zone name → *time.Location
}

// NewConverter returns a Converter that reports fallbacks to logger.
func NewConverter(logger logging.Logger) *Converter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Converter{logger: logger}
}

// Location resolves an IANA zone name.  Empty names and "Local" are rejected
// so results never depend on the host's zone setting.
func (c *Converter) Location(zone string) (*time.Location, error) {
	name := strings.TrimSpace(zone)
	if cached, ok := c.locations.Load(name); ok {
		return cached.(*time.Location), nil
	}
	if name == "" || name == "Local" {
		return nil, errors.TimezoneResolution(zone, fmt.Errorf("zone must be an IANA identifier"))
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.TimezoneResolution(zone, err)
	}
	c.locations.Store(name, loc)
	return loc, nil
}

// Convert renders the civil time clock on date, as observed in fromZone, in
// toZone.
//
// Malformed clock or date values yield a validation error and no result.  An
// unresolvable zone yields the input unchanged with Fallback set, together
// with a timezone resolution error; callers decide how to present it.
func (c *Converter) Convert(clock, date, fromZone, toZone string) (Conversion, error) {
	civil, err := ParseCivil(date, clock)
	if err != nil {
		return Conversion{}, err
	}

	fromLoc, err := c.Location(fromZone)
	if err != nil {
		return c.fallback(clock, date, fromZone, toZone, err)
	}
	toLoc, err := c.Location(toZone)
	if err != nil {
		return c.fallback(clock, date, fromZone, toZone, err)
	}

	out := civil.In(fromLoc).In(toLoc)
	return Conversion{
		Time:      out.Format(ClockLayout),
		Date:      out.Format(DateLayout),
		DayOffset: civil.daysUntil(out),
	}, nil
}

// Instant resolves the absolute instant of clock on date in zone.
func (c *Converter) Instant(clock, date, zone string) (time.Time, error) {
	civil, err := ParseCivil(date, clock)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := c.Location(zone)
	if err != nil {
		return time.Time{}, err
	}
	return civil.In(loc), nil
}

func (c *Converter) fallback(clock, date, fromZone, toZone string, cause error) (Conversion, error) {
	c.logger.Warn("timezone fallback",
		logging.String("from_zone", fromZone),
		logging.String("to_zone", toZone),
		logging.String("date", date),
		logging.String("time", clock),
		logging.Err(cause),
	)
	return Conversion{Time: clock, Date: date, Fallback: true}, cause
}

// ─────────────────────────────────────────────────────────────────────────────
// Civil time
// ─────────────────────────────────────────────────────────────────────────────

// Civil is a zone-less calendar date and wall clock with minute precision.
type Civil struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// ParseCivil validates a YYYY-MM-DD date and an HH:MM 24-hour clock.
func ParseCivil(date, clock string) (Civil, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return Civil{}, errors.Validation("date must be YYYY-MM-DD").WithDetail(fmt.Sprintf("date=%q", date))
	}
	clock = strings.TrimSpace(clock)
	if len(clock) != len(ClockLayout) {
		return Civil{}, errors.Validation("time must be HH:MM").WithDetail(fmt.Sprintf("time=%q", clock))
	}
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return Civil{}, errors.Validation("time must be HH:MM").WithDetail(fmt.Sprintf("time=%q", clock))
	}
	return Civil{
		Year:   d.Year(),
		Month:  d.Month(),
		Day:    d.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}, nil
}

// In anchors the civil time in loc.
//
// A wall clock skipped by a spring-forward gap is normalised the way
// time.Date does it.  A wall clock that occurs twice (fall-back overlap)
// resolves to its first occurrence.
func (c Civil) In(loc *time.Location) time.Time {
	t := time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, 0, 0, loc)

	wall := time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, 0, 0, time.UTC).Unix()
	earliest := t
	for _, probe := range []time.Time{t.Add(-12 * time.Hour), t, t.Add(12 * time.Hour)} {
		_, offset := probe.Zone()
		candidate := time.Unix(wall-int64(offset), 0).In(loc)
		if c.matches(candidate) && candidate.Before(earliest) {
			earliest = candidate
		}
	}
	return earliest
}

func (c Civil) matches(t time.Time) bool {
	y, m, d := t.Date()
	return y == c.Year && m == c.Month && d == c.Day && t.Hour() == c.Hour && t.Minute() == c.Minute
}

// daysUntil returns the civil-day difference between c and t's local date.
func (c Civil) daysUntil(t time.Time) int {
	from := time.Date(c.Year, c.Month, c.Day, 0, 0, 0, 0, time.UTC)
	y, m, d := t.Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

//Personal.AI order the ending
