package appointment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/SessionSync/pkg/errors"
)

// Status is the canonical lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Statuses lists every canonical status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusRejected, StatusCompleted}

// aliasTable holds every spelling that may be found in storage for a status.
// The canonical spelling comes first.
var aliasTable = map[Status][]string{
	StatusPending:   {"pending", "Pending", "en_attente", "en attente", "en-attente", "attente"},
	StatusConfirmed: {"confirmed", "confirmé", "confirme", "accepted", "accepté"},
	StatusRejected:  {"rejected", "rejeté", "rejete", "refusé", "refuse", "declined", "cancelled", "canceled", "annulé", "annule"},
	StatusCompleted: {"completed", "terminé", "termine", "done", "fini"},
}

var labels = map[string]map[Status]string{
	"en": {
		StatusPending:   "Pending",
		StatusConfirmed: "Confirmed",
		StatusRejected:  "Rejected",
		StatusCompleted: "Completed",
	},
	"fr": {
		StatusPending:   "En attente",
		StatusConfirmed: "Confirmé",
		StatusRejected:  "Rejeté",
		StatusCompleted: "Terminé",
	},
}

// transitions lists the allowed target states per source state.  Terminal
// states have no entry.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected},
	StatusConfirmed: {StatusCompleted},
}

// lookup maps a folded alias key to its status.
var lookup = buildLookup()

func buildLookup() map[string]Status {
	m := make(map[string]Status)
	for status, aliases := range aliasTable {
		for _, a := range aliases {
			m[foldKey(a)] = status
		}
	}
	return m
}

// foldKey lower-cases, trims, strips combining accents and unifies
// separators so "En-Attente", "en attente" and "EN_ATTENTE" fold together.
func foldKey(raw string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(raw)))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r == '-' || r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Classify maps any known spelling of a status to its canonical value.  It is
// idempotent: Classify(string(Classify(x))) == Classify(x).  Unknown input
// yields an unknown-status error.
func Classify(raw string) (Status, error) {
	if s, ok := lookup[foldKey(raw)]; ok {
		return s, nil
	}
	return "", errors.UnknownStatus(raw)
}

// Aliases returns every stored spelling of s, canonical first.
func Aliases(s Status) []string {
	out := make([]string, len(aliasTable[s]))
	copy(out, aliasTable[s])
	return out
}

// CanTransition reports whether from → to is an allowed lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an invalid-transition error unless from → to is
// one of pending→confirmed, pending→rejected or confirmed→completed.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return errors.InvalidTransition(string(from), string(to))
	}
	return nil
}

// IsValid reports whether s is one of the canonical statuses.
func (s Status) IsValid() bool {
	_, ok := aliasTable[s]
	return ok
}

// Next lists the statuses s may move to, in lifecycle order.
func (s Status) Next() []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// Label returns a display label for s in locale ("en" or "fr", region
// suffixes ignored).  Unknown locales fall back to English.
func (s Status) Label(locale string) string {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	table, ok := labels[lang]
	if !ok {
		table = labels["en"]
	}
	if l, ok := table[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) String() string { return string(s) }

//Personal.AI order the ending
