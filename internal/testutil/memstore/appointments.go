// Package memstore is an in-memory appointment.Repository for tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// Store keeps appointments in a map.  Failures can be injected per ID for
// write operations, and for the whole store on reads.
type Store struct {
	mu   sync.Mutex
	rows map[string]*appointment.Appointment

	// FailWrites maps appointment IDs to the error their next writes return.
	FailWrites map[string]error
	// FailQuery, when set, is returned by FindByStatus.
	FailQuery error
	// BeforeWrite, when set, runs outside the lock before a write is checked
	// against the stored row.  It may call Set to simulate another writer.
	BeforeWrite func(id string)
	// OnUpdate, when set, runs before every successful link or status write.
	OnUpdate func(id string)

	LinkWrites   int
	StatusWrites int
}

var _ appointment.Repository = (*Store)(nil)

// New returns a store seeded with copies of rows.
func New(rows ...*appointment.Appointment) *Store {
	s := &Store{rows: make(map[string]*appointment.Appointment), FailWrites: make(map[string]error)}
	for _, r := range rows {
		cp := *r
		s.rows[r.ID] = &cp
	}
	return s
}

func (s *Store) Create(_ context.Context, a *appointment.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[a.ID]; ok {
		return errors.Conflict("appointment already exists")
	}
	cp := *a
	s.rows[a.ID] = &cp
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, errors.AppointmentNotFound(id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) FindByStatus(_ context.Context, status appointment.Status) ([]*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQuery != nil {
		return nil, errors.Persistence(s.FailQuery, "query appointments by status")
	}
	if !status.IsValid() {
		return nil, errors.UnknownStatus(string(status))
	}

	var out []*appointment.Appointment
	for _, r := range s.rows {
		if r.HasStatus(status) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id, expected string, status appointment.Status, meetLink, calendarLink string) error {
	if s.BeforeWrite != nil {
		s.BeforeWrite(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.writable(id)
	if err != nil {
		return err
	}
	if r.Status != expected {
		return errors.StaleStatus(id, expected)
	}
	if s.OnUpdate != nil {
		s.OnUpdate(id)
	}
	r.Status = string(status)
	r.MeetLink = meetLink
	r.CalendarLink = calendarLink
	r.UpdatedAt = time.Now().UTC()
	s.StatusWrites++
	return nil
}

func (s *Store) UpdateCalendarLink(_ context.Context, id, expected, link string) error {
	if s.BeforeWrite != nil {
		s.BeforeWrite(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.writable(id)
	if err != nil {
		return err
	}
	if r.Status != expected || r.CalendarLink != "" {
		return errors.StaleStatus(id, expected)
	}
	if s.OnUpdate != nil {
		s.OnUpdate(id)
	}
	r.CalendarLink = link
	r.UpdatedAt = time.Now().UTC()
	s.LinkWrites++
	return nil
}

func (s *Store) writable(id string) (*appointment.Appointment, error) {
	if err := s.FailWrites[id]; err != nil {
		return nil, errors.Persistence(err, "update appointment "+id)
	}
	r, ok := s.rows[id]
	if !ok {
		return nil, errors.AppointmentNotFound(id)
	}
	return r, nil
}

// Set overwrites a stored row without any checks.
func (s *Store) Set(a *appointment.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.rows[a.ID] = &cp
}

// Get returns a copy of the stored row, or nil.
func (s *Store) Get(id string) *appointment.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

//Personal.AI order the ending
