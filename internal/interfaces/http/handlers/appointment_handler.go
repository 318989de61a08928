package handlers

import (
	"fmt"
	"net/http"

	"github.com/turtacn/SessionSync/internal/application/scheduling"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// AppointmentHandler serves the appointment resource.
type AppointmentHandler struct {
	svc    scheduling.Service
	logger logging.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc scheduling.Service, logger logging.Logger) *AppointmentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AppointmentHandler{svc: svc, logger: logger.Named("http.appointments")}
}

// ChangeStatusRequest is the body of POST /appointments/{id}/status.  Status
// may be any accepted spelling.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// Create handles POST /api/v1/appointments.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scheduling.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	view, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/v1/appointments/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

// Get handles GET /api/v1/appointments/{appointmentID}.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), appointmentID(r))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ChangeStatus handles POST /api/v1/appointments/{appointmentID}/status.
func (h *AppointmentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if req.Status == "" {
		writeAppError(w, r, h.logger, errors.Validation("status is required"))
		return
	}
	view, err := h.svc.ChangeStatus(r.Context(), appointmentID(r), req.Status)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CalendarLink handles GET /api/v1/appointments/{appointmentID}/calendar-link.
// A degraded link is still a 200; the body says so.
func (h *AppointmentHandler) CalendarLink(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CalendarLink(r.Context(), appointmentID(r))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ICS handles GET /api/v1/appointments/{appointmentID}/calendar.ics.
func (h *AppointmentHandler) ICS(w http.ResponseWriter, r *http.Request) {
	id := appointmentID(r)
	body, err := h.svc.ICS(r.Context(), id)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "appointment-"+id+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

//Personal.AI order the ending
