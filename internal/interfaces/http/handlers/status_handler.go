package handlers

import (
	"net/http"

	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// StatusHandler exposes the status vocabulary.
type StatusHandler struct {
	logger logging.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(logger logging.Logger) *StatusHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StatusHandler{logger: logger.Named("http.statuses")}
}

// ClassifyRequest is the body of POST /statuses/classify.
type ClassifyRequest struct {
	Status string `json:"status"`
	Locale string `json:"locale,omitempty"`
}

// ClassifyResponse describes the canonical status behind an input spelling.
type ClassifyResponse struct {
	Input    string               `json:"input"`
	Status   appointment.Status   `json:"status"`
	Label    string               `json:"label"`
	Aliases  []string             `json:"aliases"`
	Next     []appointment.Status `json:"next"`
	Terminal bool                 `json:"terminal"`
}

// TransitionRequest is the body of POST /statuses/transition.
type TransitionRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TransitionResponse reports an allowed edge in canonical form.
type TransitionResponse struct {
	From    appointment.Status `json:"from"`
	To      appointment.Status `json:"to"`
	Allowed bool               `json:"allowed"`
}

// Classify handles POST /api/v1/statuses/classify.
func (h *StatusHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	s, err := appointment.Classify(req.Status)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{
		Input:    req.Status,
		Status:   s,
		Label:    s.Label(req.Locale),
		Aliases:  appointment.Aliases(s),
		Next:     s.Next(),
		Terminal: s.IsTerminal(),
	})
}

// Transition handles POST /api/v1/statuses/transition.  A forbidden edge is
// a 409 with the invalid-transition code.
func (h *StatusHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if req.From == "" || req.To == "" {
		writeAppError(w, r, h.logger, errors.Validation("from and to are required"))
		return
	}
	from, err := appointment.Classify(req.From)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	to, err := appointment.Classify(req.To)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if err := appointment.ValidateTransition(from, to); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{From: from, To: to, Allowed: true})
}

//Personal.AI order the ending
