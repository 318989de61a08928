package handlers

import (
	"net/http"

	"github.com/turtacn/SessionSync/internal/application/scheduling"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
)

// TimezoneHandler serves standalone conversions.
type TimezoneHandler struct {
	svc    scheduling.Service
	logger logging.Logger
}

// NewTimezoneHandler creates a new TimezoneHandler.
func NewTimezoneHandler(svc scheduling.Service, logger logging.Logger) *TimezoneHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TimezoneHandler{svc: svc, logger: logger.Named("http.timezone")}
}

// Convert handles POST /api/v1/timezone/convert.  An unresolvable zone still
// answers 200 with the input echoed back, fallback set and a warning.
func (h *TimezoneHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req scheduling.ConvertInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Convert(req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

//Personal.AI order the ending
