package handlers

import (
	"context"
	"net/http"

	"github.com/turtacn/SessionSync/internal/application/backfill"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// BackfillService runs passes and returns the last cached report.
// *backfill.Scheduler implements it.
type BackfillService interface {
	RunNow(ctx context.Context, trigger string) (*backfill.Report, error)
	LastReport(ctx context.Context) (*backfill.Report, error)
}

// BackfillRequester hands a pass to the workers instead of running it in the
// request.
type BackfillRequester interface {
	RequestBackfill(ctx context.Context, requestedBy, reason string) error
}

// BackfillHandler serves the reconciliation endpoints.
type BackfillHandler struct {
	svc       BackfillService
	requester BackfillRequester
	logger    logging.Logger
}

// NewBackfillHandler creates a new BackfillHandler.  requester may be nil,
// in which case asynchronous requests are rejected.
func NewBackfillHandler(svc BackfillService, requester BackfillRequester, logger logging.Logger) *BackfillHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BackfillHandler{svc: svc, requester: requester, logger: logger.Named("http.backfill")}
}

// BackfillRequest is the optional body of POST /backfill.
type BackfillRequest struct {
	Async       bool   `json:"async,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// BackfillResponse wraps the report of a synchronous run.  Partial is set
// when the run stopped before visiting every candidate.
type BackfillResponse struct {
	Report  *backfill.Report `json:"report"`
	Partial bool             `json:"partial"`
	Message string           `json:"message,omitempty"`
}

// Run handles POST /api/v1/backfill.
func (h *BackfillHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if err := decodeJSON(w, r, &req); err != nil && err != errEmptyBody {
		writeAppError(w, r, h.logger, err)
		return
	}

	if req.Async {
		if h.requester == nil {
			writeAppError(w, r, h.logger, errors.Validation("asynchronous backfill is not configured"))
			return
		}
		if err := h.requester.RequestBackfill(r.Context(), req.RequestedBy, req.Reason); err != nil {
			writeAppError(w, r, h.logger, err)
			return
		}
		h.logger.Info("backfill requested", logging.String("requested_by", req.RequestedBy))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	report, err := h.svc.RunNow(r.Context(), backfill.TriggerManual)
	if err != nil && report == nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	resp := BackfillResponse{Report: report}
	if err != nil {
		resp.Partial = true
		resp.Message = "run stopped early: " + err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Last handles GET /api/v1/backfill/last.
func (h *BackfillHandler) Last(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.LastReport(r.Context())
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

//Personal.AI order the ending
