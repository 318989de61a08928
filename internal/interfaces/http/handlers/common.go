// Package handlers implements the JSON endpoints of the SessionSync API.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
	"github.com/turtacn/SessionSync/pkg/types/common"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.Validation("request body is required")

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeJSON reads a single JSON object from the request body.  Unknown
// fields and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return errors.Validation("content type must be application/json")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errEmptyBody
		}
		return errors.Wrap(err, errors.ErrCodeValidation, "malformed request body")
	}
	if dec.More() {
		return errors.Validation("request body must contain a single JSON object")
	}
	return nil
}

// statusFor maps an application error to its HTTP status.  Anything without
// a client-facing code is a 500.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err), errors.IsUnknownStatus(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsInvalidTransition(err), errors.IsStaleStatus(err), errors.IsConflict(err):
		return http.StatusConflict
	case errors.IsTimezoneResolution(err):
		return http.StatusUnprocessableEntity
	case errors.IsPersistence(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes the {"code","message"} body for err.  Server errors
// are logged and masked; persistence errors keep their code but not the
// driver message.
func writeAppError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	status := statusFor(err)
	code := errors.GetCode(err)

	body := common.ErrorDetail{Code: code.String()}
	switch {
	case status == http.StatusInternalServerError:
		body.Code = errors.ErrCodeInternal.String()
		body.Message = errors.DefaultMessageForCode(errors.ErrCodeInternal)
	case status == http.StatusServiceUnavailable:
		body.Message = errors.DefaultMessageForCode(code)
	default:
		body.Message = clientMessage(err)
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String("request_id", common.RequestIDFromContext(r.Context())),
			logging.String("code", code.String()),
			logging.Err(err))
	}
	writeJSON(w, status, body)
}

// clientMessage is the AppError message plus detail, without the cause chain.
func clientMessage(err error) string {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return err.Error()
	}
	if appErr.Detail != "" {
		return appErr.Message + ": " + appErr.Detail
	}
	return appErr.Message
}

func appointmentID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "appointmentID"))
}

//Personal.AI order the ending
