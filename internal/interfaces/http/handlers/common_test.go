package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/testutil"
	"github.com/turtacn/SessionSync/pkg/errors"
	"github.com/turtacn/SessionSync/pkg/types/common"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errors.Validation("bad"), http.StatusBadRequest},
		{"unknown status", errors.UnknownStatus("maybe"), http.StatusBadRequest},
		{"not found", errors.AppointmentNotFound("a1"), http.StatusNotFound},
		{"invalid transition", errors.InvalidTransition("rejected", "confirmed"), http.StatusConflict},
		{"stale status", errors.StaleStatus("a1", "pending"), http.StatusConflict},
		{"conflict", errors.Conflict("exists"), http.StatusConflict},
		{"timezone", errors.TimezoneResolution("Mars/Base", fmt.Errorf("unknown")), http.StatusUnprocessableEntity},
		{"persistence", errors.Persistence(fmt.Errorf("eof"), "query failed"), http.StatusServiceUnavailable},
		{"wrapped validation", fmt.Errorf("outer: %w", errors.Validation("bad")), http.StatusBadRequest},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"internal", errors.Internal("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestWriteAppError_MasksServerErrors(t *testing.T) {
	t.Parallel()
	log := testutil.NewMockLogger()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/a1", nil)
	r = r.WithContext(context.WithValue(r.Context(), common.ContextKeyRequestID, "req-9"))
	w := httptest.NewRecorder()

	writeAppError(w, r, log, fmt.Errorf("secret dsn postgres://u:p@db"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "COMMON_001", body.Code)
	assert.Equal(t, errors.DefaultMessageForCode(errors.ErrCodeInternal), body.Message)
	assert.NotContains(t, w.Body.String(), "secret")

	entry, ok := log.Find("error", "request failed")
	require.True(t, ok)
	id, _ := entry.Field("request_id")
	assert.Equal(t, "req-9", id)
}

func TestWriteAppError_ClientErrorsAreNotLogged(t *testing.T) {
	t.Parallel()
	log := testutil.NewMockLogger()
	w := httptest.NewRecorder()

	writeAppError(w, httptest.NewRequest(http.MethodGet, "/", nil), log,
		errors.Wrap(fmt.Errorf("inner cause"), errors.ErrCodeValidation, "malformed request body"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "malformed request body", body.Message)
	assert.Empty(t, log.GetMessages())
}

//Personal.AI order the ending
