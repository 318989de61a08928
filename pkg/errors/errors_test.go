// Package errors_test covers the AppError type, the domain taxonomy
// constructors and the error-chain helpers.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"validation", errors.CodeValidation, "date is required"},
		{"appointment not found", errors.ErrCodeAppointmentNotFound, "appointment a-1 not found"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection reset")
	wrapped := errors.Wrap(root, errors.CodePersistence, "update failed")

	require.NotNil(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, root))
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.Contains(t, wrapped.Error(), "[COMMON_012] update failed")
}

func TestWrap_UnknownCodePreservesOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.UnknownStatus("maybe")
	outer := errors.Wrap(inner, errors.CodeUnknown, "classify failed")

	assert.Equal(t, errors.ErrCodeUnknownStatus, outer.Code)
}

func TestAppError_ErrorFormat(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeValidation, "bad time").WithDetail(`time="25:00"`)
	assert.Equal(t, `[COMMON_010] bad time: time="25:00"`, ae.Error())
}

func TestWithDetail_NilReceiver(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	base := errors.New(errors.CodeInternal, "boom")
	withDetail := base.WithDetail("id=1")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "id=1", withDetail.Detail)
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain taxonomy
// ─────────────────────────────────────────────────────────────────────────────

func TestTaxonomy_Predicates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		err   error
		check func(error) bool
		code  errors.ErrorCode
	}{
		{"validation", errors.Validation("date is required"), errors.IsValidation, errors.ErrCodeValidation},
		{"timezone", errors.TimezoneResolution("Mars/Olympus", nil), errors.IsTimezoneResolution, errors.ErrCodeTimezoneResolution},
		{"transition", errors.InvalidTransition("rejected", "confirmed"), errors.IsInvalidTransition, errors.ErrCodeInvalidTransition},
		{"unknown status", errors.UnknownStatus("peut-être"), errors.IsUnknownStatus, errors.ErrCodeUnknownStatus},
		{"persistence", errors.Persistence(stderrors.New("disk full"), "write failed"), errors.IsPersistence, errors.ErrCodeDatabaseError},
		{"not found", errors.AppointmentNotFound("a-1"), errors.IsNotFound, errors.ErrCodeAppointmentNotFound},
		{"stale status", errors.StaleStatus("a-1", "pending"), errors.IsStaleStatus, errors.ErrCodeStaleStatus},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, tc.check(tc.err))
			assert.Equal(t, tc.code, errors.GetCode(tc.err))

			wrapped := fmt.Errorf("outer: %w", tc.err)
			assert.True(t, tc.check(wrapped), "predicate must see through fmt wrapping")
		})
	}
}

func TestPersistence_NilCauseStillUsable(t *testing.T) {
	t.Parallel()

	err := errors.Persistence(nil, "simulated write error")
	require.NotNil(t, err)
	assert.True(t, errors.IsPersistence(err))
	assert.Equal(t, "[COMMON_012] simulated write error", err.Error())
}

func TestTimezoneResolution_CarriesZone(t *testing.T) {
	t.Parallel()

	err := errors.TimezoneResolution("Europe/Atlantis", stderrors.New("unknown time zone Europe/Atlantis"))
	assert.Contains(t, err.Error(), `zone="Europe/Atlantis"`)
	assert.NotNil(t, stderrors.Unwrap(err))
}

func TestIs_ComparesByCode(t *testing.T) {
	t.Parallel()

	sentinel := errors.New(errors.CodeConflict, "lease not acquired")
	err := fmt.Errorf("tick: %w", errors.New(errors.CodeConflict, "lease not acquired"))

	assert.True(t, stderrors.Is(err, sentinel))
	assert.False(t, stderrors.Is(err, errors.New(errors.CodeConflict, "other")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeUnknownStatus, errors.GetCode(errors.UnknownStatus("x")))
}

//Personal.AI order the ending
