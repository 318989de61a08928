// Package errors provides the unified error type and factory functions for
// SessionSync.  Every layer (domain, application, infrastructure, interfaces)
// uses AppError as the single carrier for structured error information, so
// HTTP responses, CLI output, logs and backfill failure reports stay
// consistent.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and the factory).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError: the canonical error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout SessionSync.
// It satisfies the standard error interface and supports errors.Is / errors.As
// through Unwrap.
//
// Usage:
//
//	return errors.UnknownStatus(raw)
//	return errors.Persistence(err, "update calendar link").WithDetail("id=" + id)
type AppError struct {
	// Code is the typed error code that identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (ids, zone names, raw input).
	Detail string

	// Cause is the underlying error, if any.
	Cause error

	// Stack is the call stack captured at creation.  Never part of Error().
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>: <cause>" with empty segments omitted.
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(e.Code.String())
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *AppError carrying the same code.  It lets
// callers compare against sentinel AppErrors with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fluent builder methods
// ─────────────────────────────────────────────────────────────────────────────

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.
// If err is nil, Wrap returns nil so it can be used inline.
//
// When code is CodeUnknown and err already carries an *AppError the original
// code is preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain error taxonomy
// ─────────────────────────────────────────────────────────────────────────────

// Validation reports a required field that is missing or malformed.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Stack: captureStack(1)}
}

// TimezoneResolution reports an IANA zone identifier that could not be loaded.
func TimezoneResolution(zone string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeTimezoneResolution,
		Message: "unknown time zone",
		Detail:  fmt.Sprintf("zone=%q", zone),
		Cause:   cause,
		Stack:   captureStack(1),
	}
}

// InvalidTransition reports a status change that the lifecycle forbids.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidTransition,
		Message: "invalid status transition",
		Detail:  fmt.Sprintf("%s -> %s", from, to),
		Stack:   captureStack(1),
	}
}

// UnknownStatus reports a status string that matches no canonical value or alias.
func UnknownStatus(raw string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownStatus,
		Message: "unknown appointment status",
		Detail:  fmt.Sprintf("status=%q", raw),
		Stack:   captureStack(1),
	}
}

// Persistence wraps a store read or write failure.  Unlike Wrap it never
// returns nil, so a nil cause still yields a usable error.
func Persistence(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeDatabaseError,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// StaleStatus reports a conditional write that found the stored status no
// longer equal to the value it was read with.
func StaleStatus(id, expected string) *AppError {
	return &AppError{
		Code:    ErrCodeStaleStatus,
		Message: "appointment changed since it was read",
		Detail:  fmt.Sprintf("id=%s expected_status=%q", id, expected),
		Stack:   captureStack(1),
	}
}

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

// AppointmentNotFound constructs an ErrCodeAppointmentNotFound AppError.
func AppointmentNotFound(id string) *AppError {
	return &AppError{
		Code:    ErrCodeAppointmentNotFound,
		Message: "appointment not found",
		Detail:  "id=" + id,
		Stack:   captureStack(1),
	}
}

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Conflict constructs a CodeConflict AppError.
func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		if ae, ok := err.(*AppError); ok && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain carries CodeNotFound or
// ErrCodeAppointmentNotFound.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound) || IsCode(err, ErrCodeAppointmentNotFound)
}

// IsValidation reports whether err's chain carries a validation failure.
func IsValidation(err error) bool {
	return IsCode(err, ErrCodeValidation) || IsCode(err, ErrCodeBadRequest)
}

// IsTimezoneResolution reports whether err's chain carries ErrCodeTimezoneResolution.
func IsTimezoneResolution(err error) bool { return IsCode(err, ErrCodeTimezoneResolution) }

// IsInvalidTransition reports whether err's chain carries ErrCodeInvalidTransition.
func IsInvalidTransition(err error) bool { return IsCode(err, ErrCodeInvalidTransition) }

// IsUnknownStatus reports whether err's chain carries ErrCodeUnknownStatus.
func IsUnknownStatus(err error) bool { return IsCode(err, ErrCodeUnknownStatus) }

// IsPersistence reports whether err's chain carries ErrCodeDatabaseError.
func IsPersistence(err error) bool { return IsCode(err, ErrCodeDatabaseError) }

// IsStaleStatus reports whether err's chain carries ErrCodeStaleStatus.
func IsStaleStatus(err error) bool { return IsCode(err, ErrCodeStaleStatus) }

// IsConflict reports whether err's chain carries CodeConflict.
func IsConflict(err error) bool { return IsCode(err, CodeConflict) }

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// If no *AppError is present, CodeUnknown is returned.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

//Personal.AI order the ending
