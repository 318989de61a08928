package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessagingError     ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Appointment Module Error Codes
const (
	ErrCodeTimezoneResolution  ErrorCode = "APT_001"
	ErrCodeInvalidTransition   ErrorCode = "APT_002"
	ErrCodeUnknownStatus       ErrorCode = "APT_003"
	ErrCodeAppointmentNotFound ErrorCode = "APT_004"
	ErrCodeCalendarLinkFailed  ErrorCode = "APT_005"
	ErrCodeMeetLinkFailed      ErrorCode = "APT_006"
	ErrCodeBackfillFailed      ErrorCode = "APT_007"
	ErrCodeStaleStatus         ErrorCode = "APT_008"
)

// Aliases used across layers.
const (
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeValidation     = ErrCodeValidation
	CodePersistence    = ErrCodeDatabaseError
	CodeUnavailable    = ErrCodeServiceUnavailable
	CodeNotImplemented = ErrCodeNotImplemented
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusServiceUnavailable,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeTimezoneResolution:  http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:   http.StatusConflict,
	ErrCodeUnknownStatus:       http.StatusBadRequest,
	ErrCodeAppointmentNotFound: http.StatusNotFound,
	ErrCodeCalendarLinkFailed:  http.StatusInternalServerError,
	ErrCodeMeetLinkFailed:      http.StatusBadGateway,
	ErrCodeBackfillFailed:      http.StatusInternalServerError,
	ErrCodeStaleStatus:         http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "persistence error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeMessagingError:     "messaging error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeTimezoneResolution:  "time zone could not be resolved",
	ErrCodeInvalidTransition:   "invalid status transition",
	ErrCodeUnknownStatus:       "unknown appointment status",
	ErrCodeAppointmentNotFound: "appointment not found",
	ErrCodeCalendarLinkFailed:  "calendar link could not be built",
	ErrCodeMeetLinkFailed:      "meeting link provider failed",
	ErrCodeBackfillFailed:      "calendar link backfill failed",
	ErrCodeStaleStatus:         "appointment changed since it was read",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
