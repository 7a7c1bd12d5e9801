package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the client.
type ErrorCode string

const (
	// ErrConfiguration marks a caller bug: unknown job kind or detail level,
	// missing API key, malformed option.
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrInvalidRequest marks a request struct that cannot be sent as-is.
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrTransport covers network failures, non-JSON responses and unexpected
	// statuses without a structured error body.
	ErrTransport ErrorCode = "TRANSPORT"
	// ErrAPI is a structured {code, message} payload returned by the service.
	ErrAPI ErrorCode = "API_ERROR"
	// ErrForbidden is a 403 whose body carries no job status.
	ErrForbidden ErrorCode = "FORBIDDEN"
	// ErrCancelled is returned when the caller's context ends a poll.
	ErrCancelled ErrorCode = "CANCELLED"
	// ErrPollLimit is returned when an optional attempt or deadline bound is hit.
	ErrPollLimit ErrorCode = "POLL_LIMIT"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	// APICode is the service's own error code from an error envelope.
	APICode string `json:"api_code,omitempty"`
	// Attempt is the polling attempt that produced the error, 0 outside polling.
	Attempt int    `json:"attempt,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.APICode != "" {
		msg = fmt.Sprintf("%s: %s", e.APICode, e.Message)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("attempt #%d: %s", e.Attempt, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code. It lets callers
// write errors.Is(err, types.NewError(types.ErrTransport, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithAPICode sets the service error code.
func (e *Error) WithAPICode(code string) *Error {
	e.APICode = code
	return e
}

// WithAttempt records the polling attempt number.
func (e *Error) WithAttempt(attempt int) *Error {
	e.Attempt = attempt
	return e
}

// WithJobID records the job the error belongs to.
func (e *Error) WithJobID(id JobID) *Error {
	e.JobID = string(id)
	return e
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether any *Error in the chain has the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsConfigurationError reports a catalog or option error.
func IsConfigurationError(err error) bool { return IsErrorCode(err, ErrConfiguration) }

// IsTransportError reports a transport failure.
func IsTransportError(err error) bool { return IsErrorCode(err, ErrTransport) }

// IsAPIError reports a structured service error.
func IsAPIError(err error) bool { return IsErrorCode(err, ErrAPI) }

// IsForbidden reports a 403 without a meaningful body.
func IsForbidden(err error) bool { return IsErrorCode(err, ErrForbidden) }

// IsCancelled reports a poll ended by its context.
func IsCancelled(err error) bool { return IsErrorCode(err, ErrCancelled) }
