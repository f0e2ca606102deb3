package http

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of a failed call
type ErrorType string

const (
	// NetworkError means no response was received: connection refused, DNS failure,
	// reset, or an attempt that ran past its timeout. The only retryable type.
	NetworkError ErrorType = "network"
	// AuthInvalidError means the backend answered 401 or 403.
	AuthInvalidError ErrorType = "auth_invalid"
	// ClientStatusError means the backend answered with any other 4xx.
	ClientStatusError ErrorType = "client"
	// ServerStatusError means the backend answered with a 5xx.
	ServerStatusError ErrorType = "server"
	// MalformedError means a response body could not be decoded.
	MalformedError ErrorType = "malformed"
	// NotAuthenticatedError means no credential was stored; nothing was sent.
	NotAuthenticatedError ErrorType = "not_authenticated"
	// CanceledError means the caller's context ended before the call completed.
	CanceledError ErrorType = "canceled"
	// ValidationError means the request was rejected locally before sending.
	ValidationError ErrorType = "validation"
)

// Sentinel errors wrapped by session-level outcomes.
var (
	// ErrNotAuthenticated is wrapped when a call is refused because no credential is stored.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrReloginRequired is wrapped when the backend rejected the stored credential.
	ErrReloginRequired = errors.New("authentication failed, re-login required")
)

// Error is the typed failure returned for every non-success path.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int    // 0 when no response was received
	Body       []byte // raw response body when a response was received
	Cause      Cause  // transport signature for network errors
	Attempts   int    // attempts made, set by the retry coordinator
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status: %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was an abandoned attempt.
func (e *Error) Timeout() bool {
	return e.Type == NetworkError && e.Cause == CauseTimeout
}

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	return e.Type == NetworkError
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause Cause, wrapped error) *Error {
	return &Error{Type: NetworkError, Message: message, Cause: cause, Err: wrapped}
}

// NewStatusError creates an error for a non-2xx response, classified by status code.
func NewStatusError(message string, statusCode int, body []byte) *Error {
	return &Error{
		Type:       ClassifyStatus(statusCode),
		Message:    message,
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewMalformedError creates an error for an undecodable response body
func NewMalformedError(statusCode int, body []byte, wrapped error) *Error {
	return &Error{
		Type:       MalformedError,
		Message:    "response body could not be decoded",
		StatusCode: statusCode,
		Body:       body,
		Err:        wrapped,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, wrapped error) *Error {
	return &Error{Type: ValidationError, Message: message, Err: wrapped}
}

// NewCanceledError creates an error for a call abandoned by its caller
func NewCanceledError(wrapped error) *Error {
	return &Error{Type: CanceledError, Message: "call canceled", Cause: CauseCanceled, Err: wrapped}
}

// NewNotAuthenticatedError creates the error returned when no credential is stored
func NewNotAuthenticatedError() *Error {
	return &Error{Type: NotAuthenticatedError, Message: "no stored credential", Err: ErrNotAuthenticated}
}

// NewReloginRequiredError wraps an auth_invalid failure so callers can match ErrReloginRequired.
func NewReloginRequiredError(cause *Error) *Error {
	e := &Error{Type: AuthInvalidError, Message: "credential rejected", Err: ErrReloginRequired}
	if cause != nil {
		e.Message = cause.Message
		e.StatusCode = cause.StatusCode
		e.Body = cause.Body
		e.Attempts = cause.Attempts
		e.Err = fmt.Errorf("%w: %w", ErrReloginRequired, cause)
	}
	return e
}

// TypeOf returns the ErrorType carried by err, or "" when err is not a *Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) == errorType
}

// IsHTTPStatusError checks if an error carries a specific HTTP status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == statusCode
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
