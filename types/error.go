package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the dispatch engine.
type ErrorCode string

// Request and backend error codes
const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Execution loop error codes
const (
	ErrArgumentParse     ErrorCode = "ARGUMENT_PARSE"
	ErrFunctionExecution ErrorCode = "FUNCTION_EXECUTION"
	ErrFunctionNotFound  ErrorCode = "FUNCTION_NOT_FOUND"
	ErrProviderNotSet    ErrorCode = "PROVIDER_NOT_SET"
)

// Registry and handoff error codes
const (
	ErrAgentNotFound          ErrorCode = "AGENT_NOT_FOUND"
	ErrAgentAlreadyRegistered ErrorCode = "AGENT_ALREADY_REGISTERED"
	ErrHandoffDepthExceeded   ErrorCode = "HANDOFF_DEPTH_EXCEEDED"
	ErrUnknownTrigger         ErrorCode = "UNKNOWN_TRIGGER"
	ErrSessionStore           ErrorCode = "SESSION_STORE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
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

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
