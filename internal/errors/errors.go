package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConnectionFailed indicates the database could not be opened or pinged
	ConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// QueryFailed indicates a statement failed to execute
	QueryFailed ErrorCode = "QUERY_FAILED"
	// TxState indicates a transaction operation in the wrong state
	// (begin while active, commit/rollback while idle)
	TxState ErrorCode = "TX_STATE"
	// CacheCorrupt indicates a cache entry could not be decoded
	CacheCorrupt ErrorCode = "CACHE_CORRUPT"
	// ValidationFailed indicates form input failed validation
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	// NotFound indicates a record doesn't exist
	NotFound ErrorCode = "NOT_FOUND"
	// Unauthorized indicates missing or invalid credentials
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// InvalidTransition indicates a disallowed report status change
	InvalidTransition ErrorCode = "INVALID_TRANSITION"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error represents a tipline error with a stable code and message
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error     // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new Error with an underlying cause
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from err, or InternalError for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return InternalError
}
