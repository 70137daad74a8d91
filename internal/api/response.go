package api

import (
	"encoding/json"
	"net/http"

	"tipline/internal/errors"
)

// ErrorBody represents an HTTP error response
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with automatic status mapping
func WriteError(w http.ResponseWriter, err error) {
	body := ErrorBody{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	// The code travels in its own field, so strip it from the message
	if e, ok := err.(*errors.Error); ok {
		body.Error = e.Message
		body.Code = string(e.Code)
		body.Details = e.Details
	}

	WriteJSON(w, body, statusFor(errors.CodeOf(err)))
}

// statusFor maps error codes to HTTP status codes
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.NotFound:
		return http.StatusNotFound // 404
	case errors.ValidationFailed:
		return http.StatusBadRequest // 400
	case errors.Unauthorized:
		return http.StatusUnauthorized // 401
	case errors.InvalidTransition:
		return http.StatusUnprocessableEntity // 422
	case errors.ConnectionFailed:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.ValidationFailed, message))
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.NotFound, message))
}

// Unauthorized writes a 401 Unauthorized error
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.Unauthorized, message))
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.InternalError, message))
}

// MethodNotAllowed writes a 405 response
func MethodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
