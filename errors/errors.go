// Package errors provides the error handling system for the LocalMind AI
// backend. It includes structured error types, JSON response formatting,
// request ID tracking, and integrated logging with Uber's zap logger.
//
// Every failure that escapes a handler is converted into a single JSON
// shape carrying the error category and the raw error string in "detail".
// The detail string is deliberately unredacted; callers of this API see
// exactly what went wrong.
//
// Basic usage:
//
//	// Simple error response
//	errors.Error(w, "Something went wrong", http.StatusBadRequest)
//
//	// Type-specific error with context
//	errors.ErrorWithType(w, "Invalid input", errors.ValidationError, http.StatusBadRequest)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the
// package. It is initialized to a production configuration but can be
// overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType represents the categories of errors the service can surface.
type ErrorType string

const (
	// ValidationError represents request validation failures (HTTP 400)
	ValidationError ErrorType = "validation_error"

	// ConfigError represents server misconfiguration, such as a missing
	// Gemini credential (HTTP 500)
	ConfigError ErrorType = "config_error"

	// ProviderError represents failures of the upstream Gemini call
	// (HTTP 500)
	ProviderError ErrorType = "provider_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"
)

// APIError is our custom error type that implements the error interface
// and provides additional context about the error. It serializes to the
// public JSON error shape while keeping the underlying error available
// for logging and unwrapping.
type APIError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Detail is the human-readable error description exposed to the
	// caller, unredacted
	Detail string `json:"detail"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface. It returns a string that
// combines the error type, detail, and underlying error (if any).
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Detail, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Detail)
}

// Unwrap returns the underlying error, implementing the unwrap
// interface for error chains.
func (e *APIError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, allowing type-based
// error matching while ignoring other fields.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError formats and writes an APIError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes
// the error as a JSON response.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}

// Error is a drop-in replacement for http.Error that creates and writes
// an APIError with the InternalError type. It automatically includes
// the request ID from the response headers if available.
func Error(w http.ResponseWriter, detail string, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &APIError{
		Type:      InternalError,
		Detail:    detail,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}

// ErrorWithType is like Error but allows specifying the error type.
func ErrorWithType(w http.ResponseWriter, detail string, errType ErrorType, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &APIError{
		Type:      errType,
		Detail:    detail,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}
