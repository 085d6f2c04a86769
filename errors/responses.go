// Package errors provides error response utilities.
package errors

import (
	"errors"
)

const RequestIDKey = "request_id"

// ErrorResponse represents the standardized error body returned to
// clients when an error occurs.
type ErrorResponse struct {
	Type      ErrorType `json:"type"`
	Detail    string    `json:"detail"`
	RequestID string    `json:"request_id,omitempty"`
}

// As is a wrapper around errors.As for better error type assertion
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
