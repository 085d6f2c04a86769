package errors

import (
	"net/http"
)

// NewError creates a new APIError with the given parameters.
// It is a general-purpose constructor that allows full control over
// the error's fields. For most cases, use one of the specialized
// constructors below.
func NewError(errType ErrorType, detail string, code int, requestID string, err error) *APIError {
	return &APIError{
		Type:      errType,
		Detail:    detail,
		Code:      code,
		RequestID: requestID,
		err:       err,
	}
}

// NewValidationError creates a validation error with appropriate defaults.
// Use this for any request validation failures, such as:
//   - None of text, image, or audio supplied
//   - Undecodable image uploads
//   - Malformed multipart bodies
func NewValidationError(requestID, detail string) *APIError {
	return &APIError{
		Type:      ValidationError,
		Detail:    detail,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
	}
}

// NewConfigError creates a misconfiguration error. It is surfaced before
// any upstream call is attempted, independent of the request content.
func NewConfigError(requestID, detail string) *APIError {
	return &APIError{
		Type:      ConfigError,
		Detail:    detail,
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
	}
}

// NewProviderError creates an upstream error. The raw error string is
// exposed to the caller in detail; nothing is retried or redacted.
func NewProviderError(requestID string, err error) *APIError {
	detail := "upstream model call failed"
	if err != nil {
		detail = err.Error()
	}
	return &APIError{
		Type:      ProviderError,
		Detail:    detail,
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}

// NewInternalError creates an internal server error with appropriate
// defaults. Use this for unexpected errors not covered by other types,
// such as panics or encoding failures.
func NewInternalError(requestID string, err error) *APIError {
	return &APIError{
		Type:      InternalError,
		Detail:    "an internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
