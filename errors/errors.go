// Package errors defines the structured error taxonomy for the contact
// pipeline. Every expected rejection (invalid origin, rate limit, bad
// payload) is represented as an *AppError carrying the HTTP status and the
// detail that is safe to expose; the error handler middleware turns it into
// an RFC 7807 problem-details response.
package errors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	SecurityError             ErrorType = "SECURITY_ERROR"
	UnsupportedMediaTypeError ErrorType = "UNSUPPORTED_MEDIA_TYPE"
	RateLimitError            ErrorType = "RATE_LIMIT_EXCEEDED"
	PayloadTooLargeError      ErrorType = "PAYLOAD_TOO_LARGE"
	ValidationError           ErrorType = "VALIDATION_ERROR"
	MethodNotAllowedError     ErrorType = "METHOD_NOT_ALLOWED"
	ServerError               ErrorType = "SERVER_ERROR"
)

// FieldError describes a single schema-validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents a structured application error.
type AppError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Detail      string    `json:"detail,omitempty"`
	HTTPStatus  int       `json:"-"`
	Raw         error     `json:"-"`
	FieldErrors []FieldError
	// Extensions are additional problem-details members (retryAfter,
	// resetTime) echoed into the response body.
	Extensions map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status code for the error.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// SecurityViolation creates a 403 error for origin/referer failures.
// The detail is the only part shown to the client; keep it generic.
func SecurityViolation(detail string) *AppError {
	return &AppError{
		Type:       SecurityError,
		Message:    "Request blocked",
		Detail:     detail,
		HTTPStatus: http.StatusForbidden,
	}
}

// UnsupportedMediaType creates a 415 error for non-JSON submissions.
func UnsupportedMediaType(contentType string) *AppError {
	return &AppError{
		Type:       UnsupportedMediaTypeError,
		Message:    "Unsupported media type",
		Detail:     fmt.Sprintf("Content-Type must be application/json, got %q", contentType),
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
}

// RateLimitExceeded creates a 429 error carrying retry metadata.
// retryAfter is in seconds; resetTime is a Unix millisecond timestamp.
func RateLimitExceeded(message string, retryAfter int, resetTime int64) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    message,
		Detail:     "Too many submissions. Please wait before trying again.",
		HTTPStatus: http.StatusTooManyRequests,
		Extensions: map[string]interface{}{
			"retryAfter": retryAfter,
			"resetTime":  resetTime,
		},
	}
}

// PayloadTooLarge creates a 413 error for oversized request bodies.
func PayloadTooLarge(maxBytes int64) *AppError {
	return &AppError{
		Type:       PayloadTooLargeError,
		Message:    "Request body too large",
		Detail:     fmt.Sprintf("Request body must not exceed %d bytes", maxBytes),
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

// ValidationFailed creates a 400 error for a single validation problem
// (JSON parse failure, shape failure, sanitizer rejection).
func ValidationFailed(message string, detail string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

// SchemaValidationFailed creates a 400 error collecting all field-level
// violations so the client can fix everything in one round trip.
func SchemaValidationFailed(fieldErrors []FieldError) *AppError {
	return &AppError{
		Type:        ValidationError,
		Message:     "Validation failed",
		Detail:      "Please check your input and try again.",
		HTTPStatus:  http.StatusBadRequest,
		FieldErrors: fieldErrors,
	}
}

// MethodNotAllowed creates a 405 error for non-POST requests to the endpoint.
func MethodNotAllowed(method string) *AppError {
	return &AppError{
		Type:       MethodNotAllowedError,
		Message:    "Method not allowed",
		Detail:     fmt.Sprintf("%s is not supported on this endpoint", method),
		HTTPStatus: http.StatusMethodNotAllowed,
	}
}

// InternalServerError creates a 500 error with a generic client message.
func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps a raw error with AppError context. The raw error is kept for
// operator logs only and never serialized to the client.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	status := http.StatusInternalServerError
	if errType == ValidationError {
		status = http.StatusBadRequest
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: status,
		Raw:        err,
	}
}
