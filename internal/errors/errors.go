// Package errors defines the application error taxonomy and its HTTP
// rendering. Pipeline and service code returns *AppError (or wraps with %w);
// handlers map those to *APIError responses.
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the wire shape of a handler-level failure: an HTTP status, a
// stable machine-readable code, and a human-readable message. Details carries
// structured payloads such as per-field validation failures.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New builds an APIError from its three required parts.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails builds an APIError carrying a structured details payload.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	e := New(statusCode, errorCode, message)
	e.Details = details
	return e
}

// The API error vocabulary. Handlers return these directly or derive from
// them with details attached.
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrMissingParameter = New(http.StatusBadRequest, "MISSING_PARAMETER", "Required parameter is missing")

	ErrNotFound        = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrSpeciesNotFound = New(http.StatusNotFound, "SPECIES_NOT_FOUND", "Species not found in the eligible list")
	ErrRunNotFound     = New(http.StatusNotFound, "RUN_NOT_FOUND", "Pipeline run not found")

	ErrConflict    = New(http.StatusConflict, "CONFLICT", "Resource conflict")
	ErrRunInFlight = New(http.StatusConflict, "RUN_IN_FLIGHT", "A pipeline run is already in progress")

	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")

	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")

	ErrDatasetUnavailable = New(http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "Cleaned dataset is not loaded yet")
)

// InvalidRequestWithError reports a malformed request body, quoting the
// decode failure.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ValidationError describes one failed request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates multiple field failures.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ErrValidation reports a single failed field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// NewValidationErrors reports a batch of failed fields in one response.
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationErrors{Errors: errors})
}

// SchemaError reports an input snapshot whose columns do not match the
// expected schema.
func SchemaError(err error) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, "SCHEMA_MISMATCH", "Input snapshot schema mismatch", err.Error())
}
