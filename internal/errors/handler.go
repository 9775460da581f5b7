package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem type URIs following RFC 7807.
const (
	TypeValidation  = "/errors/validation"
	TypeNotFound    = "/errors/not-found"
	TypeRateLimit   = "/errors/rate-limit"
	TypeInternal    = "/errors/internal"
	TypeServiceDown = "/errors/service-unavailable"
	TypeTimeout     = "/errors/timeout"
	TypeConflict    = "/errors/conflict"
)

// Domain-specific problem type URIs.
const (
	TypeSchemaMismatch   = "/errors/schema-mismatch"
	TypeSnapshotNotFound = "/errors/snapshot-not-found"
	TypeDatasetNotLoaded = "/errors/dataset-not-loaded"
	TypeRunNotFound      = "/errors/run-not-found"
	TypeRunActive        = "/errors/run-already-active"
	TypeSpeciesNotFound  = "/errors/species-not-found"
)

// problemClass is one row of the sentinel-to-problem table. An empty detail
// means the error's own message is safe to expose.
type problemClass struct {
	sentinel error
	status   int
	typeURI  string
	title    string
	detail   string
}

// sentinelClasses maps pipeline and serving sentinels to HTTP problems,
// matched in order with errors.Is.
var sentinelClasses = []problemClass{
	{ErrSchemaMismatch, http.StatusUnprocessableEntity, TypeSchemaMismatch, "Snapshot Schema Mismatch", ""},
	{ErrDatasetNotLoaded, http.StatusServiceUnavailable, TypeDatasetNotLoaded, "Dataset Not Loaded", "The cleaned dataset has not been loaded yet"},
	{ErrRunAlreadyActive, http.StatusConflict, TypeRunActive, "Run Already Active", "A pipeline run is already in progress"},
	{ErrUnknownSpecies, http.StatusNotFound, TypeSpeciesNotFound, "Species Not Found", ""},
	{ErrUnknownRun, http.StatusNotFound, TypeRunNotFound, "Run Not Found", ""},
	{ErrSnapshotNotFound, http.StatusNotFound, TypeSnapshotNotFound, "Snapshot Not Found", ""},
}

// apiErrorTypes maps APIError codes to problem type URIs. Codes missing from
// the table render as internal.
var apiErrorTypes = map[string]string{
	"VALIDATION_FAILED":   TypeValidation,
	"INVALID_REQUEST":     TypeValidation,
	"MISSING_PARAMETER":   TypeValidation,
	"NOT_FOUND":           TypeNotFound,
	"SPECIES_NOT_FOUND":   TypeNotFound,
	"RUN_NOT_FOUND":       TypeNotFound,
	"SNAPSHOT_NOT_FOUND":  TypeNotFound,
	"CONFLICT":            TypeConflict,
	"RUN_IN_FLIGHT":       TypeConflict,
	"RATE_LIMIT_EXCEEDED": TypeRateLimit,
	"SCHEMA_MISMATCH":     TypeSchemaMismatch,
	"DATASET_UNAVAILABLE": TypeDatasetNotLoaded,
}

// appErrorClasses maps the AppError taxonomy to status and problem type.
// Storage, parsing, config, and internal types fall through to 500.
var appErrorClasses = map[ErrorType]struct {
	status  int
	typeURI string
}{
	ErrTypeValidation: {http.StatusBadRequest, TypeValidation},
	ErrTypeNotFound:   {http.StatusNotFound, TypeNotFound},
	ErrTypeConflict:   {http.StatusConflict, TypeConflict},
	ErrTypeSchema:     {http.StatusUnprocessableEntity, TypeSchemaMismatch},
}

// ErrorHandler renders every handler error as an RFC 7807 response and logs
// it with the request context.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates the handler. includeStack exposes stack traces in
// response bodies and belongs in development builds only.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError classifies err, logs it, and writes the problem response.
// A nil err writes nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem := h.ErrorToProblem(err, r).WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("stack", callerStack())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem classifies an error: context cancellation first, then the
// typed APIError/AppError taxonomies, then the sentinel table, then message
// heuristics. Anything unclassified becomes an opaque 500 so internal detail
// never leaks.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", instance)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiProblem(apiErr, instance)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appProblem(appErr, instance)
	}

	for _, class := range sentinelClasses {
		if !errors.Is(err, class.sentinel) {
			continue
		}
		detail := class.detail
		if detail == "" {
			detail = err.Error()
		}
		return NewProblemDetails(class.status, class.typeURI, class.title, detail, instance)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", msg, instance)
	case strings.Contains(msg, "rate limit"):
		return NewProblemDetails(http.StatusTooManyRequests, TypeRateLimit, "Rate Limit Exceeded",
			"Too many requests. Please try again later.", instance).
			WithExtension("retry_after", 60)
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", instance)
}

func apiProblem(apiErr *APIError, instance string) *ProblemDetails {
	typeURI, ok := apiErrorTypes[apiErr.ErrorCode]
	if !ok {
		typeURI = TypeInternal
	}

	problem := NewProblemDetails(apiErr.StatusCode, typeURI, http.StatusText(apiErr.StatusCode),
		apiErr.Message, instance).
		WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

func appProblem(appErr *AppError, instance string) *ProblemDetails {
	class, ok := appErrorClasses[appErr.Type]
	if !ok {
		class.status, class.typeURI = http.StatusInternalServerError, TypeInternal
	}

	problem := NewProblemDetails(class.status, class.typeURI, http.StatusText(class.status),
		appErr.Message, instance).
		WithExtension("error_type", string(appErr.Type))
	if len(appErr.Context) > 0 {
		problem.WithExtension("context", appErr.Context)
	}
	return problem
}

// HandlePanic logs a recovered panic with its stack and responds with an
// opaque 500. The panic value itself only reaches the body when includeStack
// is set.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred", r.URL.Path).
		WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", callerStack())
	}

	render.Render(w, r, problem)
}

// NotFound is the router's fallback for unknown API paths.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed is the router's fallback for known paths with the wrong
// verb.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusMethodNotAllowed, TypeInternal, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

func callerStack() string {
	buf := make([]byte, 8*1024)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
