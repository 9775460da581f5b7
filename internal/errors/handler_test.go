package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewErrorHandler(t *testing.T) {
	handler := NewErrorHandler(testLogger(), true)

	require.NotNil(t, handler)
	assert.True(t, handler.includeStack)
	assert.NotNil(t, handler.logger)
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "context canceled",
			err:        context.Canceled,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "schema mismatch sentinel",
			err:        fmt.Errorf("raw snapshot: %w", ErrSchemaMismatch),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchemaMismatch,
			wantTitle:  "Snapshot Schema Mismatch",
		},
		{
			name:       "dataset not loaded sentinel",
			err:        fmt.Errorf("listing species: %w", ErrDatasetNotLoaded),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDatasetNotLoaded,
			wantTitle:  "Dataset Not Loaded",
		},
		{
			name:       "run already active sentinel",
			err:        fmt.Errorf("%w: run abc in progress", ErrRunAlreadyActive),
			wantStatus: http.StatusConflict,
			wantType:   TypeRunActive,
			wantTitle:  "Run Already Active",
		},
		{
			name:       "unknown species sentinel",
			err:        fmt.Errorf("%w: GOOSEFISH", ErrUnknownSpecies),
			wantStatus: http.StatusNotFound,
			wantType:   TypeSpeciesNotFound,
			wantTitle:  "Species Not Found",
		},
		{
			name:       "unknown run sentinel",
			err:        fmt.Errorf("%w: run-404", ErrUnknownRun),
			wantStatus: http.StatusNotFound,
			wantType:   TypeRunNotFound,
			wantTitle:  "Run Not Found",
		},
		{
			name:       "snapshot not found sentinel",
			err:        fmt.Errorf("%w: data/clean/survdat_clean.csv", ErrSnapshotNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   TypeSnapshotNotFound,
			wantTitle:  "Snapshot Not Found",
		},
		{
			name:       "api error validation",
			err:        ErrValidation("limit", "must be between 1 and 100"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "api error species not found",
			err:        ErrSpeciesNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "app error schema",
			err:        NewSchemaError("missing required columns", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchemaMismatch,
			wantTitle:  "Unprocessable Entity",
		},
		{
			name:       "app error not found",
			err:        NewNotFoundError("species"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "app error conflict",
			err:        NewConflictError("run already active"),
			wantStatus: http.StatusConflict,
			wantType:   TypeConflict,
			wantTitle:  "Conflict",
		},
		{
			name:       "plain not found message",
			err:        errors.New("annual summary not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Resource Not Found",
		},
		{
			name:       "plain rate limit message",
			err:        errors.New("rate limit exceeded for 10.0.0.1"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
			wantTitle:  "Rate Limit Exceeded",
		},
		{
			name:       "generic error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewErrorHandler(testLogger(), false)
			req := httptest.NewRequest("GET", "/api/test", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, tt.wantTitle, body["title"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/test", body["instance"])
		})
	}
}

func TestErrorHandler_HandleError_NilError(t *testing.T) {
	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("GET", "/api/test", nil)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, nil)

	assert.Empty(t, rec.Body.String())
}

func TestErrorHandler_HandleError_GenericHidesDetail(t *testing.T) {
	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("GET", "/api/test", nil)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, errors.New("pq: connection refused"))

	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestErrorHandler_HandleError_IncludeStack(t *testing.T) {
	handler := NewErrorHandler(testLogger(), true)
	req := httptest.NewRequest("GET", "/api/test", nil)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, errors.New("boom"))

	body := decodeProblem(t, rec)
	assert.Contains(t, body, "stack")
}

func TestErrorHandler_APIErrorExtensions(t *testing.T) {
	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("GET", "/api/species", nil)
	rec := httptest.NewRecorder()

	handler.HandleError(rec, req, ErrValidation("season", "unknown season"))

	body := decodeProblem(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])

	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "season", details["field"])
}

func TestErrorHandler_AppErrorContext(t *testing.T) {
	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("GET", "/api/dataset/status", nil)
	rec := httptest.NewRecorder()

	appErr := NewStorageError("snapshot read failed", nil).
		WithContext("path", "data/clean/survdat_clean.csv")
	handler.HandleError(rec, req, appErr)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeProblem(t, rec)
	assert.Equal(t, "STORAGE", body["error_type"])

	ctx, ok := body["context"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "data/clean/survdat_clean.csv", ctx["path"])
}

func TestErrorToProblem_APIErrorCodeMapping(t *testing.T) {
	tests := []struct {
		code     string
		wantType string
	}{
		{"VALIDATION_FAILED", TypeValidation},
		{"INVALID_REQUEST", TypeValidation},
		{"MISSING_PARAMETER", TypeValidation},
		{"NOT_FOUND", TypeNotFound},
		{"SPECIES_NOT_FOUND", TypeNotFound},
		{"RUN_NOT_FOUND", TypeNotFound},
		{"CONFLICT", TypeConflict},
		{"RUN_IN_FLIGHT", TypeConflict},
		{"RATE_LIMIT_EXCEEDED", TypeRateLimit},
		{"SCHEMA_MISMATCH", TypeSchemaMismatch},
		{"DATASET_UNAVAILABLE", TypeDatasetNotLoaded},
		{"SOMETHING_ELSE", TypeInternal},
	}

	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("GET", "/api/test", nil)

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			problem := handler.ErrorToProblem(New(http.StatusTeapot, tt.code, "message"), req)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("GET", "/api/test", nil)
	rec := httptest.NewRecorder()

	handler.HandlePanic(rec, req, "runtime error: index out of range")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.NotContains(t, body, "panic")
}

func TestErrorHandler_HandlePanic_IncludeStack(t *testing.T) {
	handler := NewErrorHandler(testLogger(), true)
	req := httptest.NewRequest("GET", "/api/test", nil)
	rec := httptest.NewRecorder()

	handler.HandlePanic(rec, req, "boom")

	body := decodeProblem(t, rec)
	assert.Equal(t, "boom", body["panic"])
	assert.Contains(t, body, "stack")
}

func TestErrorHandler_NotFound(t *testing.T) {
	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("GET", "/api/missing", nil)
	rec := httptest.NewRecorder()

	handler.NotFound(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeProblem(t, rec)
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "/api/missing", body["instance"])
}

func TestErrorHandler_MethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(testLogger(), false)
	req := httptest.NewRequest("DELETE", "/api/species", nil)
	rec := httptest.NewRecorder()

	handler.MethodNotAllowed(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}
