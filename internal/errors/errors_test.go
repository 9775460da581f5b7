package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name:     "simple message",
			apiError: New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format"),
			want:     "Invalid request format",
		},
		{
			name:     "empty message",
			apiError: New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", ""),
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.apiError.Error())
		})
	}
}

func TestAPIError_Render(t *testing.T) {
	apiErr := New(http.StatusConflict, "RUN_IN_FLIGHT", "A pipeline run is already in progress")

	req := httptest.NewRequest("POST", "/api/operations/refresh", nil)
	rec := httptest.NewRecorder()

	err := render.Render(rec, req, apiErr)

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RUN_IN_FLIGHT", body["error_code"])
	assert.Equal(t, float64(http.StatusConflict), body["status_code"])
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]string{"column": "BIOMASS"}
	apiErr := NewWithDetails(http.StatusUnprocessableEntity, "SCHEMA_MISMATCH", "Input snapshot schema mismatch", details)

	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "SCHEMA_MISMATCH", apiErr.ErrorCode)
	assert.Equal(t, details, apiErr.Details)
}

func TestErrValidation(t *testing.T) {
	apiErr := ErrValidation("season", "must be Spring or Fall")

	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

	detail, ok := apiErr.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "season", detail.Field)
	assert.Equal(t, "must be Spring or Fall", detail.Message)
}

func TestInvalidRequestWithError(t *testing.T) {
	apiErr := InvalidRequestWithError(errors.New("unexpected end of JSON input"))

	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", apiErr.ErrorCode)
	assert.Equal(t, "unexpected end of JSON input", apiErr.Details)
}

func TestSchemaError(t *testing.T) {
	apiErr := SchemaError(errors.New("missing required columns: SVSPP, BIOMASS"))

	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "SCHEMA_MISMATCH", apiErr.ErrorCode)
	assert.Contains(t, apiErr.Details, "SVSPP")
}

func TestNewValidationErrors(t *testing.T) {
	apiErr := NewValidationErrors([]ValidationError{
		{Field: "limit", Message: "must be an integer"},
		{Field: "season", Message: "unknown season"},
	})

	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	detail, ok := apiErr.Details.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, detail.Errors, 2)
	assert.Equal(t, "limit", detail.Errors[0].Field)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation failed", ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing parameter", ErrMissingParameter, http.StatusBadRequest, "MISSING_PARAMETER"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"species not found", ErrSpeciesNotFound, http.StatusNotFound, "SPECIES_NOT_FOUND"},
		{"run not found", ErrRunNotFound, http.StatusNotFound, "RUN_NOT_FOUND"},
		{"conflict", ErrConflict, http.StatusConflict, "CONFLICT"},
		{"run in flight", ErrRunInFlight, http.StatusConflict, "RUN_IN_FLIGHT"},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"internal", ErrInternalServer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"dataset unavailable", ErrDatasetUnavailable, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeSpeciesNotFound,
		"Species Not Found",
		"no eligible species named GOOSEFISH",
		"/api/species/GOOSEFISH/annual",
	).WithExtension("trace_id", "req-1")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeSpeciesNotFound, body["type"])
	assert.Equal(t, "Species Not Found", body["title"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.Equal(t, "no eligible species named GOOSEFISH", body["detail"])
	assert.Equal(t, "/api/species/GOOSEFISH/annual", body["instance"])
	assert.Equal(t, "req-1", body["trace_id"])
}

func TestProblemDetails_MarshalJSON_OmitsEmptyFields(t *testing.T) {
	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error", "", "")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")
}
