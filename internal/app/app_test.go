package app

import (
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trawlscope/internal/config"
	"trawlscope/internal/infrastructure"
	"trawlscope/internal/operations"
	"trawlscope/internal/services"
	ws "trawlscope/internal/websocket"
	"trawlscope/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testApplication builds an Application without config.Load or telemetry
// exporters, enough to exercise the router.
func testApplication(t *testing.T) *Application {
	t.Helper()

	cfg := config.Default()
	cfg.Security.RateLimit.Enabled = false
	logger := testLogger()

	store := services.NewSnapshotStore(logger)
	manager := operations.NewManager(logger, nil, nil)
	hub := ws.NewHub(logger)

	app := &Application{
		Config:         cfg,
		Logger:         logger,
		Store:          store,
		Manager:        manager,
		Hub:            hub,
		SpeciesService: services.NewSpeciesService(store, logger),
		DatasetService: services.NewDatasetService(store, nil, logger),
		HealthService:  services.NewHealthService(Version, buildTime(), BuildID, nil, store, manager, hub, logger),
		OTelProviders:  &infrastructure.OTelProviders{Logger: logger},
	}
	app.setupRouter()
	return app
}

func TestSetupRouterRoutes(t *testing.T) {
	app := testApplication(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "health", method: "GET", path: "/api/health", expectedStatus: http.StatusOK},
		{name: "version", method: "GET", path: "/api/version", expectedStatus: http.StatusOK},
		{name: "stats", method: "GET", path: "/api/stats", expectedStatus: http.StatusOK},
		{name: "species without dataset", method: "GET", path: "/api/species", expectedStatus: http.StatusServiceUnavailable},
		{name: "dataset status", method: "GET", path: "/api/dataset/status", expectedStatus: http.StatusOK},
		{name: "operations history", method: "GET", path: "/api/operations", expectedStatus: http.StatusOK},
		{name: "refresh accepted", method: "POST", path: "/api/operations/refresh", expectedStatus: http.StatusAccepted},
		{name: "metrics absent without exporter", method: "GET", path: "/metrics", expectedStatus: http.StatusNotFound},
		{name: "unknown route", method: "GET", path: "/api/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			app.Router.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestSetupRouterAPINotFoundIsProblemJSON(t *testing.T) {
	app := testApplication(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/not-found")
}

func TestSetupRouterSecurityHeaders(t *testing.T) {
	app := testApplication(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCORSConfigFromSecurity(t *testing.T) {
	app := testApplication(t)
	app.Config.Security.AllowedOrigins = []string{"https://surveys.example.org"}

	cors := app.corsConfig()
	assert.Equal(t, []string{"https://surveys.example.org"}, cors.AllowedOrigins)
	assert.Contains(t, cors.AllowedMethods, "POST")
	assert.False(t, cors.AllowCredentials)
}

func TestGenerateBuildID(t *testing.T) {
	id := generateBuildID()
	assert.Len(t, id, 12)
	_, err := hex.DecodeString(id)
	require.NoError(t, err)
}

func TestCountSpecies(t *testing.T) {
	assert.Equal(t, 0, countSpecies(nil))

	records := []domain.CleanedBiomassRecord{
		{CommonName: "atlantic cod"},
		{CommonName: "atlantic cod"},
		{CommonName: "winter flounder"},
	}
	assert.Equal(t, 2, countSpecies(records))
}
