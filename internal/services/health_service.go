package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"trawlscope/internal/config"
	"trawlscope/pkg/contracts"
	"trawlscope/pkg/contracts/domain"
)

// RunSource reports pipeline run activity for readiness checks.
// *operations.Manager satisfies this.
type RunSource interface {
	Current() (domain.PipelineRun, bool)
}

// ClientCounter reports connected WebSocket clients. *websocket.Hub
// satisfies this.
type ClientCounter interface {
	ClientCount() int
}

// HealthService answers liveness, readiness and version queries.
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     *config.Paths
	store     *SnapshotStore
	runs      RunSource
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth is the health of one subsystem within a readiness check.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats is the system statistics payload for the dashboard.
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	DatasetRecords   int     `json:"dataset_records"`
	DataFiles        int     `json:"data_files"`
	DataSizeBytes    int64   `json:"data_size_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. runs and clients may be nil;
// the corresponding checks and stats are then omitted.
func NewHealthService(version, buildTime, buildID string, paths *config.Paths, store *SnapshotStore, runs RunSource, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		store:     store,
		runs:      runs,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck reports liveness: the process is up and responding.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports whether the service can do useful work. A missing
// dataset degrades the check but does not fail it: the server still serves
// status queries and accepts refresh triggers before the first run.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["storage"] = hs.checkStorage()
	status.Services["dataset"] = hs.checkDataset()
	status.Services["operations"] = hs.checkOperations()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status == "not_ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// Version returns build and runtime version information.
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":     hs.version,
		"api_version": contracts.APIVersion,
		"data_format": contracts.DataFormatVersion,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	if contracts.GitCommit != "unknown" {
		result["git_commit"] = contracts.GitCommit
	}
	return result
}

// SystemStats returns system statistics for the dashboard status panel.
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if records, err := hs.store.Records(); err == nil {
		stats.DatasetRecords = len(records)
	}
	if hs.clients != nil {
		stats.WebSocketClients = hs.clients.ClientCount()
	}
	if hs.paths != nil {
		filepath.Walk(hs.paths.DataDir, func(path string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				stats.DataFiles++
				stats.DataSizeBytes += info.Size()
			}
			return nil
		})
	}
	return stats
}

// checkStorage verifies the data directory exists and is writable.
func (hs *HealthService) checkStorage() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	if _, err := os.Stat(hs.paths.DataDir); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("data directory not accessible: %v", err),
		}
	}
	probe := filepath.Join(hs.paths.DataDir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("data directory not writable: %v", err),
		}
	}
	os.Remove(probe)
	return ServiceHealth{Status: "ready"}
}

// checkDataset reports dataset availability.
func (hs *HealthService) checkDataset() ServiceHealth {
	if !hs.store.Loaded() {
		return ServiceHealth{
			Status:  "degraded",
			Message: "no dataset published yet, trigger a pipeline run",
		}
	}
	return ServiceHealth{Status: "ready"}
}

// checkOperations reports run manager state.
func (hs *HealthService) checkOperations() ServiceHealth {
	if hs.runs == nil {
		return ServiceHealth{Status: "not_ready", Message: "run manager not initialized"}
	}
	if run, ok := hs.runs.Current(); ok {
		return ServiceHealth{
			Status:  "ready",
			Message: fmt.Sprintf("run %s in progress", run.ID),
		}
	}
	return ServiceHealth{Status: "ready"}
}
