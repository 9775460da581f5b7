package services

import (
	"context"
	"log/slog"
	"os"
	"time"

	"trawlscope/internal/config"
	"trawlscope/pkg/contracts/domain"
)

// DatasetService reports on the published dataset and the snapshot files
// behind it for the dashboard status panel.
type DatasetService struct {
	store  *SnapshotStore
	paths  *config.Paths
	logger *slog.Logger
}

// NewDatasetService creates a dataset service. paths may be nil; file
// details are then omitted from the status.
func NewDatasetService(store *SnapshotStore, paths *config.Paths, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		store:  store,
		paths:  paths,
		logger: logger.With(slog.String("component", "dataset_service")),
	}
}

// DatasetStatus describes the currently served dataset. Audit is the
// cleaning audit of the run that produced it; Files lists the snapshot
// files on disk regardless of whether a dataset is loaded.
type DatasetStatus struct {
	Loaded    bool                  `json:"loaded"`
	LoadedAt  *time.Time            `json:"loaded_at,omitempty"`
	Records   int                   `json:"records"`
	Species   int                   `json:"species"`
	FirstYear int                   `json:"first_year,omitempty"`
	LastYear  int                   `json:"last_year,omitempty"`
	Audit     *domain.CleaningAudit `json:"audit,omitempty"`
	Files     []SnapshotFile        `json:"files,omitempty"`
}

// SnapshotFile describes one snapshot file on disk.
type SnapshotFile struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Exists     bool      `json:"exists"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// Status returns the dataset status. It never fails: an unloaded dataset is
// a valid status, not an error.
func (d *DatasetService) Status(ctx context.Context) DatasetStatus {
	status := DatasetStatus{Files: d.snapshotFiles()}

	records, err := d.store.Records()
	if err != nil {
		return status
	}

	status.Loaded = true
	if at, ok := d.store.LoadedAt(); ok {
		status.LoadedAt = &at
	}
	status.Records = len(records)

	species := make(map[string]struct{})
	for _, r := range records {
		species[r.SpeciesCode] = struct{}{}
		if status.FirstYear == 0 || r.Year < status.FirstYear {
			status.FirstYear = r.Year
		}
		if r.Year > status.LastYear {
			status.LastYear = r.Year
		}
	}
	status.Species = len(species)

	if audit, err := d.store.Audit(); err == nil {
		status.Audit = &audit
	}
	return status
}

// snapshotFiles stats the configured snapshot paths.
func (d *DatasetService) snapshotFiles() []SnapshotFile {
	if d.paths == nil {
		return nil
	}
	named := []struct {
		name string
		path string
	}{
		{"raw_snapshot", d.paths.RawSnapshot},
		{"species_codes", d.paths.SpeciesCodes},
		{"clean_snapshot", d.paths.CleanSnapshot},
		{"annual_summary", d.paths.AnnualSummary},
		{"seasonal_summary", d.paths.SeasonalSummary},
	}

	files := make([]SnapshotFile, 0, len(named))
	for _, n := range named {
		file := SnapshotFile{Name: n.name, Path: n.path}
		if info, err := os.Stat(n.path); err == nil {
			file.Exists = true
			file.SizeBytes = info.Size()
			file.ModifiedAt = info.ModTime()
		}
		files = append(files, file)
	}
	return files
}
