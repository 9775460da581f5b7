package services

import (
	"log/slog"
	"sync"
	"time"

	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

// SnapshotStore holds the currently served dataset: the cleaned records,
// both summary tables, and the audit of the run that produced them. The
// dataset is replaced wholesale on publish and never mutated in place, so
// readers share the slices without copying.
type SnapshotStore struct {
	logger *slog.Logger

	mu       sync.RWMutex
	records  []domain.CleanedBiomassRecord
	annual   []domain.WeightedSummaryRecord
	seasonal []domain.WeightedSummaryRecord
	audit    domain.CleaningAudit
	loadedAt time.Time
	loaded   bool
}

// NewSnapshotStore creates an empty store. Every dataset accessor returns
// ErrDatasetNotLoaded until the first publish.
func NewSnapshotStore(logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{
		logger: logger.With(slog.String("component", "snapshot_store")),
	}
}

// PublishDataset swaps in a finished dataset. Callers hand over ownership
// of the slices; the pipeline builds fresh tables per run and never touches
// them afterwards.
func (s *SnapshotStore) PublishDataset(records []domain.CleanedBiomassRecord, annual, seasonal []domain.WeightedSummaryRecord, audit domain.CleaningAudit) {
	s.mu.Lock()
	s.records = records
	s.annual = annual
	s.seasonal = seasonal
	s.audit = audit
	s.loadedAt = time.Now()
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("dataset published",
		slog.Int("records", len(records)),
		slog.Int("annual_summaries", len(annual)),
		slog.Int("seasonal_summaries", len(seasonal)),
		slog.Int("raw_rows", audit.RawRows),
	)
}

// Loaded reports whether a dataset has been published.
func (s *SnapshotStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LoadedAt returns when the current dataset was published.
func (s *SnapshotStore) LoadedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, s.loaded
}

// Records returns the cleaned dataset. The slice is read-only.
func (s *SnapshotStore) Records() ([]domain.CleanedBiomassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, apperrors.ErrDatasetNotLoaded
	}
	return s.records, nil
}

// Annual returns the annual summary table. The slice is read-only.
func (s *SnapshotStore) Annual() ([]domain.WeightedSummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, apperrors.ErrDatasetNotLoaded
	}
	return s.annual, nil
}

// Seasonal returns the seasonal summary table. The slice is read-only.
func (s *SnapshotStore) Seasonal() ([]domain.WeightedSummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, apperrors.ErrDatasetNotLoaded
	}
	return s.seasonal, nil
}

// Audit returns the cleaning audit of the published dataset.
func (s *SnapshotStore) Audit() (domain.CleaningAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return domain.CleaningAudit{}, apperrors.ErrDatasetNotLoaded
	}
	return s.audit, nil
}
