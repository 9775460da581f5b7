package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trawlscope/internal/config"
)

func datasetTestPaths(t *testing.T) *config.Paths {
	t.Helper()
	dir := t.TempDir()
	return &config.Paths{
		ExecutableDir:   dir,
		DataDir:         dir,
		RawSnapshot:     filepath.Join(dir, "survdat_raw.csv"),
		SpeciesCodes:    filepath.Join(dir, "species_codes.csv"),
		CleanSnapshot:   filepath.Join(dir, "survdat_clean.csv"),
		AnnualSummary:   filepath.Join(dir, "species_annual.csv"),
		SeasonalSummary: filepath.Join(dir, "species_seasonal.csv"),
	}
}

func TestDatasetStatusUnloaded(t *testing.T) {
	paths := datasetTestPaths(t)
	svc := NewDatasetService(NewSnapshotStore(testLogger()), paths, testLogger())

	status := svc.Status(context.Background())

	assert.False(t, status.Loaded)
	assert.Nil(t, status.LoadedAt)
	assert.Zero(t, status.Records)
	assert.Nil(t, status.Audit)

	// Files are reported even without a loaded dataset.
	require.Len(t, status.Files, 5)
	for _, f := range status.Files {
		assert.False(t, f.Exists, "no snapshot written yet: %s", f.Name)
	}
}

func TestDatasetStatusLoaded(t *testing.T) {
	paths := datasetTestPaths(t)
	require.NoError(t, os.WriteFile(paths.CleanSnapshot, []byte("id,svspp\n"), 0o644))

	svc := NewDatasetService(seededStore(), paths, testLogger())
	status := svc.Status(context.Background())

	assert.True(t, status.Loaded)
	require.NotNil(t, status.LoadedAt)
	assert.Equal(t, 3, status.Records)
	assert.Equal(t, 2, status.Species)
	assert.Equal(t, 1975, status.FirstYear)
	assert.Equal(t, 1976, status.LastYear)
	require.NotNil(t, status.Audit)
	assert.Equal(t, 10, status.Audit.RawRows)

	var clean *SnapshotFile
	for i := range status.Files {
		if status.Files[i].Name == "clean_snapshot" {
			clean = &status.Files[i]
		}
	}
	require.NotNil(t, clean)
	assert.True(t, clean.Exists)
	assert.Positive(t, clean.SizeBytes)
	assert.False(t, clean.ModifiedAt.IsZero())
}

func TestDatasetStatusWithoutPaths(t *testing.T) {
	svc := NewDatasetService(seededStore(), nil, testLogger())
	status := svc.Status(context.Background())

	assert.True(t, status.Loaded)
	assert.Nil(t, status.Files)
}
