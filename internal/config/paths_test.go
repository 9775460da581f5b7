package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	t.Run("relative paths are anchored at the executable dir", func(t *testing.T) {
		cfg := Default().Paths
		paths, err := ResolvePaths(&cfg)
		require.NoError(t, err)
		require.NotNil(t, paths)

		assert.True(t, filepath.IsAbs(paths.ExecutableDir))
		for name, p := range map[string]string{
			"DataDir":         paths.DataDir,
			"LogsDir":         paths.LogsDir,
			"WebDir":          paths.WebDir,
			"RawSnapshot":     paths.RawSnapshot,
			"SpeciesCodes":    paths.SpeciesCodes,
			"CleanSnapshot":   paths.CleanSnapshot,
			"AnnualSummary":   paths.AnnualSummary,
			"SeasonalSummary": paths.SeasonalSummary,
		} {
			assert.True(t, filepath.IsAbs(p), "%s should be absolute, got %s", name, p)
		}

		assert.Equal(t, filepath.Join(paths.ExecutableDir, "data"), paths.DataDir)
		assert.Equal(t,
			filepath.Join(paths.ExecutableDir, "data", "snapshots", "survdat_clean.csv"),
			paths.CleanSnapshot)
	})

	t.Run("absolute paths pass through unchanged", func(t *testing.T) {
		dir := t.TempDir()
		cfg := Default().Paths
		cfg.DataDir = filepath.Join(dir, "survey-data")
		cfg.RawSnapshot = filepath.Join(dir, "survey-data", "raw.csv")

		paths, err := ResolvePaths(&cfg)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "survey-data"), paths.DataDir)
		assert.Equal(t, filepath.Join(dir, "survey-data", "raw.csv"), paths.RawSnapshot)
	})
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	paths := &Paths{
		ExecutableDir:   dir,
		DataDir:         filepath.Join(dir, "data"),
		LogsDir:         filepath.Join(dir, "logs"),
		WebDir:          filepath.Join(dir, "web"),
		RawSnapshot:     filepath.Join(dir, "data", "raw", "survdat_raw.csv"),
		SpeciesCodes:    filepath.Join(dir, "data", "raw", "species_codes.csv"),
		CleanSnapshot:   filepath.Join(dir, "data", "snapshots", "survdat_clean.csv"),
		AnnualSummary:   filepath.Join(dir, "data", "snapshots", "species_annual.csv"),
		SeasonalSummary: filepath.Join(dir, "data", "snapshots", "species_seasonal.csv"),
	}

	require.NoError(t, paths.EnsureDirectories())

	for _, p := range []string{
		paths.DataDir,
		paths.LogsDir,
		filepath.Join(dir, "data", "raw"),
		filepath.Join(dir, "data", "snapshots"),
	} {
		assert.DirExists(t, p)
	}
}
