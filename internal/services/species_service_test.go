package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

func TestSpeciesList(t *testing.T) {
	svc := NewSpeciesService(seededStore(), testLogger())

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Sorted by display name.
	assert.Equal(t, "Atlantic Cod", list[0].Name)
	assert.Equal(t, "Winter Flounder", list[1].Name)

	cod := list[0]
	assert.Equal(t, 1975, cod.FirstYear)
	assert.Equal(t, 1976, cod.LastYear)
	assert.Equal(t, 2, cod.YearsObserved)
	assert.InDelta(t, 15.5, cod.TotalBiomass, 1e-9)
}

func TestSpeciesListUnloaded(t *testing.T) {
	svc := NewSpeciesService(NewSnapshotStore(testLogger()), testLogger())

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDatasetNotLoaded)
}

func TestAnnualSeries(t *testing.T) {
	svc := NewSpeciesService(seededStore(), testLogger())

	t.Run("returns rows oldest first", func(t *testing.T) {
		series, err := svc.AnnualSeries(context.Background(), "Atlantic Cod")
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, 1975, series[0].Year)
		assert.Equal(t, 1976, series[1].Year)
	})

	t.Run("matches case-insensitively", func(t *testing.T) {
		series, err := svc.AnnualSeries(context.Background(), "atlantic cod")
		require.NoError(t, err)
		assert.Len(t, series, 2)
	})

	t.Run("unknown species", func(t *testing.T) {
		_, err := svc.AnnualSeries(context.Background(), "Kraken")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnknownSpecies)
		assert.Contains(t, err.Error(), "Kraken")
	})
}

func TestSeasonalSeries(t *testing.T) {
	svc := NewSpeciesService(seededStore(), testLogger())

	t.Run("both seasons with centroids", func(t *testing.T) {
		series, err := svc.Seasonal(context.Background(), "Atlantic Cod", "")
		require.NoError(t, err)
		require.Len(t, series.Summaries, 2)

		// Sorted by season then year; centroids per (season, decade).
		assert.Equal(t, domain.SeasonFall, series.Summaries[0].Season)
		assert.Equal(t, domain.SeasonSpring, series.Summaries[1].Season)
		require.Len(t, series.Centroids, 2)
		for _, c := range series.Centroids {
			assert.Equal(t, "Atlantic Cod", c.Species)
			assert.Equal(t, 1970, c.Decade)
		}
	})

	t.Run("season filter", func(t *testing.T) {
		series, err := svc.Seasonal(context.Background(), "Atlantic Cod", "spring")
		require.NoError(t, err)
		require.Len(t, series.Summaries, 1)
		assert.Equal(t, domain.SeasonSpring, series.Summaries[0].Season)
		require.Len(t, series.Centroids, 1)
		assert.InDelta(t, 41.2, series.Centroids[0].Latitude, 1e-9)
	})

	t.Run("invalid season", func(t *testing.T) {
		_, err := svc.Seasonal(context.Background(), "Atlantic Cod", "Monsoon")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown season")
	})

	t.Run("unknown species", func(t *testing.T) {
		_, err := svc.Seasonal(context.Background(), "Kraken", "")
		assert.ErrorIs(t, err, apperrors.ErrUnknownSpecies)
	})
}
