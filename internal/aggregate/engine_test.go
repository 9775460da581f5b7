package aggregate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trawlscope/pkg/contracts/domain"
)

func testEngine() *Engine {
	return NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)), 2)
}

// cleanedRecord builds a cleaned row with an optional override.
func cleanedRecord(tow string, year int, season string, biomass float64, override func(*domain.CleanedBiomassRecord)) domain.CleanedBiomassRecord {
	r := domain.CleanedBiomassRecord{
		TowID:          tow,
		SpeciesCode:    "073",
		CommonName:     "atlantic cod",
		ScientificName: "gadus morhua",
		Year:           year,
		Month:          3,
		Day:            14,
		Season:         season,
		StratNum:       "09",
		Latitude:       41.0,
		Longitude:      -67.0,
		SurfaceTemp:    7.5,
		BottomTemp:     5.0,
		Depth:          90,
		TowDate:        fmt.Sprintf("%d-03-14", year),
		TotalBiomassKg: biomass,
	}
	if override != nil {
		override(&r)
	}
	return r
}

func TestAggregateAnnualGroup(t *testing.T) {
	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1975, domain.SeasonSpring, 2, func(r *domain.CleanedBiomassRecord) {
			r.Latitude = 40
		}),
		cleanedRecord("t2", 1975, domain.SeasonFall, 8, func(r *domain.CleanedBiomassRecord) {
			r.Latitude = 42
		}),
	}

	out, err := testEngine().Aggregate(context.Background(), records, domain.GroupAnnual)
	require.NoError(t, err)
	require.Len(t, out, 1, "annual grouping folds both seasons into one row")

	row := out[0]
	assert.Equal(t, "Atlantic Cod", row.Species)
	assert.Empty(t, row.Season)
	assert.Equal(t, 1975, row.Year)
	assert.Equal(t, 1970, row.Decade)
	assert.Equal(t, 2, row.TowCount)
	assert.InDelta(t, 10.0, row.TotalBiomass, 1e-9)
	assert.InDelta(t, 5.0, row.AvgBiomass, 1e-9)
	// Sample deviation of {2, 8}.
	assert.InDelta(t, 4.24264, row.BiomassSD, 1e-5)
	// (2*40 + 8*42) / 10
	assert.InDelta(t, 41.6, row.AvgLat, 1e-9)
}

func TestAggregateSeasonalGroup(t *testing.T) {
	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1975, domain.SeasonSpring, 2, nil),
		cleanedRecord("t2", 1975, domain.SeasonFall, 8, nil),
	}

	out, err := testEngine().Aggregate(context.Background(), records, domain.GroupSeasonal)
	require.NoError(t, err)
	require.Len(t, out, 2)

	seasons := []string{out[0].Season, out[1].Season}
	sort.Strings(seasons)
	assert.Equal(t, []string{domain.SeasonFall, domain.SeasonSpring}, seasons)
	for _, row := range out {
		assert.Equal(t, 1, row.TowCount)
	}
}

func TestAggregateDecadeBinning(t *testing.T) {
	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1987, domain.SeasonSpring, 1, nil),
		cleanedRecord("t2", 1970, domain.SeasonSpring, 1, nil),
		cleanedRecord("t3", 2005, domain.SeasonSpring, 1, nil),
	}

	out, err := testEngine().Aggregate(context.Background(), records, domain.GroupAnnual)
	require.NoError(t, err)
	require.Len(t, out, 3)

	decades := make(map[int]int)
	for _, row := range out {
		decades[row.Year] = row.Decade
	}
	assert.Equal(t, 1980, decades[1987])
	assert.Equal(t, 1970, decades[1970])
	assert.Equal(t, 2000, decades[2005])
}

func TestAggregateMissingFieldExcludedPairwise(t *testing.T) {
	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1975, domain.SeasonSpring, 2, func(r *domain.CleanedBiomassRecord) {
			r.Latitude = 40
			r.BottomTemp = 4
		}),
		cleanedRecord("t2", 1975, domain.SeasonSpring, 3, func(r *domain.CleanedBiomassRecord) {
			r.Latitude = 41
			r.BottomTemp = domain.Missing()
		}),
		cleanedRecord("t3", 1975, domain.SeasonSpring, 5, func(r *domain.CleanedBiomassRecord) {
			r.Latitude = 42
			r.BottomTemp = 6
		}),
	}

	out, err := testEngine().Aggregate(context.Background(), records, domain.GroupAnnual)
	require.NoError(t, err)
	require.Len(t, out, 1)

	row := out[0]
	// Bottom temperature skips the missing middle record: (2*4 + 5*6) / 7.
	assert.InDelta(t, 34.0/7.0, row.AvgBot, 1e-9)
	// Latitude still sees all three: (2*40 + 3*41 + 5*42) / 10.
	assert.InDelta(t, 41.3, row.AvgLat, 1e-9)
}

func TestAggregateZeroWeightGroupIsMissing(t *testing.T) {
	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1975, domain.SeasonSpring, 0, nil),
		cleanedRecord("t2", 1975, domain.SeasonSpring, 0, nil),
	}

	out, err := testEngine().Aggregate(context.Background(), records, domain.GroupAnnual)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.True(t, domain.IsMissing(out[0].AvgLat),
		"an all-zero-weight group must surface a missing mean, not panic")
	assert.Zero(t, out[0].TotalBiomass)
}

func TestAggregateSortedBySpeciesSeasonYear(t *testing.T) {
	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1980, domain.SeasonFall, 1, func(r *domain.CleanedBiomassRecord) {
			r.CommonName = "pollock"
		}),
		cleanedRecord("t2", 1975, domain.SeasonSpring, 1, nil),
		cleanedRecord("t3", 1976, domain.SeasonSpring, 1, nil),
		cleanedRecord("t4", 1975, domain.SeasonFall, 1, nil),
	}

	out, err := testEngine().Aggregate(context.Background(), records, domain.GroupSeasonal)
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.True(t, sort.SliceIsSorted(out, func(i, j int) bool {
		if out[i].Species != out[j].Species {
			return out[i].Species < out[j].Species
		}
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Year < out[j].Year
	}))
	assert.Equal(t, "Atlantic Cod", out[0].Species)
	assert.Equal(t, "Pollock", out[3].Species)
}

func TestAggregateUnnamedSpeciesFallsBackToCode(t *testing.T) {
	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1975, domain.SeasonSpring, 1, func(r *domain.CleanedBiomassRecord) {
			r.CommonName = ""
			r.SpeciesCode = "522"
		}),
	}

	out, err := testEngine().Aggregate(context.Background(), records, domain.GroupAnnual)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "522", out[0].Species)
}

func TestAggregateEmptyInput(t *testing.T) {
	out, err := testEngine().Aggregate(context.Background(), nil, domain.GroupAnnual)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAggregateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []domain.CleanedBiomassRecord{
		cleanedRecord("t1", 1975, domain.SeasonSpring, 1, nil),
	}

	_, err := testEngine().Aggregate(ctx, records, domain.GroupAnnual)
	assert.ErrorIs(t, err, context.Canceled)
}
