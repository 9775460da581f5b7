package survey

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

func testPipeline() *Pipeline {
	return NewPipeline(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testNames() []domain.SpeciesName {
	return []domain.SpeciesName{
		{Code: "073", CommonName: "ATLANTIC COD", ScientificName: "GADUS MORHUA"},
		{Code: "075", CommonName: "POLLOCK", ScientificName: "POLLACHIUS VIRENS"},
	}
}

// seasonTows builds n raw tows for one (species, year, season) cell in the
// given stratum, stations numbered from firstStation.
func seasonTows(code string, year int, season, stratum string, firstStation, n int) []domain.RawTowCatch {
	month := "03"
	if season == "FALL" {
		month = "09"
	}
	out := make([]domain.RawTowCatch, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.RawTowCatch{
			Cruise:      fmt.Sprintf("%d%s", year, month),
			Station:     fmt.Sprintf("%03d", firstStation+i),
			Stratum:     stratum,
			SpeciesCode: code,
			Sex:         "0",
			Year:        year,
			TowDate:     fmt.Sprintf("%d-%s-14", year, month),
			Season:      season,
			Latitude:    41.2,
			Longitude:   -66.9,
			SurfaceTemp: 7.5,
			BottomTemp:  5.1,
			Depth:       88,
			Biomass:     12.4,
			Abundance:   31,
		})
	}
	return out
}

// The excluded stratum's tow must never reach the output, and the species
// stays eligible because five tows per season survive in the kept stratum.
func TestCleanExcludedStratumTowNeverSurfaces(t *testing.T) {
	var raw []domain.RawTowCatch
	raw = append(raw, seasonTows("075", 1975, "SPRING", "1010", 1, 5)...)
	raw = append(raw, seasonTows("075", 1975, "FALL", "1010", 1, 5)...)
	raw = append(raw, seasonTows("075", 1975, "SPRING", "1310", 99, 1)...)

	result, err := testPipeline().Clean(context.Background(), raw, testNames())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Audit.StratumExcluded)
	assert.Equal(t, 1, result.Audit.SpeciesEligible)
	require.Len(t, result.Records, 10)

	for _, r := range result.Records {
		assert.False(t, strings.HasSuffix(r.TowID, "1310"),
			"excluded-stratum tow leaked into the output: %s", r.TowID)
		assert.Equal(t, "01", r.StratNum)
	}
}

// When the only fifth spring tow sat in the excluded stratum, its removal
// drops the species below the five-tow bar and nothing is eligible.
func TestCleanExclusionBreaksEligibility(t *testing.T) {
	var raw []domain.RawTowCatch
	raw = append(raw, seasonTows("075", 1975, "SPRING", "1010", 1, 4)...)
	raw = append(raw, seasonTows("075", 1975, "SPRING", "1310", 99, 1)...)
	raw = append(raw, seasonTows("075", 1975, "FALL", "1010", 1, 5)...)

	_, err := testPipeline().Clean(context.Background(), raw, testNames())
	assert.ErrorIs(t, err, apperrors.ErrNoEligibleSpecies)
}

func TestCleanAnomalousYearsExcluded(t *testing.T) {
	var raw []domain.RawTowCatch
	for year := 2000; year <= 2022; year++ {
		raw = append(raw, seasonTows("073", year, "SPRING", "1090", 1, 5)...)
		raw = append(raw, seasonTows("073", year, "FALL", "1090", 1, 5)...)
	}

	result, err := testPipeline().Clean(context.Background(), raw, testNames())
	require.NoError(t, err)

	for _, r := range result.Records {
		assert.NotContains(t, []int{2017, 2020}, r.Year)
	}
	assert.Equal(t, 20, result.Audit.AnomalousYearDropped)
	assert.Equal(t, 210, result.Audit.CleanRows)
}

func TestCleanEmptySnapshot(t *testing.T) {
	_, err := testPipeline().Clean(context.Background(), nil, testNames())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
}

func TestCleanAuditAccounting(t *testing.T) {
	var raw []domain.RawTowCatch
	raw = append(raw, seasonTows("073", 1975, "SPRING", "1090", 1, 5)...)
	raw = append(raw, seasonTows("073", 1975, "FALL", "1090", 1, 5)...)

	// One row per drop reason.
	blocked := seasonTows("978", 1975, "SPRING", "1090", 50, 1)
	tooOld := seasonTows("073", 1969, "SPRING", "1090", 51, 1)
	badStratum := seasonTows("073", 1975, "SPRING", "1310", 52, 1)
	missing := seasonTows("073", 1975, "SPRING", "1090", 53, 1)
	missing[0].Biomass = domain.Missing()
	raw = append(raw, blocked...)
	raw = append(raw, tooOld...)
	raw = append(raw, badStratum...)
	raw = append(raw, missing...)

	result, err := testPipeline().Clean(context.Background(), raw, testNames())
	require.NoError(t, err)

	audit := result.Audit
	assert.Equal(t, 14, audit.RawRows)
	assert.Equal(t, 1, audit.SpeciesCodeExcluded)
	assert.Equal(t, 1, audit.YearExcluded)
	assert.Equal(t, 1, audit.StratumExcluded)
	assert.Equal(t, 1, audit.MissingDropped)
	assert.Equal(t, 10, audit.CleanRows)
	assert.Equal(t, 4, audit.TotalDropped())
	assert.False(t, audit.StartedAt.IsZero())
}

// Re-running the pipeline on its own output must reproduce it exactly: every
// row passes every filter again and the eligibility table is unchanged.
func TestCleanIdempotent(t *testing.T) {
	var raw []domain.RawTowCatch
	for year := 1975; year <= 1978; year++ {
		raw = append(raw, seasonTows("073", year, "SPRING", "1090", 1, 6)...)
		raw = append(raw, seasonTows("073", year, "FALL", "1090", 1, 6)...)
		raw = append(raw, seasonTows("075", year, "SPRING", "1200", 10, 5)...)
		raw = append(raw, seasonTows("075", year, "FALL", "1200", 10, 5)...)
	}

	p := testPipeline()
	first, err := p.Clean(context.Background(), raw, testNames())
	require.NoError(t, err)
	require.NotEmpty(t, first.Records)

	rerun := make([]domain.RawTowCatch, 0, len(first.Records))
	names := make([]domain.SpeciesName, 0, 2)
	seenNames := make(map[string]bool)
	for _, r := range first.Records {
		rerun = append(rerun, domain.RawTowCatch{
			Cruise:      r.TowID[:6],
			Station:     r.TowID[6:9],
			Stratum:     r.TowID[9:],
			SpeciesCode: r.SpeciesCode,
			Sex:         "0",
			Year:        r.Year,
			TowDate:     r.TowDate,
			Season:      r.Season,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			SurfaceTemp: r.SurfaceTemp,
			BottomTemp:  r.BottomTemp,
			Depth:       r.Depth,
			Biomass:     r.TotalBiomassKg,
			Abundance:   1,
		})
		if !seenNames[r.SpeciesCode] {
			seenNames[r.SpeciesCode] = true
			names = append(names, domain.SpeciesName{
				Code:           r.SpeciesCode,
				CommonName:     r.CommonName,
				ScientificName: r.ScientificName,
			})
		}
	}

	second, err := p.Clean(context.Background(), rerun, names)
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Zero(t, second.Audit.TotalDropped())
}
