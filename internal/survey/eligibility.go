package survey

import (
	"math"

	"trawlscope/internal/config"
	"trawlscope/pkg/contracts/domain"
)

// seasonCell is one (species, year, season) sampling cell of the tow-count
// table.
type seasonCell struct {
	species string
	year    int
	season  string
}

// speciesYear is one (species, year) pair in the coverage table.
type speciesYear struct {
	species string
	year    int
}

// EligibleSpecies decides, per species code, whether the survey sampled a
// species consistently enough for time-series analysis:
//
//  1. Count distinct tows per (species, year, season); a cell needs at least
//     MinTowsPerSeason tows to count.
//  2. A year is covered for a species only when both seasons of that year
//     clear the bar.
//  3. The covered-year threshold is span - floor(slack * span), where span is
//     max year minus min year over the whole tow-count table.
//  4. A species is eligible when its covered-year count reaches the
//     threshold.
//
// A single-year table degenerates the threshold to zero, which would make
// every species eligible; the threshold is floored at one covered year so a
// short history still has to clear step 2 at least once.
func EligibleSpecies(records []domain.CleanedBiomassRecord, audit *domain.CleaningAudit) map[string]bool {
	if len(records) == 0 {
		return map[string]bool{}
	}

	towsPerCell := make(map[seasonCell]map[string]struct{})
	minYear, maxYear := records[0].Year, records[0].Year
	for _, r := range records {
		cell := seasonCell{species: r.SpeciesCode, year: r.Year, season: r.Season}
		tows, ok := towsPerCell[cell]
		if !ok {
			tows = make(map[string]struct{})
			towsPerCell[cell] = tows
		}
		tows[r.TowID] = struct{}{}

		if r.Year < minYear {
			minYear = r.Year
		}
		if r.Year > maxYear {
			maxYear = r.Year
		}
	}

	qualifyingSeasons := make(map[speciesYear]int)
	species := make(map[string]bool)
	for cell, tows := range towsPerCell {
		species[cell.species] = true
		if len(tows) >= config.MinTowsPerSeason {
			qualifyingSeasons[speciesYear{cell.species, cell.year}]++
		}
	}

	coveredYears := make(map[string]int)
	for sy, seasons := range qualifyingSeasons {
		if seasons >= config.SeasonsRequired {
			coveredYears[sy.species]++
		}
	}

	span := maxYear - minYear
	threshold := span - int(math.Floor(config.CoverageSlackFraction*float64(span)))
	if threshold < 1 {
		threshold = 1
	}

	eligible := make(map[string]bool, len(species))
	for code := range species {
		if coveredYears[code] >= threshold {
			eligible[code] = true
		}
	}

	audit.SpeciesConsidered = len(species)
	audit.SpeciesEligible = len(eligible)
	return eligible
}
