package loader

import (
	"fmt"
	"strings"

	apperrors "trawlscope/internal/errors"
)

// Raw snapshot column names, as produced by the upstream survey extract.
const (
	ColCruise      = "cruise6"
	ColStation     = "station"
	ColStratum     = "stratum"
	ColSpeciesCode = "svspp"
	ColSex         = "catchsex"
	ColYear        = "year"
	ColTowDate     = "est_towdate"
	ColSeason      = "season"
	ColLatitude    = "lat"
	ColLongitude   = "lon"
	ColSurfaceTemp = "surftemp"
	ColBottomTemp  = "bottemp"
	ColDepth       = "depth"
	ColBiomass     = "biomass"
	ColAbundance   = "abundance"
)

// Species reference list column names.
const (
	ColCommonName     = "comname"
	ColScientificName = "sciname"
)

// Cleaned snapshot column names beyond the shared raw ones.
const (
	ColTowID        = "id"
	ColMonth        = "month"
	ColDay          = "day"
	ColStratNum     = "strat_num"
	ColTotalBiomass = "total_biomass_kg"
)

// rawColumns are required in every raw snapshot.
var rawColumns = []string{
	ColCruise, ColStation, ColStratum, ColSpeciesCode, ColSex,
	ColYear, ColTowDate, ColSeason,
	ColLatitude, ColLongitude, ColSurfaceTemp, ColBottomTemp, ColDepth,
	ColBiomass, ColAbundance,
}

// speciesColumns are required in the species reference list.
var speciesColumns = []string{ColSpeciesCode, ColCommonName, ColScientificName}

// cleanColumns are required in a persisted cleaned snapshot.
var cleanColumns = []string{
	ColTowID, ColSpeciesCode, ColCommonName, ColScientificName,
	ColYear, ColMonth, ColDay, ColSeason, ColStratNum,
	ColLatitude, ColLongitude, ColSurfaceTemp, ColBottomTemp, ColDepth,
	ColTowDate, ColTotalBiomass,
}

// headerIndex maps required column names to their positions in the header
// row. Matching is case-insensitive and ignores surrounding whitespace and a
// UTF-8 BOM. A missing required column is fatal, and the error names every
// absent column so one load attempt surfaces the whole mismatch.
func headerIndex(header []string, required []string, table string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		if name == "" {
			continue
		}
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("%s is missing required columns: %s", table, strings.Join(missing, ", ")),
			apperrors.ErrSchemaMismatch,
		)
	}
	return index, nil
}

// cell returns the value at idx, or an empty string for short records.
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
