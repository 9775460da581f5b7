package survey

import (
	"sort"
	"strconv"
	"strings"

	"trawlscope/pkg/contracts/domain"
)

// CollapseTows folds the per-sex observation rows into per-tow species
// totals. Exact-duplicate rows are removed first, then the remaining rows
// for a (tow, species) pair are summed across sex classes into a single
// total_biomass_kg. The result has exactly one row per (tow id, species
// code) pair, sorted by tow id then species code so repeated runs produce
// byte-identical snapshots.
func CollapseTows(obs []domain.SpeciesObservation, audit *domain.CleaningAudit) []domain.CleanedBiomassRecord {
	seen := make(map[string]struct{}, len(obs))
	groups := make(map[string]*domain.CleanedBiomassRecord, len(obs))

	for _, o := range obs {
		dk := rowKey(o, true)
		if _, dup := seen[dk]; dup {
			audit.DuplicatesCollapsed++
			continue
		}
		seen[dk] = struct{}{}

		gk := rowKey(o, false)
		if rec, ok := groups[gk]; ok {
			rec.TotalBiomassKg += o.Biomass
			continue
		}
		groups[gk] = &domain.CleanedBiomassRecord{
			TowID:          o.TowID,
			SpeciesCode:    o.SpeciesCode,
			CommonName:     o.CommonName,
			ScientificName: o.ScientificName,
			Year:           o.Year,
			Month:          o.Month,
			Day:            o.Day,
			Season:         o.Season,
			StratNum:       o.StratNum,
			Latitude:       o.Latitude,
			Longitude:      o.Longitude,
			SurfaceTemp:    o.SurfaceTemp,
			BottomTemp:     o.BottomTemp,
			Depth:          o.Depth,
			TowDate:        o.TowDate,
			TotalBiomassKg: o.Biomass,
		}
	}

	out := make([]domain.CleanedBiomassRecord, 0, len(groups))
	for _, rec := range groups {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TowID != out[j].TowID {
			return out[i].TowID < out[j].TowID
		}
		return out[i].SpeciesCode < out[j].SpeciesCode
	})
	return out
}

// rowKey serializes the columns that define row identity for the collapse.
// With sex and biomass included it is the distinct key (only exact
// duplicates match); without them it is the grouping key rows are summed
// under. Floats are rendered with exact round-trip formatting, and a missing
// value renders as "NaN" so two rows missing the same field compare equal.
func rowKey(o domain.SpeciesObservation, withSexAndBiomass bool) string {
	parts := []string{
		o.TowID,
		o.SpeciesCode,
		o.CommonName,
		o.ScientificName,
		strconv.Itoa(o.Year),
		strconv.Itoa(o.Month),
		strconv.Itoa(o.Day),
		o.Season,
		keyFloat(o.Latitude),
		keyFloat(o.Longitude),
		keyFloat(o.SurfaceTemp),
		keyFloat(o.BottomTemp),
		keyFloat(o.Depth),
		o.TowDate,
	}
	if withSexAndBiomass {
		parts = append(parts, o.Sex, keyFloat(o.Biomass))
	}
	return strings.Join(parts, "|")
}

func keyFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
