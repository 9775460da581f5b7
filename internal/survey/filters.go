package survey

import (
	"strconv"

	"trawlscope/internal/config"
	"trawlscope/pkg/contracts/domain"
)

// FilterDomain restricts records to the well-sampled spatial, taxonomic and
// temporal domain of the survey: strata inside the retained range, species
// codes outside the blocklist, and years at or after the temporal floor.
//
// The three predicates are independent and AND-combined, so their order does
// not change the surviving set; it only decides which audit counter a
// multiply-excluded row lands in.
func FilterDomain(obs []domain.SpeciesObservation, audit *domain.CleaningAudit) []domain.SpeciesObservation {
	out := make([]domain.SpeciesObservation, 0, len(obs))
	for _, o := range obs {
		switch {
		case !stratumKept(o.Stratum):
			audit.StratumExcluded++
		case speciesExcluded(o.SpeciesCode):
			audit.SpeciesCodeExcluded++
		case o.Year < config.MinSurveyYear:
			audit.YearExcluded++
		default:
			out = append(out, o)
		}
	}
	return out
}

// stratumKept parses the padded stratum and checks it against the retained
// range. A stratum that does not parse as a number is outside the survey's
// coding scheme and is excluded.
func stratumKept(stratum string) bool {
	n, err := strconv.Atoi(stratum)
	if err != nil {
		return false
	}
	return config.StratumKept(n)
}

// speciesExcluded checks the padded species code against the taxonomic
// blocklist. Unparseable codes are treated like the non-species sentinels
// and excluded.
func speciesExcluded(code string) bool {
	n, err := strconv.Atoi(code)
	if err != nil {
		return true
	}
	return config.SpeciesCodeExcluded(n)
}
