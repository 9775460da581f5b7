package survey

import (
	"strings"

	"trawlscope/pkg/contracts/domain"
)

// SpeciesLookup resolves zero-padded species codes to reference-list names.
type SpeciesLookup map[string]domain.SpeciesName

// NewSpeciesLookup builds a lookup from the species reference list. Codes are
// zero-padded and names lower-cased so the join key matches normalized catch
// records regardless of how the source table was cased.
func NewSpeciesLookup(names []domain.SpeciesName) SpeciesLookup {
	lookup := make(SpeciesLookup, len(names))
	for _, n := range names {
		code := domain.PadLeft(strings.TrimSpace(n.Code), domain.SpeciesCodePadWidth)
		lookup[code] = domain.SpeciesName{
			Code:           code,
			CommonName:     strings.ToLower(strings.TrimSpace(n.CommonName)),
			ScientificName: strings.ToLower(strings.TrimSpace(n.ScientificName)),
		}
	}
	return lookup
}

// Normalize assigns each raw record its stable tow identity and normalized
// text fields: the padded composite tow id, the two-digit strat_num, integer
// month and day parsed from the tow date, a title-cased season label, and the
// lower-cased reference names joined by species code.
//
// A record whose species code has no reference match keeps an empty common
// name; the taxonomic blocklist removes the sentinel codes downstream, so the
// miss is counted but not treated as an error. Malformed tow dates yield
// month and day zero and are counted in the audit.
func Normalize(records []domain.RawTowCatch, lookup SpeciesLookup, audit *domain.CleaningAudit) []domain.SpeciesObservation {
	out := make([]domain.SpeciesObservation, 0, len(records))
	for _, r := range records {
		cruise := domain.PadLeft(strings.TrimSpace(r.Cruise), domain.CruisePadWidth)
		station := domain.PadLeft(strings.TrimSpace(r.Station), domain.StationPadWidth)
		stratum := domain.PadLeft(strings.TrimSpace(r.Stratum), domain.StratumPadWidth)
		code := domain.PadLeft(strings.TrimSpace(r.SpeciesCode), domain.SpeciesCodePadWidth)

		month, day, ok := parseTowDate(r.TowDate)
		if !ok {
			audit.InvalidTowDates++
		}

		obs := domain.SpeciesObservation{
			TowID:       cruise + station + stratum,
			Cruise:      cruise,
			Station:     station,
			Stratum:     stratum,
			StratNum:    stratNum(stratum),
			SpeciesCode: code,
			Sex:         strings.TrimSpace(r.Sex),
			Year:        r.Year,
			Month:       month,
			Day:         day,
			TowDate:     r.TowDate,
			Season:      domain.TitleCase(r.Season),
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			SurfaceTemp: r.SurfaceTemp,
			BottomTemp:  r.BottomTemp,
			Depth:       r.Depth,
			Biomass:     r.Biomass,
			Abundance:   r.Abundance,
		}

		if name, found := lookup[code]; found {
			obs.CommonName = name.CommonName
			obs.ScientificName = name.ScientificName
		} else {
			audit.UnmatchedSpecies++
		}

		out = append(out, obs)
	}
	return out
}

// stratNum drops the leading survey-region digit: characters 2-3 of the
// padded four-digit stratum.
func stratNum(padded string) string {
	if len(padded) < 3 {
		return ""
	}
	return padded[1:3]
}

// parseTowDate extracts integer month and day from a YYYY-MM-DD tow date.
// The month sits at fixed positions 6-7 and the day is the last two
// characters. Anything that is not a well-formed YYYY-MM-DD string returns
// (0, 0, false) so a malformed date never crashes the pipeline.
func parseTowDate(date string) (month, day int, ok bool) {
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return 0, 0, false
	}
	for i, c := range date {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return 0, 0, false
		}
	}
	month = int(date[5]-'0')*10 + int(date[6]-'0')
	day = int(date[8]-'0')*10 + int(date[9]-'0')
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, false
	}
	return month, day, true
}
