package domain

import (
	"math"
	"strings"
)

// Missing is the in-memory representation of an absent numeric value.
// Raw survey extracts leave cells empty rather than writing zero, and the
// cleaning rules treat "zero" and "absent" differently, so the distinction
// must survive loading.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// RawTowCatch is one row of the raw survey extract: a single
// species-catch-sex observation recorded within a tow. Rows are immutable
// once loaded; the cleaning pipeline never mutates them in place.
type RawTowCatch struct {
	Cruise      string  `json:"cruise6"`
	Station     string  `json:"station"`
	Stratum     string  `json:"stratum"`
	SpeciesCode string  `json:"svspp"`
	Sex         string  `json:"catchsex"`
	Year        int     `json:"year"`
	TowDate     string  `json:"est_towdate"`
	Season      string  `json:"season"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	SurfaceTemp float64 `json:"surftemp"`
	BottomTemp  float64 `json:"bottemp"`
	Depth       float64 `json:"depth"`
	Biomass     float64 `json:"biomass"`
	Abundance   float64 `json:"abundance"`
}

// SpeciesObservation is the normalized per-tow, per-species, per-sex record
// the pipeline stages operate on. TowID, StratNum, Month and Day are derived
// during normalization; Biomass and Abundance are corrected during
// reconciliation.
type SpeciesObservation struct {
	TowID          string  `json:"id"`
	Cruise         string  `json:"cruise6"`
	Station        string  `json:"station"`
	Stratum        string  `json:"stratum"`
	StratNum       string  `json:"strat_num"`
	SpeciesCode    string  `json:"svspp"`
	CommonName     string  `json:"comname"`
	ScientificName string  `json:"sciname"`
	Sex            string  `json:"catchsex"`
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	Day            int     `json:"day"`
	TowDate        string  `json:"est_towdate"`
	Season         string  `json:"season"`
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	SurfaceTemp    float64 `json:"surftemp"`
	BottomTemp     float64 `json:"bottemp"`
	Depth          float64 `json:"depth"`
	Biomass        float64 `json:"biomass"`
	Abundance      float64 `json:"abundance"`
}

// SpeciesName is one row of the species reference list used to join display
// names onto catch records. Names are stored lower-cased; DisplayName
// title-cases on demand.
type SpeciesName struct {
	Code           string `json:"svspp"`
	CommonName     string `json:"comname"`
	ScientificName string `json:"sciname"`
}

// DisplayName returns the title-cased common name shown in the dashboard
// species selector.
func (s SpeciesName) DisplayName() string {
	return TitleCase(s.CommonName)
}

// Season labels as they appear after normalization.
const (
	SeasonSpring = "Spring"
	SeasonFall   = "Fall"
)

// TitleCase upper-cases the first letter of each space-separated word and
// lower-cases the rest. Survey names are plain ASCII so a rune-wise pass is
// sufficient.
func TitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
