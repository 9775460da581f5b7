package domain

import "fmt"

// Zero-padding widths for the tow identity components. The widths are
// load-bearing: survey coding ranges only guarantee collision-free
// identifiers when cruise, station and stratum are padded to exactly these
// sizes before concatenation. Never replace the identifier with a numeric or
// hashed key.
const (
	CruisePadWidth  = 6
	StationPadWidth = 3
	StratumPadWidth = 4

	// SpeciesCodePadWidth is the width species codes are padded to before
	// joining against the reference list.
	SpeciesCodePadWidth = 3
)

// PadLeft left-pads s with zeros to width. Strings already at or beyond
// width are returned unchanged.
func PadLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return fmt.Sprintf("%0*s", width, s)
}

// TowIdentifier derives the canonical tow id from a (cruise, station,
// stratum) triple: each component left-zero-padded to its fixed width, then
// concatenated in that order. The result is a pure function of its inputs;
// two records from the same sampling event always map to the same id.
func TowIdentifier(cruise, station, stratum string) string {
	return PadLeft(cruise, CruisePadWidth) +
		PadLeft(station, StationPadWidth) +
		PadLeft(stratum, StratumPadWidth)
}

// CleanedBiomassRecord is the single source of truth for the cleaned survey
// dataset: exactly one row per (tow id, species code) pair, with biomass
// summed across sex classes for that species within that tow.
//
// This is the schema persisted between pipeline runs and consumed by the
// aggregation engine, so every field here is part of the snapshot contract.
// TotalBiomassKg is always > 0 after cleaning (zero-valued artifacts are
// floored or dropped upstream). Environmental fields may be missing (NaN in
// memory, empty cell in CSV, null over JSON).
type CleanedBiomassRecord struct {
	// TowID is the padded cruise+station+stratum composite key.
	TowID string `json:"id"`

	// SpeciesCode is the zero-padded survey species code (svspp).
	SpeciesCode string `json:"svspp"`

	// CommonName and ScientificName are lower-cased join keys; use
	// domain.TitleCase for display.
	CommonName     string `json:"comname"`
	ScientificName string `json:"sciname"`

	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Season string `json:"season"`

	// StratNum is the stratum with its leading survey-region digit dropped
	// (characters 2-3 of the padded stratum).
	StratNum string `json:"strat_num"`

	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	SurfaceTemp float64 `json:"surftemp"`
	BottomTemp  float64 `json:"bottemp"`
	Depth       float64 `json:"depth"`

	TowDate string `json:"est_towdate"`

	// TotalBiomassKg is the summed catch weight for the species in the tow.
	TotalBiomassKg float64 `json:"total_biomass_kg"`
}

// GroupTowKey returns the (tow id, species code) pair that must be unique in
// a cleaned dataset.
func (r CleanedBiomassRecord) GroupTowKey() string {
	return r.TowID + "|" + r.SpeciesCode
}
