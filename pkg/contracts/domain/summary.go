package domain

// GroupKey selects the grouping used by the aggregation engine beyond the
// always-present (species, year) partition.
type GroupKey string

const (
	// GroupAnnual groups by (species, year); feeds the trend line plots.
	GroupAnnual GroupKey = "annual"
	// GroupSeasonal groups by (species, season, year); feeds the map view.
	GroupSeasonal GroupKey = "seasonal"
)

// DecadeOf bins a year to the nearest lower multiple of ten.
func DecadeOf(year int) int {
	return 10 * (year / 10)
}

// WeightedSummaryRecord is one aggregated row per species per grouping key:
// decade bin, biomass totals, and the biomass-weighted spatial and
// environmental centers consumed by the dashboard plots. Season is empty for
// annual grouping. Weighted means are missing (NaN) when every contributing
// record lacked the field or carried zero weight.
type WeightedSummaryRecord struct {
	Species string `json:"species"`
	Season  string `json:"season,omitempty"`
	Year    int    `json:"year"`
	Decade  int    `json:"decade"`

	TowCount     int     `json:"tow_count"`
	TotalBiomass float64 `json:"total_biomass"`
	AvgBiomass   float64 `json:"avg_biomass"`
	BiomassSD    float64 `json:"biomass_sd"`

	AvgLat   float64 `json:"avg_lat"`
	AvgLon   float64 `json:"avg_lon"`
	AvgSST   float64 `json:"avg_sst"`
	AvgBot   float64 `json:"avg_bot"`
	AvgDepth float64 `json:"avg_depth"`
}

// DecadeCentroid is the biomass-weighted geographic center of a species for
// one decade, with the great-circle distance travelled since the previous
// decade's centroid. DriftKm is missing for the first decade on record.
type DecadeCentroid struct {
	Species      string  `json:"species"`
	Season       string  `json:"season,omitempty"`
	Decade       int     `json:"decade"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lon"`
	TotalBiomass float64 `json:"total_biomass"`
	DriftKm      float64 `json:"drift_km"`
}
