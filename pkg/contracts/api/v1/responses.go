package api

import (
	"trawlscope/pkg/contracts/domain"
)

// SummaryPoint is the JSON shape of one WeightedSummaryRecord. Weighted
// means that are undefined for a group (all weights missing or zero) are
// encoded as null, which NaN cannot survive json.Marshal.
type SummaryPoint struct {
	Species string `json:"species"`
	Season  string `json:"season,omitempty"`
	Year    int    `json:"year"`
	Decade  int    `json:"decade"`

	TowCount     int      `json:"tow_count"`
	TotalBiomass float64  `json:"total_biomass"`
	AvgBiomass   float64  `json:"avg_biomass"`
	BiomassSD    *float64 `json:"biomass_sd"`

	AvgLat   *float64 `json:"avg_lat"`
	AvgLon   *float64 `json:"avg_lon"`
	AvgSST   *float64 `json:"avg_sst"`
	AvgBot   *float64 `json:"avg_bot"`
	AvgDepth *float64 `json:"avg_depth"`
}

// CentroidPoint is the JSON shape of one DecadeCentroid for the map view.
type CentroidPoint struct {
	Species      string   `json:"species"`
	Season       string   `json:"season,omitempty"`
	Decade       int      `json:"decade"`
	Latitude     *float64 `json:"lat"`
	Longitude    *float64 `json:"lon"`
	TotalBiomass float64  `json:"total_biomass"`
	DriftKm      *float64 `json:"drift_km"`
}

// SeasonalSeriesResponse bundles one species' seasonal summary rows with the
// decade centroids derived from them.
type SeasonalSeriesResponse struct {
	Summaries []SummaryPoint  `json:"summaries"`
	Centroids []CentroidPoint `json:"centroids"`
}

// NullableFloat converts the in-memory missing-value sentinel to a JSON
// null. Present values pass through as a pointer.
func NullableFloat(v float64) *float64 {
	if domain.IsMissing(v) {
		return nil
	}
	return &v
}

// SummaryPointsFrom converts domain summary rows to their JSON shapes.
func SummaryPointsFrom(rows []domain.WeightedSummaryRecord) []SummaryPoint {
	out := make([]SummaryPoint, len(rows))
	for i, r := range rows {
		out[i] = SummaryPointFrom(r)
	}
	return out
}

// CentroidPointsFrom converts domain centroids to their JSON shapes.
func CentroidPointsFrom(centroids []domain.DecadeCentroid) []CentroidPoint {
	out := make([]CentroidPoint, len(centroids))
	for i, c := range centroids {
		out[i] = CentroidPointFrom(c)
	}
	return out
}

// SummaryPointFrom converts a domain record to its JSON shape.
func SummaryPointFrom(r domain.WeightedSummaryRecord) SummaryPoint {
	return SummaryPoint{
		Species:      r.Species,
		Season:       r.Season,
		Year:         r.Year,
		Decade:       r.Decade,
		TowCount:     r.TowCount,
		TotalBiomass: r.TotalBiomass,
		AvgBiomass:   r.AvgBiomass,
		BiomassSD:    NullableFloat(r.BiomassSD),
		AvgLat:       NullableFloat(r.AvgLat),
		AvgLon:       NullableFloat(r.AvgLon),
		AvgSST:       NullableFloat(r.AvgSST),
		AvgBot:       NullableFloat(r.AvgBot),
		AvgDepth:     NullableFloat(r.AvgDepth),
	}
}

// CentroidPointFrom converts a domain centroid to its JSON shape.
func CentroidPointFrom(c domain.DecadeCentroid) CentroidPoint {
	return CentroidPoint{
		Species:      c.Species,
		Season:       c.Season,
		Decade:       c.Decade,
		Latitude:     NullableFloat(c.Latitude),
		Longitude:    NullableFloat(c.Longitude),
		TotalBiomass: c.TotalBiomass,
		DriftKm:      NullableFloat(c.DriftKm),
	}
}
