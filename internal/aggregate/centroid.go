package aggregate

import (
	"sort"

	"github.com/golang/geo/s2"

	"trawlscope/pkg/contracts/domain"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Centroids collapses a summary table into one biomass-weighted geographic
// center per (species, season, decade), with the great-circle distance
// drifted since the previous decade on record. The first decade of a series
// has no predecessor and carries a missing drift.
//
// Yearly centers are weighted by their total biomass, so a heavy year pulls
// the decade centroid harder than a lean one. Rows whose center is missing
// are excluded pairwise, like any other weighted mean.
func Centroids(summaries []domain.WeightedSummaryRecord) []domain.DecadeCentroid {
	type centroidKey struct {
		species string
		season  string
		decade  int
	}

	groups := make(map[centroidKey][]domain.WeightedSummaryRecord)
	for _, s := range summaries {
		k := centroidKey{species: s.Species, season: s.Season, decade: s.Decade}
		groups[k] = append(groups[k], s)
	}

	out := make([]domain.DecadeCentroid, 0, len(groups))
	for k, rows := range groups {
		weights := make([]float64, len(rows))
		lat := make([]float64, len(rows))
		lon := make([]float64, len(rows))
		for i, r := range rows {
			weights[i] = r.TotalBiomass
			lat[i] = r.AvgLat
			lon[i] = r.AvgLon
		}
		out = append(out, domain.DecadeCentroid{
			Species:      k.species,
			Season:       k.season,
			Decade:       k.decade,
			Latitude:     WeightedMean(lat, weights),
			Longitude:    WeightedMean(lon, weights),
			TotalBiomass: Sum(weights),
			DriftKm:      domain.Missing(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Species != out[j].Species {
			return out[i].Species < out[j].Species
		}
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Decade < out[j].Decade
	})

	// Drift is measured against the previous decade of the same series.
	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1], out[i]
		if prev.Species != cur.Species || prev.Season != cur.Season {
			continue
		}
		if domain.IsMissing(prev.Latitude) || domain.IsMissing(prev.Longitude) ||
			domain.IsMissing(cur.Latitude) || domain.IsMissing(cur.Longitude) {
			continue
		}
		out[i].DriftKm = distanceKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	}
	return out
}

// distanceKm is the great-circle distance between two coordinates.
func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}
