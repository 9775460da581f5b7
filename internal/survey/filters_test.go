package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trawlscope/pkg/contracts/domain"
)

func TestFilterDomainStratum(t *testing.T) {
	tests := []struct {
		stratum string
		kept    bool
	}{
		{"1010", true},
		{"1760", true},
		{"1400", true},
		{"1009", false},
		{"1761", false},
		{"1310", false},
		{"1320", false},
		{"1330", false},
		{"1350", false},
		{"1410", false},
		{"1420", false},
		{"1490", false},
		{"9999", false},
	}

	for _, tt := range tests {
		t.Run(tt.stratum, func(t *testing.T) {
			obs := observation(func(o *domain.SpeciesObservation) { o.Stratum = tt.stratum })

			var audit domain.CleaningAudit
			out := FilterDomain([]domain.SpeciesObservation{obs}, &audit)

			if tt.kept {
				assert.Len(t, out, 1)
			} else {
				assert.Empty(t, out)
				assert.Equal(t, 1, audit.StratumExcluded)
			}
		})
	}
}

func TestFilterDomainSpeciesBlocklist(t *testing.T) {
	tests := []struct {
		code string
		kept bool
	}{
		{"073", true},
		{"284", true},
		{"285", false},
		{"292", false},
		{"299", false},
		{"300", true},
		{"305", false},
		{"306", false},
		{"307", false},
		{"308", true},
		{"316", false},
		{"323", false},
		{"909", true},
		{"910", false},
		{"915", false},
		{"916", true},
		{"955", false},
		{"961", false},
		{"978", false},
		{"979", false},
		{"980", false},
		{"998", false},
		{"997", true},
		{"000", false},
		{"abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			obs := observation(func(o *domain.SpeciesObservation) { o.SpeciesCode = tt.code })

			var audit domain.CleaningAudit
			out := FilterDomain([]domain.SpeciesObservation{obs}, &audit)

			if tt.kept {
				assert.Len(t, out, 1)
			} else {
				assert.Empty(t, out)
				assert.Equal(t, 1, audit.SpeciesCodeExcluded)
			}
		})
	}
}

func TestFilterDomainYearFloor(t *testing.T) {
	old := observation(func(o *domain.SpeciesObservation) { o.Year = 1969 })
	boundary := observation(func(o *domain.SpeciesObservation) { o.Year = 1970 })

	var audit domain.CleaningAudit
	out := FilterDomain([]domain.SpeciesObservation{old, boundary}, &audit)

	assert.Len(t, out, 1)
	assert.Equal(t, 1970, out[0].Year)
	assert.Equal(t, 1, audit.YearExcluded)
}

// The predicates are AND-combined, so applying them in any order keeps the
// same rows; only the audit attribution depends on order.
func TestFilterDomainIndependence(t *testing.T) {
	obs := []domain.SpeciesObservation{
		observation(nil),
		observation(func(o *domain.SpeciesObservation) { o.Stratum = "1310"; o.Year = 1950 }),
		observation(func(o *domain.SpeciesObservation) { o.SpeciesCode = "978"; o.Year = 1950 }),
	}

	var audit domain.CleaningAudit
	out := FilterDomain(obs, &audit)

	assert.Len(t, out, 1)
	assert.Equal(t, 2, audit.StratumExcluded+audit.SpeciesCodeExcluded+audit.YearExcluded,
		"each dropped row lands in exactly one counter")
}
