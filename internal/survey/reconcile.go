package survey

import (
	"trawlscope/internal/config"
	"trawlscope/pkg/contracts/domain"
)

// Reconcile corrects the known instrument artifact where biomass or
// abundance is recorded as exactly zero while the paired field is positive:
// a zero biomass against a positive count becomes the fixed floor (present
// but unweighable) and a zero count against a positive biomass becomes one
// (present, count uncertain).
//
// After correction, records still missing either field are dropped, as are
// records where both fields were genuinely zero. Every surviving record
// therefore has biomass > 0 and abundance > 0, which downstream weighted
// statistics rely on. False zeros are never injected; that would bias the
// biomass-weighted means toward zero.
func Reconcile(obs []domain.SpeciesObservation, audit *domain.CleaningAudit) []domain.SpeciesObservation {
	out := make([]domain.SpeciesObservation, 0, len(obs))
	for _, o := range obs {
		biomass := o.Biomass
		abundance := o.Abundance

		switch {
		case biomass == 0 && abundance > 0:
			biomass = config.BiomassFloorKg
			audit.BiomassFloored++
		case abundance == 0 && biomass > 0:
			abundance = config.AbundanceFloor
			audit.AbundanceFloored++
		}

		if domain.IsMissing(biomass) || domain.IsMissing(abundance) {
			audit.MissingDropped++
			continue
		}
		if biomass == 0 && abundance == 0 {
			audit.ZeroPairDropped++
			continue
		}

		o.Biomass = biomass
		o.Abundance = abundance
		out = append(out, o)
	}
	return out
}
