package domain

import "time"

// CleaningAudit counts every row the pipeline corrected or discarded, stage
// by stage. Drops are intentional and silent at the row level; the audit is
// how callers observe and log them.
type CleaningAudit struct {
	RawRows int `json:"raw_rows"`

	// Normalization.
	InvalidTowDates  int `json:"invalid_tow_dates"`
	UnmatchedSpecies int `json:"unmatched_species"`

	// Zero-value reconciliation.
	BiomassFloored   int `json:"biomass_floored"`
	AbundanceFloored int `json:"abundance_floored"`
	MissingDropped   int `json:"missing_dropped"`
	ZeroPairDropped  int `json:"zero_pair_dropped"`

	// Domain filters.
	StratumExcluded     int `json:"stratum_excluded"`
	SpeciesCodeExcluded int `json:"species_code_excluded"`
	YearExcluded        int `json:"year_excluded"`

	// Per-tow collapse.
	DuplicatesCollapsed int `json:"duplicates_collapsed"`

	// Eligibility.
	SpeciesConsidered    int `json:"species_considered"`
	SpeciesEligible      int `json:"species_eligible"`
	IneligibleDropped    int `json:"ineligible_dropped"`
	AnomalousYearDropped int `json:"anomalous_year_dropped"`

	CleanRows   int           `json:"clean_rows"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed"`
	SnapshotRef string        `json:"snapshot_ref,omitempty"`
}

// TotalDropped sums every row removed between the raw and cleaned tables,
// excluding rows merged by the duplicate collapse.
func (a CleaningAudit) TotalDropped() int {
	return a.MissingDropped +
		a.ZeroPairDropped +
		a.StratumExcluded +
		a.SpeciesCodeExcluded +
		a.YearExcluded +
		a.IneligibleDropped +
		a.AnomalousYearDropped
}
