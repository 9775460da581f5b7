package config

import "time"

// Application constants for the TrawlScope survey explorer.
const (
	AppName    = "TrawlScope"
	AppVersion = "1.2.0"

	// Network timeouts.
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// API endpoints.
	APIBasePath        = "/api"
	SpeciesEndpoint    = "/api/species"
	DatasetEndpoint    = "/api/dataset"
	OperationsEndpoint = "/api/operations"
	HealthEndpoint     = "/api/health"
	MetricsEndpoint    = "/metrics"
	WebSocketEndpoint  = "/ws"

	// Log settings.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Survey cleaning thresholds. Every filter the pipeline applies is declared
// here so the sampling domain can be audited and tested without reading the
// pipeline code. Values define the well-sampled core of the bottom-trawl
// survey and are fixed properties of the survey design, not tunables.
const (
	// MinStratum and MaxStratum bound the offshore strata retained by the
	// spatial filter (inclusive).
	MinStratum = 1010
	MaxStratum = 1760

	// MinSurveyYear is the temporal floor; earlier cruises used gear that
	// is not comparable.
	MinSurveyYear = 1970

	// BiomassFloorKg replaces a recorded zero biomass when the paired
	// abundance is positive: present but too small to weigh.
	BiomassFloorKg = 1e-4

	// AbundanceFloor replaces a recorded zero abundance when the paired
	// biomass is positive: present, count uncertain.
	AbundanceFloor = 1

	// MinTowsPerSeason is the tow count a species must reach in a
	// (year, season) cell for that cell to count toward coverage.
	MinTowsPerSeason = 5

	// SeasonsRequired is the number of season cells that must clear
	// MinTowsPerSeason for a year to count as covered.
	SeasonsRequired = 2

	// CoverageSlackFraction is the share of the survey-year span a species
	// may miss and still be eligible. The covered-year threshold is
	// span - floor(CoverageSlackFraction * span).
	CoverageSlackFraction = 0.08
)

// ExcludedStrata lists strata inside [MinStratum, MaxStratum] that were
// sampled too inconsistently to keep.
var ExcludedStrata = map[int]bool{
	1310: true,
	1320: true,
	1330: true,
	1350: true,
	1410: true,
	1420: true,
	1490: true,
}

// AnomalousSurveyYears are excluded from the canonical output regardless of
// species eligibility: 2017 had incomplete vessel coverage and 2020 lost a
// season to the pandemic.
var AnomalousSurveyYears = map[int]bool{
	2017: true,
	2020: true,
}

// SpeciesCodeRange is a closed interval of excluded species codes.
type SpeciesCodeRange struct {
	Low, High int
}

// ExcludedSpeciesRanges lists invertebrate and non-target taxon code blocks
// dropped by the taxonomic filter.
var ExcludedSpeciesRanges = []SpeciesCodeRange{
	{Low: 285, High: 299},
	{Low: 910, High: 915},
	{Low: 955, High: 961},
}

// ExcludedSpeciesCodes lists individually excluded taxon codes and the
// non-species sentinel codes. Code 0 also covers the "000" string form,
// which parses to the same value.
var ExcludedSpeciesCodes = map[int]bool{
	305: true,
	306: true,
	307: true,
	316: true,
	323: true,

	0:   true,
	978: true,
	979: true,
	980: true,
	998: true,
}

// SpeciesCodeExcluded reports whether a parsed species code falls in the
// taxonomic blocklist.
func SpeciesCodeExcluded(code int) bool {
	if ExcludedSpeciesCodes[code] {
		return true
	}
	for _, r := range ExcludedSpeciesRanges {
		if code >= r.Low && code <= r.High {
			return true
		}
	}
	return false
}

// StratumKept reports whether a stratum is inside the retained survey
// domain.
func StratumKept(stratum int) bool {
	if stratum < MinStratum || stratum > MaxStratum {
		return false
	}
	return !ExcludedStrata[stratum]
}
