package survey

import (
	"context"
	"log/slog"
	"time"

	"trawlscope/internal/config"
	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

// Pipeline runs the cleaning stages in dependency order against one raw
// snapshot. A Pipeline is stateless between runs; every invocation builds
// its own audit and never mutates its inputs, so one instance can be shared
// freely.
type Pipeline struct {
	logger *slog.Logger
}

// NewPipeline creates a cleaning pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger: logger.With(slog.String("component", "survey_pipeline")),
	}
}

// Result is the outcome of one cleaning run: the canonical cleaned dataset
// and the audit trail of everything corrected or dropped on the way.
type Result struct {
	Records []domain.CleanedBiomassRecord
	Audit   domain.CleaningAudit
}

// Clean transforms a raw catch snapshot into the canonical cleaned dataset:
// identity normalization, zero-value reconciliation, domain filtering, the
// per-tow species collapse, then the species-eligibility filter.
//
// The anomalous survey years are removed before eligibility is computed, so
// coverage is counted over exactly the years that can appear in the output
// and re-running Clean on its own output reproduces it unchanged.
func (p *Pipeline) Clean(ctx context.Context, raw []domain.RawTowCatch, names []domain.SpeciesName) (*Result, error) {
	start := time.Now()
	audit := domain.CleaningAudit{
		RawRows:   len(raw),
		StartedAt: start,
	}

	if len(raw) == 0 {
		return nil, apperrors.NewAppValidationError("raw snapshot contains no records")
	}

	p.logger.InfoContext(ctx, "starting cleaning pipeline",
		"raw_rows", len(raw),
		"species_names", len(names),
	)

	lookup := NewSpeciesLookup(names)

	observations := Normalize(raw, lookup, &audit)
	observations = Reconcile(observations, &audit)
	observations = FilterDomain(observations, &audit)

	p.logger.DebugContext(ctx, "row filters applied",
		"rows", len(observations),
		"invalid_tow_dates", audit.InvalidTowDates,
		"missing_dropped", audit.MissingDropped,
		"stratum_excluded", audit.StratumExcluded,
		"species_code_excluded", audit.SpeciesCodeExcluded,
		"year_excluded", audit.YearExcluded,
	)

	totals := CollapseTows(observations, &audit)

	kept := totals[:0:0]
	for _, r := range totals {
		if config.AnomalousSurveyYears[r.Year] {
			audit.AnomalousYearDropped++
			continue
		}
		kept = append(kept, r)
	}

	eligible := EligibleSpecies(kept, &audit)
	if len(eligible) == 0 {
		p.logger.WarnContext(ctx, "no species passed the eligibility filter",
			"species_considered", audit.SpeciesConsidered,
		)
		return nil, apperrors.ErrNoEligibleSpecies
	}

	records := kept[:0:0]
	for _, r := range kept {
		if !eligible[r.SpeciesCode] {
			audit.IneligibleDropped++
			continue
		}
		records = append(records, r)
	}

	audit.CleanRows = len(records)
	audit.Elapsed = time.Since(start)

	p.logger.InfoContext(ctx, "cleaning pipeline completed",
		"clean_rows", audit.CleanRows,
		"species_eligible", audit.SpeciesEligible,
		"total_dropped", audit.TotalDropped(),
		"duration", audit.Elapsed,
	)

	return &Result{Records: records, Audit: audit}, nil
}
