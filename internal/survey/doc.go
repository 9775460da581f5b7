// Package survey implements the cleaning and filtering pipeline that turns a
// raw bottom-trawl catch extract into the canonical cleaned dataset.
//
// The pipeline is a chain of pure stage functions run in dependency order:
// identity normalization, zero-value reconciliation, domain filtering,
// per-tow species totals, and the species-eligibility filter. Every stage
// takes an immutable input slice and returns a new one; nothing is mutated in
// place, so a run is deterministic and re-runnable. Rows removed along the
// way are counted in a domain.CleaningAudit rather than logged one by one.
//
// All thresholds and blocklists the stages apply live in internal/config so
// the survey domain can be audited without reading pipeline code.
package survey
