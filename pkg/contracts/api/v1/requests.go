// Package api contains API contract definitions for the TrawlScope survey
// explorer. Version v1 is the current stable API version.
package api

import (
	"fmt"
	"net/http"
)

// RefreshRequest asks the server to re-run the cleaning and aggregation
// pipeline against the configured raw snapshot. The body is optional; an
// empty request refreshes with the configured defaults.
type RefreshRequest struct {
	// Source overrides the configured raw snapshot path for this run.
	Source string `json:"source,omitempty" validate:"omitempty,max=512"`
	// Format selects the raw snapshot reader for this run.
	Format string `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx"`
	// DryRun cleans and aggregates without writing snapshots or touching
	// the served dataset.
	DryRun bool `json:"dry_run"`
}

// Bind implements the render.Binder interface for request validation
func (r *RefreshRequest) Bind(req *http.Request) error {
	if len(r.Source) > 512 {
		return fmt.Errorf("source path too long (%d chars)", len(r.Source))
	}

	switch r.Format {
	case "", "csv", "xlsx":
	default:
		return fmt.Errorf("invalid format: %s, expected csv or xlsx", r.Format)
	}

	return nil
}

// SpeciesRequest names one species in the URL path. The annual and seasonal
// summary endpoints share it.
type SpeciesRequest struct {
	Species string `json:"species" validate:"required,max=100"`
}

// SpeciesListRequest filters the species selector list.
type SpeciesListRequest struct {
	// Prefix narrows the list to display names starting with the prefix,
	// case-insensitively. Empty returns every eligible species.
	Prefix string `json:"prefix" validate:"omitempty,max=128"`
}
