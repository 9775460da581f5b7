package errors

import (
	"errors"
)

// Sentinel errors for the pipeline and serving layers. Callers wrap these
// with %w and the HTTP error handler maps them to problem responses.
var (
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrDatasetNotLoaded  = errors.New("dataset not loaded")
	ErrRunAlreadyActive  = errors.New("run already active")
	ErrUnknownRun        = errors.New("unknown run")
	ErrUnknownSpecies    = errors.New("unknown species")
	ErrNoEligibleSpecies = errors.New("no eligible species in cleaned dataset")
)
