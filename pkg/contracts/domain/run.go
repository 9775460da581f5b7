package domain

import "time"

// PipelineRun represents one execution of the cleaning and aggregation
// pipeline against a raw snapshot, whether triggered from the CLI, the HTTP
// API, or the scheduler.
type PipelineRun struct {
	ID          string         `json:"id"`
	Status      RunStatus      `json:"status"`
	Trigger     RunTrigger     `json:"trigger"`
	Steps       []RunStep      `json:"steps"`
	Audit       *CleaningAudit `json:"audit,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunTrigger records what started a run.
type RunTrigger string

const (
	RunTriggerManual    RunTrigger = "manual"
	RunTriggerAPI       RunTrigger = "api"
	RunTriggerScheduled RunTrigger = "scheduled"
)

// RunOptions carries per-run overrides accepted by the refresh API. The zero
// value runs the pipeline against the configured snapshot with every step
// enabled.
type RunOptions struct {
	// Source overrides the configured raw snapshot path for this run.
	Source string `json:"source,omitempty"`
	// Format selects the raw snapshot reader, "csv" or "xlsx". Empty keeps
	// the configured format.
	Format string `json:"format,omitempty"`
	// DryRun stops the run after aggregation: nothing is written to disk
	// and the served dataset is left untouched.
	DryRun bool `json:"dry_run,omitempty"`
}

// RunStep is the externally visible state of one pipeline step within a run.
type RunStep struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	Progress    float64    `json:"progress"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StepStatus represents the status of a single step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// RunProgress is a progress event broadcast to WebSocket subscribers while a
// run executes.
type RunProgress struct {
	RunID     string    `json:"run_id"`
	StepID    string    `json:"step_id,omitempty"`
	Status    RunStatus `json:"status"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Step identifiers and display names for the standard pipeline.
const (
	StepIDLoad      = "load"
	StepIDClean     = "clean"
	StepIDAggregate = "aggregate"
	StepIDExport    = "export"
	StepIDPublish   = "publish"
)

const (
	StepNameLoad      = "Snapshot Loading"
	StepNameClean     = "Cleaning & Filtering"
	StepNameAggregate = "Weighted Aggregation"
	StepNameExport    = "Snapshot Export"
	StepNamePublish   = "Dataset Publication"
)
