package operations

import (
	"sync"
	"time"

	"trawlscope/pkg/contracts/domain"
)

// Context keys for data passed between steps of a run.
const (
	ctxKeyRawRecords   = "raw_records"
	ctxKeySpeciesNames = "species_names"
	ctxKeyCleanRecords = "clean_records"
	ctxKeyAudit        = "cleaning_audit"
	ctxKeyAnnual       = "annual_summaries"
	ctxKeySeasonal     = "seasonal_summaries"
)

// OperationState is the complete state of one pipeline run.
type OperationState struct {
	mu sync.RWMutex

	id      string
	trigger domain.RunTrigger
	options domain.RunOptions
	status  domain.RunStatus

	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time

	stepOrder []string
	steps     map[string]*StepState

	// context passes data between steps
	context map[string]interface{}

	err error

	// notify receives progress events as the run advances; set by the
	// Manager before execution starts.
	notify func(domain.RunProgress)
}

// NewOperationState creates a pending run state.
func NewOperationState(id string, trigger domain.RunTrigger) *OperationState {
	return &OperationState{
		id:        id,
		trigger:   trigger,
		status:    domain.RunStatusPending,
		createdAt: time.Now(),
		steps:     make(map[string]*StepState),
		context:   make(map[string]interface{}),
	}
}

// AddStep registers a step in execution order.
func (o *OperationState) AddStep(id, name string) *StepState {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := NewStepState(id, name)
	o.stepOrder = append(o.stepOrder, id)
	o.steps[id] = state
	return state
}

// Step returns the state of a specific step.
func (o *OperationState) Step(id string) *StepState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.steps[id]
}

// ID returns the run identifier.
func (o *OperationState) ID() string {
	return o.id
}

// Trigger returns what started the run.
func (o *OperationState) Trigger() domain.RunTrigger {
	return o.trigger
}

// Options returns the per-run overrides the run was started with.
func (o *OperationState) Options() domain.RunOptions {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.options
}

// Status returns the current run status.
func (o *OperationState) Status() domain.RunStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Err returns the run error, if any.
func (o *OperationState) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.err
}

// Start marks the run as running.
func (o *OperationState) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	o.startedAt = &now
	o.status = domain.RunStatusRunning
}

// Complete marks the run as completed.
func (o *OperationState) Complete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	o.completedAt = &now
	o.status = domain.RunStatusCompleted
}

// Fail marks the run as failed.
func (o *OperationState) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	o.completedAt = &now
	o.status = domain.RunStatusFailed
	o.err = err
}

// Cancel marks the run as cancelled.
func (o *OperationState) Cancel(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	o.completedAt = &now
	o.status = domain.RunStatusCancelled
	o.err = err
}

// GetContext retrieves a value from the run context.
func (o *OperationState) GetContext(key string) (interface{}, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	val, ok := o.context[key]
	return val, ok
}

// SetContext sets a value in the run context.
func (o *OperationState) SetContext(key string, value interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.context[key] = value
}

// Duration returns how long the run has been (or was) running.
func (o *OperationState) Duration() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.startedAt == nil {
		return 0
	}
	if o.completedAt != nil {
		return o.completedAt.Sub(*o.startedAt)
	}
	return time.Since(*o.startedAt)
}

// StepProgress updates a step's progress and pushes the event to the run's
// progress listener.
func (o *OperationState) StepProgress(stepID string, progress float64, message string) {
	step := o.Step(stepID)
	if step != nil {
		step.UpdateProgress(progress, message)
	}

	o.mu.RLock()
	notify := o.notify
	status := o.status
	o.mu.RUnlock()

	if notify != nil {
		notify(domain.RunProgress{
			RunID:     o.id,
			StepID:    stepID,
			Status:    status,
			Progress:  progress,
			Message:   message,
			Timestamp: time.Now(),
		})
	}
}

// Snapshot returns the externally visible state of the run, steps in
// execution order.
func (o *OperationState) Snapshot() domain.PipelineRun {
	o.mu.RLock()
	defer o.mu.RUnlock()

	run := domain.PipelineRun{
		ID:        o.id,
		Status:    o.status,
		Trigger:   o.trigger,
		CreatedAt: o.createdAt,
	}
	if o.startedAt != nil {
		t := *o.startedAt
		run.StartedAt = &t
	}
	if o.completedAt != nil {
		t := *o.completedAt
		run.CompletedAt = &t
	}
	if o.err != nil {
		run.Error = o.err.Error()
	}
	if audit, ok := o.context[ctxKeyAudit].(*domain.CleaningAudit); ok {
		a := *audit
		run.Audit = &a
	}

	run.Steps = make([]domain.RunStep, 0, len(o.stepOrder))
	for _, id := range o.stepOrder {
		run.Steps = append(run.Steps, o.steps[id].Snapshot())
	}
	return run
}
