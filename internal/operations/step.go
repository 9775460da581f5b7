package operations

import (
	"context"
	"sync"
	"time"

	"trawlscope/pkg/contracts/domain"
)

// Step is a single stage of a pipeline run.
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step with the given context and run state
	Execute(ctx context.Context, state *OperationState) error

	// Validate checks if the step can be executed with the current state
	Validate(state *OperationState) error
}

// StepState tracks the runtime state of a step within one run.
type StepState struct {
	mu          sync.RWMutex
	id          string
	name        string
	status      domain.StepStatus
	progress    float64
	message     string
	err         error
	startedAt   *time.Time
	completedAt *time.Time
}

// NewStepState creates a pending step state.
func NewStepState(id, name string) *StepState {
	return &StepState{
		id:     id,
		name:   name,
		status: domain.StepStatusPending,
	}
}

// Start marks the step as running and sets the start time.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.startedAt = &now
	s.status = domain.StepStatusRunning
	s.progress = 0
}

// Complete marks the step as completed and sets the end time.
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.completedAt = &now
	s.status = domain.StepStatusCompleted
	s.progress = 100
}

// Fail marks the step as failed with the given error.
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.completedAt = &now
	s.status = domain.StepStatusFailed
	s.err = err
}

// Skip marks the step as skipped with the given reason.
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.completedAt = &now
	s.status = domain.StepStatusSkipped
	s.message = reason
}

// UpdateProgress updates the step progress and message.
func (s *StepState) UpdateProgress(progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = progress
	s.message = message
}

// Status returns the current step status.
func (s *StepState) Status() domain.StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Duration returns how long the step has been (or was) running.
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.startedAt == nil {
		return 0
	}
	if s.completedAt != nil {
		return s.completedAt.Sub(*s.startedAt)
	}
	return time.Since(*s.startedAt)
}

// Snapshot returns the externally visible state of the step.
func (s *StepState) Snapshot() domain.RunStep {
	s.mu.RLock()
	defer s.mu.RUnlock()

	step := domain.RunStep{
		ID:       s.id,
		Name:     s.name,
		Status:   s.status,
		Progress: s.progress,
		Message:  s.message,
	}
	if s.err != nil {
		step.Error = s.err.Error()
	}
	if s.startedAt != nil {
		t := *s.startedAt
		step.StartedAt = &t
	}
	if s.completedAt != nil {
		t := *s.completedAt
		step.CompletedAt = &t
	}
	return step
}
