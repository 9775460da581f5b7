package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "trawlscope/internal/errors"
	"trawlscope/internal/infrastructure"
	"trawlscope/pkg/contracts/domain"
)

// ProgressFunc receives progress events as runs advance. Listeners must not
// block; the WebSocket hub fans events out from its own goroutine.
type ProgressFunc func(domain.RunProgress)

// ManagerOptions tunes run execution.
type ManagerOptions struct {
	// Metrics receives run and step telemetry. Nil disables recording.
	Metrics *infrastructure.BusinessMetrics
	// Timeout caps a full run. Zero means DefaultRunTimeout.
	Timeout time.Duration
	// HistoryLimit bounds how many finished runs are kept for the status
	// API. Zero means DefaultHistoryLimit.
	HistoryLimit int
}

const (
	// DefaultRunTimeout caps a pipeline run when no timeout is configured.
	DefaultRunTimeout = 30 * time.Minute
	// DefaultHistoryLimit is how many runs the manager remembers.
	DefaultHistoryLimit = 20
)

// Manager executes pipeline runs. At most one run is active at a time; a
// second start attempt fails with ErrRunAlreadyActive until the active run
// reaches a terminal state.
type Manager struct {
	logger *slog.Logger
	steps  []Step
	opts   ManagerOptions

	mu     sync.Mutex
	active *OperationState
	runs   map[string]*OperationState
	order  []string

	listenerMu sync.RWMutex
	listeners  []ProgressFunc
}

// NewManager creates a run manager executing the given steps in order.
func NewManager(logger *slog.Logger, steps []Step, opts *ManagerOptions) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	options := ManagerOptions{}
	if opts != nil {
		options = *opts
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultRunTimeout
	}
	if options.HistoryLimit <= 0 {
		options.HistoryLimit = DefaultHistoryLimit
	}
	return &Manager{
		logger: logger.With(slog.String("component", "operations")),
		steps:  steps,
		opts:   options,
		runs:   make(map[string]*OperationState),
	}
}

// OnProgress registers a progress listener for all subsequent runs.
func (m *Manager) OnProgress(fn ProgressFunc) {
	if fn == nil {
		return
	}
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start launches a run asynchronously and returns its ID. The run outlives
// the caller's context; cancellation of an HTTP request must not abort a
// refresh already underway.
func (m *Manager) Start(ctx context.Context, trigger domain.RunTrigger, opts domain.RunOptions) (string, error) {
	state, err := m.reserve(trigger, opts)
	if err != nil {
		return "", err
	}

	go m.execute(context.WithoutCancel(ctx), state)
	return state.ID(), nil
}

// Run executes a run synchronously and returns its final state. Used by the
// CLI processor and the scheduler.
func (m *Manager) Run(ctx context.Context, trigger domain.RunTrigger) (domain.PipelineRun, error) {
	state, err := m.reserve(trigger, domain.RunOptions{})
	if err != nil {
		return domain.PipelineRun{}, err
	}

	m.execute(ctx, state)
	return state.Snapshot(), state.Err()
}

// Status returns the state of a run by ID.
func (m *Manager) Status(id string) (domain.PipelineRun, error) {
	m.mu.Lock()
	state, ok := m.runs[id]
	m.mu.Unlock()

	if !ok {
		return domain.PipelineRun{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownRun, id)
	}
	return state.Snapshot(), nil
}

// Current returns the active run, if any.
func (m *Manager) Current() (domain.PipelineRun, bool) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	if active == nil {
		return domain.PipelineRun{}, false
	}
	return active.Snapshot(), true
}

// Runs returns the remembered runs, newest first.
func (m *Manager) Runs() []domain.PipelineRun {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.PipelineRun, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.runs[m.order[i]].Snapshot())
	}
	return out
}

// reserve claims the single active slot and registers a new pending run.
func (m *Manager) reserve(trigger domain.RunTrigger, opts domain.RunOptions) (*OperationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, fmt.Errorf("%w: run %s in progress", apperrors.ErrRunAlreadyActive, m.active.ID())
	}

	state := NewOperationState(uuid.NewString(), trigger)
	state.options = opts
	state.notify = m.notifyProgress
	for _, step := range m.steps {
		state.AddStep(step.ID(), step.Name())
	}

	m.active = state
	m.runs[state.ID()] = state
	m.order = append(m.order, state.ID())

	// Trim the oldest finished runs past the history limit. The run just
	// registered is always last, so it is never evicted here.
	for len(m.order) > m.opts.HistoryLimit {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.runs, oldest)
	}

	return state, nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

// execute drives one run to a terminal state.
func (m *Manager) execute(ctx context.Context, state *OperationState) {
	defer m.release()

	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	logger := m.logger.With(
		slog.String("run_id", state.ID()),
		slog.String("trigger", string(state.Trigger())),
	)
	logger.InfoContext(ctx, "pipeline run started", slog.Int("steps", len(m.steps)))

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"run.id":      state.ID(),
		"run.trigger": string(state.Trigger()),
	})

	m.opts.Metrics.AddActive(ctx, 1, "pipeline")
	defer m.opts.Metrics.AddActive(ctx, -1, "pipeline")

	state.Start()

	var runErr error
	var cancelled bool
	for _, step := range m.steps {
		stepState := state.Step(step.ID())

		if runErr != nil {
			stepState.Skip("upstream step failed")
			state.StepProgress(step.ID(), 0, "Skipped: upstream step failed")
			continue
		}

		if err := step.Validate(state); err != nil {
			runErr = fmt.Errorf("step %s validation failed: %w", step.ID(), err)
			stepState.Fail(runErr)
			logger.ErrorContext(ctx, "step validation failed",
				slog.String("step", step.ID()),
				slog.String("error", err.Error()),
			)
			continue
		}

		stepState.Start()
		state.StepProgress(step.ID(), 0, fmt.Sprintf("%s started", step.Name()))

		err := step.Execute(ctx, state)
		m.opts.Metrics.RecordStep(ctx, state.ID(), step.ID(), stepState.Duration(), err == nil)

		if err != nil {
			runErr = err
			stepState.Fail(err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				cancelled = true
			}
			logger.ErrorContext(ctx, "step failed",
				slog.String("step", step.ID()),
				slog.Duration("duration", stepState.Duration()),
				slog.String("error", err.Error()),
			)
			continue
		}

		stepState.Complete()
		infrastructure.AddSpanEvent(ctx, "step.completed", map[string]interface{}{
			"step":             step.ID(),
			"duration_seconds": stepState.Duration().Seconds(),
		})
		logger.InfoContext(ctx, "step completed",
			slog.String("step", step.ID()),
			slog.Duration("duration", stepState.Duration()),
		)
	}

	switch {
	case cancelled:
		state.Cancel(runErr)
		m.opts.Metrics.RecordCancellation(ctx, state.ID(), "pipeline", runErr.Error())
	case runErr != nil:
		state.Fail(runErr)
	default:
		state.Complete()
	}

	if runErr != nil {
		infrastructure.RecordError(ctx, runErr)
	}

	m.recordRunMetrics(ctx, state, runErr)

	logger.InfoContext(ctx, "pipeline run finished",
		slog.String("status", string(state.Status())),
		slog.Duration("duration", state.Duration()),
	)

	m.notifyProgress(domain.RunProgress{
		RunID:     state.ID(),
		Status:    state.Status(),
		Progress:  100,
		Message:   fmt.Sprintf("Run %s", state.Status()),
		Timestamp: time.Now(),
	})
}

func (m *Manager) recordRunMetrics(ctx context.Context, state *OperationState, runErr error) {
	success := runErr == nil
	duration := state.Duration()

	m.opts.Metrics.RecordOperation(ctx, state.ID(), "pipeline", duration, runErr)
	m.opts.Metrics.RecordPipelineRun(ctx, string(state.Trigger()), duration, success)

	if !success {
		return
	}

	if audit, err := auditFromState(state); err == nil {
		m.opts.Metrics.RecordPipelineRows(ctx,
			int64(audit.RawRows), int64(audit.CleanRows),
			map[string]int64{
				"missing_values": int64(audit.MissingDropped),
				"zero_pair":      int64(audit.ZeroPairDropped),
				"stratum":        int64(audit.StratumExcluded),
				"species_code":   int64(audit.SpeciesCodeExcluded),
				"year":           int64(audit.YearExcluded),
				"anomalous_year": int64(audit.AnomalousYearDropped),
				"ineligible":     int64(audit.IneligibleDropped),
			})
	}
	if annual, err := summariesFromState(state, ctxKeyAnnual); err == nil {
		m.opts.Metrics.RecordSummaries(ctx, "annual", int64(len(annual)))
	}
	if seasonal, err := summariesFromState(state, ctxKeySeasonal); err == nil {
		m.opts.Metrics.RecordSummaries(ctx, "seasonal", int64(len(seasonal)))
	}
}

func (m *Manager) notifyProgress(p domain.RunProgress) {
	m.listenerMu.RLock()
	listeners := make([]ProgressFunc, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(p)
	}
}
