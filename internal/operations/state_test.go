package operations

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trawlscope/pkg/contracts/domain"
)

func TestOperationStateLifecycle(t *testing.T) {
	state := NewOperationState("run-1", domain.RunTriggerAPI)
	assert.Equal(t, domain.RunStatusPending, state.Status())
	assert.Equal(t, domain.RunTriggerAPI, state.Trigger())
	assert.Zero(t, state.Duration())

	state.Start()
	assert.Equal(t, domain.RunStatusRunning, state.Status())

	state.Complete()
	assert.Equal(t, domain.RunStatusCompleted, state.Status())
	assert.NoError(t, state.Err())
}

func TestOperationStateFail(t *testing.T) {
	state := NewOperationState("run-1", domain.RunTriggerManual)
	state.Start()
	state.Fail(errors.New("boom"))

	assert.Equal(t, domain.RunStatusFailed, state.Status())
	assert.EqualError(t, state.Err(), "boom")

	run := state.Snapshot()
	assert.Equal(t, "boom", run.Error)
}

func TestOperationStateSnapshotOrdersSteps(t *testing.T) {
	state := NewOperationState("run-1", domain.RunTriggerManual)
	state.AddStep("load", "Snapshot Loading")
	state.AddStep("clean", "Cleaning & Filtering")
	state.AddStep("aggregate", "Weighted Aggregation")

	state.Step("clean").Start()
	state.Step("clean").Complete()

	run := state.Snapshot()
	require.Len(t, run.Steps, 3)
	assert.Equal(t, "load", run.Steps[0].ID)
	assert.Equal(t, "clean", run.Steps[1].ID)
	assert.Equal(t, "aggregate", run.Steps[2].ID)
	assert.Equal(t, domain.StepStatusCompleted, run.Steps[1].Status)
	assert.Equal(t, domain.StepStatusPending, run.Steps[0].Status)
}

func TestOperationStateSnapshotCopiesAudit(t *testing.T) {
	state := NewOperationState("run-1", domain.RunTriggerManual)
	audit := &domain.CleaningAudit{RawRows: 10, CleanRows: 7}
	state.SetContext(ctxKeyAudit, audit)

	run := state.Snapshot()
	require.NotNil(t, run.Audit)
	assert.Equal(t, 10, run.Audit.RawRows)

	// Mutating the original after the snapshot must not leak through.
	audit.RawRows = 99
	assert.Equal(t, 10, run.Audit.RawRows)
}

func TestStepProgressNotifies(t *testing.T) {
	state := NewOperationState("run-1", domain.RunTriggerManual)
	state.AddStep("load", "Snapshot Loading")

	var got []domain.RunProgress
	state.notify = func(p domain.RunProgress) { got = append(got, p) }

	state.Start()
	state.StepProgress("load", 42, "Loading rows")

	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].RunID)
	assert.Equal(t, "load", got[0].StepID)
	assert.Equal(t, 42.0, got[0].Progress)
	assert.Equal(t, "Loading rows", got[0].Message)
	assert.Equal(t, domain.RunStatusRunning, got[0].Status)

	step := state.Step("load").Snapshot()
	assert.Equal(t, 42.0, step.Progress)
	assert.Equal(t, "Loading rows", step.Message)
}

func TestStepStateSkip(t *testing.T) {
	step := NewStepState("export", "Snapshot Export")
	step.Skip("upstream step failed")

	snap := step.Snapshot()
	assert.Equal(t, domain.StepStatusSkipped, snap.Status)
	assert.Equal(t, "upstream step failed", snap.Message)
	assert.NotNil(t, snap.CompletedAt)
	assert.Nil(t, snap.StartedAt)
}

func TestStepStateDuration(t *testing.T) {
	step := NewStepState("load", "Snapshot Loading")
	assert.Zero(t, step.Duration())

	step.Start()
	time.Sleep(5 * time.Millisecond)
	step.Complete()

	assert.Greater(t, step.Duration(), time.Duration(0))
	frozen := step.Duration()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, frozen, step.Duration())
}
