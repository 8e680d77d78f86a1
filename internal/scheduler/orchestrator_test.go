package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/config"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

type scriptedRunner struct {
	mu      sync.Mutex
	results []models.RunSummary
	calls   int
	block   chan struct{}
	started chan struct{}
}

func (r *scriptedRunner) RunAll(ctx context.Context, runID string) models.RunSummary {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var summary models.RunSummary
	if r.calls < len(r.results) {
		summary = r.results[r.calls]
	}
	r.calls++
	summary.RunID = runID
	summary.FinishedAt = time.Now()
	return summary
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func schedulerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scheduler.FailureThreshold = 3
	cfg.Scheduler.AlertInterval = time.Hour
	return cfg
}

func failedRun() models.RunSummary {
	return models.RunSummary{Success: false, Errors: []string{"boom"}}
}

func successfulRun() models.RunSummary {
	return models.RunSummary{Success: true, Processed: 4}
}

func TestRunNowRejectsConcurrentRun(t *testing.T) {
	runner := &scriptedRunner{
		results: []models.RunSummary{successfulRun()},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	orch := NewOrchestrator(schedulerConfig(), runner, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := orch.RunNow(context.Background(), TriggerManual)
		assert.NoError(t, err)
	}()

	<-runner.started
	_, err := orch.RunNow(context.Background(), TriggerWebhook)
	assert.ErrorIs(t, err, utils.ErrRunInProgress)
	assert.True(t, orch.Status().Running)

	close(runner.block)
	<-done
	assert.False(t, orch.Status().Running)
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	runner := &scriptedRunner{
		results: []models.RunSummary{failedRun(), failedRun(), failedRun()},
	}
	orch := NewOrchestrator(schedulerConfig(), runner, nil)

	for i := 0; i < 3; i++ {
		summary, err := orch.RunNow(context.Background(), TriggerCron)
		require.NoError(t, err)
		assert.False(t, summary.Success)
	}

	state := orch.Status()
	assert.True(t, state.CircuitOpen)
	assert.Equal(t, 3, state.ConsecutiveFailures)

	_, err := orch.RunNow(context.Background(), TriggerCron)
	assert.ErrorIs(t, err, utils.ErrCircuitOpen)
	_, err = orch.RunNow(context.Background(), TriggerWebhook)
	assert.ErrorIs(t, err, utils.ErrCircuitOpen)
	assert.Equal(t, 3, runner.callCount())
}

func TestManualRunBypassesOpenCircuit(t *testing.T) {
	runner := &scriptedRunner{
		results: []models.RunSummary{failedRun(), failedRun(), failedRun(), successfulRun()},
	}
	orch := NewOrchestrator(schedulerConfig(), runner, nil)

	for i := 0; i < 3; i++ {
		_, err := orch.RunNow(context.Background(), TriggerCron)
		require.NoError(t, err)
	}
	require.True(t, orch.Status().CircuitOpen)

	summary, err := orch.RunNow(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.True(t, summary.Success)

	state := orch.Status()
	assert.False(t, state.CircuitOpen)
	assert.Equal(t, 0, state.ConsecutiveFailures)

	_, err = orch.RunNow(context.Background(), TriggerCron)
	assert.NoError(t, err)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	runner := &scriptedRunner{
		results: []models.RunSummary{failedRun(), failedRun(), successfulRun(), failedRun()},
	}
	orch := NewOrchestrator(schedulerConfig(), runner, nil)

	for i := 0; i < 4; i++ {
		_, err := orch.RunNow(context.Background(), TriggerCron)
		require.NoError(t, err)
	}

	state := orch.Status()
	assert.False(t, state.CircuitOpen)
	assert.Equal(t, 1, state.ConsecutiveFailures)
}

func TestResetCircuitAllowsAutomatedRuns(t *testing.T) {
	runner := &scriptedRunner{
		results: []models.RunSummary{failedRun(), failedRun(), failedRun(), successfulRun()},
	}
	orch := NewOrchestrator(schedulerConfig(), runner, nil)

	for i := 0; i < 3; i++ {
		_, err := orch.RunNow(context.Background(), TriggerCron)
		require.NoError(t, err)
	}
	require.True(t, orch.Status().CircuitOpen)

	orch.ResetCircuit()

	summary, err := orch.RunNow(context.Background(), TriggerCron)
	require.NoError(t, err)
	assert.True(t, summary.Success)
}

func TestStatusTracksTotals(t *testing.T) {
	runner := &scriptedRunner{
		results: []models.RunSummary{successfulRun(), successfulRun()},
	}
	orch := NewOrchestrator(schedulerConfig(), runner, nil)

	_, err := orch.RunNow(context.Background(), TriggerCron)
	require.NoError(t, err)
	_, err = orch.RunNow(context.Background(), TriggerManual)
	require.NoError(t, err)

	state := orch.Status()
	assert.Equal(t, 2, state.TotalRuns)
	assert.Equal(t, 8, state.TotalProcessed)
	assert.NotNil(t, state.LastRun)
	assert.False(t, state.LastSuccess.IsZero())
}
