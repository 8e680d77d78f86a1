package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/config"
	"jobharvest/pkg/models"
)

type stubCounter struct {
	count int
	err   error
}

func (c *stubCounter) CountJobsSince(context.Context, time.Time) (int, error) {
	return c.count, c.err
}

func continuousConfig() *config.Config {
	cfg := schedulerConfig()
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.Timezone = "UTC"
	cfg.Scheduler.CronSpec = "0 6 * * *"
	cfg.Scheduler.ContinuousSpec = "0 */4 * * *"
	cfg.Scheduler.DailyTarget = 20
	return cfg
}

func TestCheckTargetRunsWhenBehind(t *testing.T) {
	runner := &scriptedRunner{results: []models.RunSummary{successfulRun()}}
	cfg := continuousConfig()
	orch := NewOrchestrator(cfg, runner, &stubCounter{count: 5})

	cs, err := NewContinuousScraper(cfg, orch, &stubCounter{count: 5})
	require.NoError(t, err)

	ran, err := cs.CheckTarget(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, runner.callCount())
}

func TestCheckTargetSkipsWhenTargetMet(t *testing.T) {
	runner := &scriptedRunner{}
	cfg := continuousConfig()
	orch := NewOrchestrator(cfg, runner, nil)

	cs, err := NewContinuousScraper(cfg, orch, &stubCounter{count: 20})
	require.NoError(t, err)

	ran, err := cs.CheckTarget(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 0, runner.callCount())
}

func TestCheckTargetReportsCountFailure(t *testing.T) {
	runner := &scriptedRunner{}
	cfg := continuousConfig()
	orch := NewOrchestrator(cfg, runner, nil)

	cs, err := NewContinuousScraper(cfg, orch, &stubCounter{err: fmt.Errorf("store down")})
	require.NoError(t, err)

	ran, err := cs.CheckTarget(context.Background())
	assert.Error(t, err)
	assert.False(t, ran)
	assert.Equal(t, 0, runner.callCount())
}

func TestCheckTargetYieldsToRunningScrape(t *testing.T) {
	runner := &scriptedRunner{
		results: []models.RunSummary{successfulRun()},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	cfg := continuousConfig()
	orch := NewOrchestrator(cfg, runner, nil)

	cs, err := NewContinuousScraper(cfg, orch, &stubCounter{count: 5})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, rerr := orch.RunNow(context.Background(), TriggerManual)
		assert.NoError(t, rerr)
	}()
	<-runner.started

	ran, err := cs.CheckTarget(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	close(runner.block)
	<-done
	assert.Equal(t, 1, runner.callCount())
}

func TestStatusHealthClassification(t *testing.T) {
	cfg := continuousConfig()

	t.Run("healthy when target on track", func(t *testing.T) {
		orch := NewOrchestrator(cfg, &scriptedRunner{}, &stubCounter{count: 15})
		state := orch.Status()
		assert.Equal(t, HealthHealthy, state.Health)
		assert.Equal(t, 15, state.JobsToday)
	})

	t.Run("warning when count lags the target", func(t *testing.T) {
		orch := NewOrchestrator(cfg, &scriptedRunner{}, &stubCounter{count: 3})
		assert.Equal(t, HealthWarning, orch.Status().Health)
	})

	t.Run("warning on a failure streak", func(t *testing.T) {
		runner := &scriptedRunner{results: []models.RunSummary{failedRun()}}
		orch := NewOrchestrator(cfg, runner, &stubCounter{count: 15})
		_, err := orch.RunNow(context.Background(), TriggerCron)
		require.NoError(t, err)
		assert.Equal(t, HealthWarning, orch.Status().Health)
	})

	t.Run("critical when the circuit opens", func(t *testing.T) {
		runner := &scriptedRunner{results: []models.RunSummary{failedRun(), failedRun(), failedRun()}}
		orch := NewOrchestrator(cfg, runner, &stubCounter{count: 15})
		for i := 0; i < 3; i++ {
			_, err := orch.RunNow(context.Background(), TriggerCron)
			require.NoError(t, err)
		}
		assert.Equal(t, HealthCritical, orch.Status().Health)
	})

	t.Run("unreachable store does not mask failures", func(t *testing.T) {
		orch := NewOrchestrator(cfg, &scriptedRunner{}, &stubCounter{err: fmt.Errorf("store down")})
		state := orch.Status()
		assert.Equal(t, -1, state.JobsToday)
		assert.Equal(t, HealthHealthy, state.Health)
	})
}

func TestMaintenanceRestartCondition(t *testing.T) {
	cfg := continuousConfig()
	orch := NewOrchestrator(cfg, &scriptedRunner{}, nil)
	svc, err := NewService(cfg, orch)
	require.NoError(t, err)

	assert.True(t, svc.needsRestart(RunState{CircuitOpen: true}, time.Hour))
	assert.True(t, svc.needsRestart(RunState{JobsToday: 4}, 30*time.Hour))
	assert.False(t, svc.needsRestart(RunState{JobsToday: 4}, time.Hour))
	assert.False(t, svc.needsRestart(RunState{JobsToday: 15}, 30*time.Hour))
	assert.False(t, svc.needsRestart(RunState{JobsToday: -1}, 30*time.Hour))
}
