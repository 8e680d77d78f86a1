package scheduler

import (
	"context"
	"sync"
	"time"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// Trigger identifies what started a scraping run.
type Trigger string

const (
	TriggerCron        Trigger = "cron"
	TriggerManual      Trigger = "manual"
	TriggerWebhook     Trigger = "webhook"
	TriggerMaintenance Trigger = "maintenance"
	TriggerContinuous  Trigger = "continuous"
)

// Health classifies how the scraping system is doing overall.
const (
	HealthHealthy  = "HEALTHY"
	HealthWarning  = "WARNING"
	HealthCritical = "CRITICAL"
)

// Runner is the pipeline seam the orchestrator drives.
type Runner interface {
	RunAll(ctx context.Context, runID string) models.RunSummary
}

// JobCounter reports how many jobs were persisted since an instant. Narrower
// than the full store so scheduler tests stay small.
type JobCounter interface {
	CountJobsSince(ctx context.Context, since time.Time) (int, error)
}

// RunState is a point-in-time snapshot of the orchestrator, safe to hand to
// API handlers.
type RunState struct {
	Running             bool               `json:"running"`
	RunID               string             `json:"run_id,omitempty"`
	Trigger             Trigger            `json:"trigger,omitempty"`
	StartedAt           time.Time          `json:"started_at,omitempty"`
	LastRun             *models.RunSummary `json:"last_run,omitempty"`
	LastSuccess         time.Time          `json:"last_success,omitempty"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	CircuitOpen         bool               `json:"circuit_open"`
	TotalRuns           int                `json:"total_runs"`
	TotalProcessed      int                `json:"total_processed"`
	JobsToday           int                `json:"jobs_today"`
	Health              string             `json:"health"`
}

// Orchestrator serializes scraping runs behind a single run lock and
// suspends automated runs after too many consecutive failures.
type Orchestrator struct {
	cfg     *config.Config
	runner  Runner
	counter JobCounter
	logger  types.Logger

	mu                  sync.Mutex
	running             bool
	runID               string
	trigger             Trigger
	startedAt           time.Time
	lastRun             *models.RunSummary
	lastSuccess         time.Time
	consecutiveFailures int
	circuitOpen         bool
	totalRuns           int
	totalProcessed      int
	lastAlert           time.Time
}

// NewOrchestrator creates the orchestrator. counter may be nil; health then
// classifies on failures alone.
func NewOrchestrator(cfg *config.Config, runner Runner, counter JobCounter) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		runner:  runner,
		counter: counter,
		logger:  logging.GetGlobalLogger(),
	}
}

// RunNow executes a full scraping run if none is in progress. Automated
// triggers are refused while the circuit is open; manual triggers always go
// through, and a successful run closes the circuit again.
func (o *Orchestrator) RunNow(ctx context.Context, trigger Trigger) (*models.RunSummary, error) {
	runID, err := o.begin(trigger)
	if err != nil {
		return nil, err
	}

	summary := o.runner.RunAll(ctx, runID)
	o.finish(runID, summary)
	return &summary, nil
}

// StartRun begins a run in the background and returns its ID immediately.
// Used by the HTTP trigger and webhook handlers.
func (o *Orchestrator) StartRun(trigger Trigger) (string, error) {
	runID, err := o.begin(trigger)
	if err != nil {
		return "", err
	}

	go func() {
		summary := o.runner.RunAll(context.Background(), runID)
		o.finish(runID, summary)
	}()
	return runID, nil
}

// begin acquires the run lock and records the run as started.
func (o *Orchestrator) begin(trigger Trigger) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return "", utils.ErrRunInProgress
	}
	if o.circuitOpen && trigger != TriggerManual {
		o.maybeAlertLocked()
		return "", utils.ErrCircuitOpen
	}

	runID := utils.GenerateRunID()
	o.running = true
	o.runID = runID
	o.trigger = trigger
	o.startedAt = time.Now()

	o.logger.Info("Scraping run starting", map[string]interface{}{
		"run_id":  runID,
		"trigger": string(trigger),
	})
	return runID, nil
}

// finish releases the run lock and folds the summary into the breaker state.
func (o *Orchestrator) finish(runID string, summary models.RunSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.running = false
	o.runID = ""
	o.lastRun = &summary
	o.totalRuns++
	o.totalProcessed += summary.Processed

	if summary.Success {
		o.lastSuccess = summary.FinishedAt
		o.consecutiveFailures = 0
		if o.circuitOpen {
			o.circuitOpen = false
			o.logger.Info("Circuit closed after successful run", map[string]interface{}{
				"run_id": runID,
			})
		}
	} else {
		o.consecutiveFailures++
		if !o.circuitOpen && o.consecutiveFailures >= o.cfg.Scheduler.FailureThreshold {
			o.circuitOpen = true
			o.logger.Error("Automated scraping suspended", map[string]interface{}{
				"health":               HealthCritical,
				"consecutive_failures": o.consecutiveFailures,
				"threshold":            o.cfg.Scheduler.FailureThreshold,
			})
			o.lastAlert = time.Now()
		} else if time.Since(o.lastAlert) >= o.cfg.Scheduler.AlertInterval {
			o.lastAlert = time.Now()
			o.logger.Warn("Scraping run failed", map[string]interface{}{
				"health":               HealthWarning,
				"run_id":               runID,
				"consecutive_failures": o.consecutiveFailures,
			})
		}
	}
}

// Status returns an explicit snapshot of the run state, including today's
// persisted job count and a health classification.
func (o *Orchestrator) Status() RunState {
	jobsToday := o.todayCount()

	o.mu.Lock()
	defer o.mu.Unlock()

	return RunState{
		Running:             o.running,
		RunID:               o.runID,
		Trigger:             o.trigger,
		StartedAt:           o.startedAt,
		LastRun:             o.lastRun,
		LastSuccess:         o.lastSuccess,
		ConsecutiveFailures: o.consecutiveFailures,
		CircuitOpen:         o.circuitOpen,
		TotalRuns:           o.totalRuns,
		TotalProcessed:      o.totalProcessed,
		JobsToday:           jobsToday,
		Health:              o.healthLocked(jobsToday),
	}
}

// todayCount asks the store how many jobs landed since midnight. Returns -1
// when no counter is wired or the store is unreachable.
func (o *Orchestrator) todayCount() int {
	if o.counter == nil {
		return -1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := o.counter.CountJobsSince(ctx, utils.StartOfDay(time.Now()))
	if err != nil {
		return -1
	}
	return n
}

// healthLocked classifies overall scraping health. Callers hold o.mu.
func (o *Orchestrator) healthLocked(jobsToday int) string {
	if o.circuitOpen {
		return HealthCritical
	}
	if o.consecutiveFailures > 0 {
		return HealthWarning
	}
	if target := o.cfg.Scheduler.DailyTarget; target > 0 && jobsToday >= 0 && jobsToday < target/2 {
		return HealthWarning
	}
	return HealthHealthy
}

// ResetCircuit clears the failure streak and closes the circuit. Used by
// the maintenance job and operators.
func (o *Orchestrator) ResetCircuit() {
	o.mu.Lock()
	defer o.mu.Unlock()

	wasOpen := o.circuitOpen
	o.circuitOpen = false
	o.consecutiveFailures = 0

	if wasOpen {
		o.logger.Info("Circuit reset", map[string]interface{}{})
	}
}

// maybeAlertLocked emits a throttled alert while the circuit stays open.
// Callers hold o.mu.
func (o *Orchestrator) maybeAlertLocked() {
	if time.Since(o.lastAlert) < o.cfg.Scheduler.AlertInterval {
		return
	}
	o.lastAlert = time.Now()
	o.logger.Error("Automated scraping still suspended", map[string]interface{}{
		"health":               HealthCritical,
		"consecutive_failures": o.consecutiveFailures,
	})
}
