package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/pkg/utils"
)

// Service runs the orchestrator on a cron schedule, with a daily maintenance
// job that resets the circuit breaker, reports aggregate run statistics and
// restarts scraping when the system looks stuck.
type Service struct {
	cfg       *config.Config
	orch      *Orchestrator
	cron      *cron.Cron
	logger    types.Logger
	startedAt time.Time

	mu          sync.Mutex
	scrapeEntry cron.EntryID
	scrapeSpec  string
}

// NewService builds the cron service. The schedule runs in the configured
// timezone.
func NewService(cfg *config.Config, orch *Orchestrator) (*Service, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	s := &Service{
		cfg:       cfg,
		orch:      orch,
		cron:      cron.New(cron.WithLocation(loc)),
		logger:    logging.GetGlobalLogger(),
		startedAt: time.Now(),
	}

	entry, err := s.cron.AddFunc(cfg.Scheduler.CronSpec, s.runScheduled)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.Scheduler.CronSpec, err)
	}
	s.scrapeEntry = entry
	s.scrapeSpec = cfg.Scheduler.CronSpec
	if cfg.Scheduler.MaintenanceSpec != "" {
		if _, err := s.cron.AddFunc(cfg.Scheduler.MaintenanceSpec, s.runMaintenance); err != nil {
			return nil, fmt.Errorf("invalid maintenance spec %q: %w", cfg.Scheduler.MaintenanceSpec, err)
		}
	}

	return s, nil
}

// Start begins the cron loop. No-op when the scheduler is disabled.
func (s *Service) Start() {
	if !s.cfg.Scheduler.Enabled {
		s.logger.Info("Scheduler disabled", map[string]interface{}{})
		return
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", map[string]interface{}{
		"cron_spec": s.cfg.Scheduler.CronSpec,
		"timezone":  s.cfg.Scheduler.Timezone,
	})
}

// Stop halts the cron loop and waits for any running job to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped", map[string]interface{}{})
}

// UpdateSchedule swaps the scraping cron spec at runtime. The maintenance
// entry is untouched.
func (s *Service) UpdateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Remove(s.scrapeEntry)
	entry, err := s.cron.AddFunc(spec, s.runScheduled)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.scrapeEntry = entry
	s.scrapeSpec = spec

	s.logger.Info("Scrape schedule updated", map[string]interface{}{
		"cron_spec": spec,
	})
	return nil
}

// Schedule returns the active scraping cron spec.
func (s *Service) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrapeSpec
}

func (s *Service) runScheduled() {
	summary, err := s.orch.RunNow(context.Background(), TriggerCron)
	if err != nil {
		s.logger.Warn("Scheduled run skipped", map[string]interface{}{
			"reason": err.Error(),
		})
		return
	}
	if !summary.Success {
		s.logger.Error("Scheduled run completed with errors", map[string]interface{}{
			"run_id": summary.RunID,
			"errors": len(summary.Errors),
		})
	}
}

// runMaintenance runs daily: it resets the failure streak, reports aggregate
// statistics and decides whether scraping needs a restart. A restart happens
// when the circuit had been open, or when the process has been up for over a
// day yet today's job count sits below half the daily target.
func (s *Service) runMaintenance() {
	state := s.orch.Status()
	s.orch.ResetCircuit()

	uptime := time.Since(s.startedAt)
	s.logger.Info("Maintenance completed", map[string]interface{}{
		"uptime":               utils.FormatDuration(uptime),
		"total_runs":           state.TotalRuns,
		"total_processed":      state.TotalProcessed,
		"consecutive_failures": state.ConsecutiveFailures,
		"circuit_was_open":     state.CircuitOpen,
		"jobs_today":           state.JobsToday,
		"health":               state.Health,
	})

	if s.needsRestart(state, uptime) {
		time.AfterFunc(s.cfg.Scheduler.RestartDelay, func() {
			if _, err := s.orch.RunNow(context.Background(), TriggerMaintenance); err != nil {
				s.logger.Warn("Post-maintenance run skipped", map[string]interface{}{
					"reason": err.Error(),
				})
			}
		})
	}
}

func (s *Service) needsRestart(state RunState, uptime time.Duration) bool {
	if state.CircuitOpen {
		return true
	}
	target := s.cfg.Scheduler.DailyTarget
	return uptime > 24*time.Hour && target > 0 &&
		state.JobsToday >= 0 && state.JobsToday < target/2
}

// ContinuousScraper tops the day up between scheduled runs. On its own
// cadence it compares today's persisted job count to the daily target and
// starts a run when the board is behind.
type ContinuousScraper struct {
	cfg     *config.Config
	orch    *Orchestrator
	counter JobCounter
	cron    *cron.Cron
	logger  types.Logger
}

// NewContinuousScraper builds the top-up checker on its own cron loop.
func NewContinuousScraper(cfg *config.Config, orch *Orchestrator, counter JobCounter) (*ContinuousScraper, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	c := &ContinuousScraper{
		cfg:     cfg,
		orch:    orch,
		counter: counter,
		cron:    cron.New(cron.WithLocation(loc)),
		logger:  logging.GetGlobalLogger(),
	}

	if _, err := c.cron.AddFunc(cfg.Scheduler.ContinuousSpec, c.runCheck); err != nil {
		return nil, fmt.Errorf("invalid continuous spec %q: %w", cfg.Scheduler.ContinuousSpec, err)
	}
	return c, nil
}

// Start begins the check loop. No-op when the scheduler is disabled or no
// daily target is set.
func (c *ContinuousScraper) Start() {
	if !c.cfg.Scheduler.Enabled || c.cfg.Scheduler.DailyTarget <= 0 {
		return
	}
	c.cron.Start()
	c.logger.Info("Continuous scraper started", map[string]interface{}{
		"continuous_spec": c.cfg.Scheduler.ContinuousSpec,
		"daily_target":    c.cfg.Scheduler.DailyTarget,
	})
}

// Stop halts the check loop and waits for a running check to finish.
func (c *ContinuousScraper) Stop() {
	<-c.cron.Stop().Done()
}

func (c *ContinuousScraper) runCheck() {
	if _, err := c.CheckTarget(context.Background()); err != nil {
		c.logger.Warn("Continuous check failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// CheckTarget compares today's job count to the daily target and runs the
// pipeline when the count falls short. Returns whether a run happened.
func (c *ContinuousScraper) CheckTarget(ctx context.Context) (bool, error) {
	target := c.cfg.Scheduler.DailyTarget
	if target <= 0 {
		return false, nil
	}

	count, err := c.counter.CountJobsSince(ctx, utils.StartOfDay(time.Now()))
	if err != nil {
		return false, fmt.Errorf("job count lookup failed: %w", err)
	}
	if count >= target {
		c.logger.Debug("Daily target met", map[string]interface{}{
			"jobs_today": count,
			"target":     target,
		})
		return false, nil
	}

	c.logger.Info("Daily target not met, starting top-up run", map[string]interface{}{
		"jobs_today": count,
		"target":     target,
	})
	if _, err := c.orch.RunNow(ctx, TriggerContinuous); err != nil {
		// Another run already holds the lock, or the circuit is open; the
		// next check will try again.
		c.logger.Warn("Top-up run skipped", map[string]interface{}{
			"reason": err.Error(),
		})
		return false, nil
	}
	return true, nil
}
