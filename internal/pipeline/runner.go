package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobharvest/internal/config"
	"jobharvest/internal/llm/providers"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/internal/scraper/extract"
	"jobharvest/internal/sources"
	"jobharvest/internal/store"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// Normalizer is the LLM seam used by the runner.
type Normalizer interface {
	Normalize(ctx context.Context, raw *models.RawExtraction) (*models.Job, error)
}

// Runner drives the scrape pipeline for sources: collect listing URLs, fetch
// each posting, extract, validate, normalize and persist, under the
// per-source daily quota.
type Runner struct {
	cfg        *config.Config
	registry   *sources.Registry
	fetcher    extract.Fetcher
	normalizer Normalizer
	persister  *Persister
	store      store.Store
	logger     types.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewRunner wires the pipeline together.
func NewRunner(cfg *config.Config, registry *sources.Registry, f extract.Fetcher, n Normalizer, s store.Store) *Runner {
	return &Runner{
		cfg:        cfg,
		registry:   registry,
		fetcher:    f,
		normalizer: n,
		persister:  NewPersister(s),
		store:      s,
		logger:     logging.GetGlobalLogger(),
		now:        time.Now,
	}
}

// RunAll executes the pipeline for every registered source in priority
// order and returns the aggregated summary. The expired sweep runs first so
// stale postings disappear even when every source fails.
func (r *Runner) RunAll(ctx context.Context, runID string) models.RunSummary {
	startedAt := r.now()
	summary := models.RunSummary{
		RunID:     runID,
		Errors:    []string{},
		PerSource: make(map[string]int),
		StartedAt: startedAt,
	}

	logger := r.logger.WithField("run_id", runID)

	if r.cfg.Pipeline.SweepExpired {
		if removed, err := r.persister.SweepExpired(ctx, startedAt); err != nil {
			logger.Warn("Expired sweep failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if removed > 0 {
			logger.Info("Expired sweep completed", map[string]interface{}{
				"removed": removed,
			})
		}
	}

	if err := r.persister.EnsureEmployer(ctx); err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		summary.FinishedAt = r.now()
		return summary
	}

	srcs := r.registry.All()

	// Per-source quota left for today, computed once against the store.
	remaining := make(map[string]int, len(srcs))
	for _, src := range srcs {
		n, err := r.remainingQuota(ctx, src, startedAt)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		if n <= 0 {
			logger.Debug("Skipping source", map[string]interface{}{
				"source": src.Name,
				"reason": utils.ErrQuotaReached.Error(),
			})
			continue
		}
		remaining[src.Name] = n
	}

	phases := r.cfg.Pipeline.RunPhases
	if phases < 1 {
		phases = 1
	}

	// Each phase gives every source a slice of its quota; whatever a source
	// could not fill rolls into its next slice. Listings refresh between
	// phases, so a slow-publishing board gets a second look instead of one
	// source eating the whole run up front.
	carry := make(map[string]int, len(srcs))
phaseLoop:
	for phase := 0; phase < phases; phase++ {
		for _, src := range srcs {
			if ctx.Err() != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("run aborted: %v", ctx.Err()))
				break phaseLoop
			}

			total, ok := remaining[src.Name]
			if !ok {
				continue
			}
			budget := phaseShare(total, phases, phase) + carry[src.Name]
			if budget <= 0 {
				continue
			}

			result := r.RunSource(ctx, src, budget)
			summary.PerSource[src.Name] += result.Processed
			summary.Processed += result.Processed
			summary.Errors = append(summary.Errors, result.Errors...)
			carry[src.Name] = budget - result.Processed

			if result.Processed == 0 && len(result.Errors) > 0 {
				// The source is unreachable; later phases would only repeat
				// the failure.
				delete(remaining, src.Name)
			}
		}
	}

	summary.Success = len(summary.Errors) == 0
	summary.FinishedAt = r.now()

	logger.Info("Scraping run finished", map[string]interface{}{
		"processed": summary.Processed,
		"errors":    len(summary.Errors),
		"duration":  utils.FormatDuration(summary.FinishedAt.Sub(startedAt)),
	})
	return summary
}

// phaseShare splits a source's remaining quota across phases; the last phase
// absorbs the remainder.
func phaseShare(total, phases, phase int) int {
	base := total / phases
	if phase == phases-1 {
		return base + total%phases
	}
	return base
}

// RunSource runs the pipeline for one source until the budget of persisted
// jobs is reached. Skips (duplicates, invalid pages, stale postings) are not
// errors; only failures that lost a real posting are reported.
func (r *Runner) RunSource(ctx context.Context, src *sources.Config, budget int) models.SourceResult {
	result := models.SourceResult{Source: src.Name, Errors: []string{}}
	logger := r.logger.WithField("source", src.Name)
	now := r.now()

	if budget <= 0 {
		return result
	}

	urls, err := extract.CollectJobURLs(ctx, r.fetcher, src)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: listing fetch failed: %v", src.Name, err))
		return result
	}

	// Sources with a high invalid rate may fetch past the budget; persisted
	// jobs still stop at the budget.
	fetchBudget := budget
	if src.ExtraFetchQuota > fetchBudget {
		fetchBudget = src.ExtraFetchQuota
	}

	fetched := 0
	for _, jobURL := range urls {
		if result.Processed >= budget || fetched >= fetchBudget {
			break
		}
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: aborted: %v", src.Name, ctx.Err()))
			break
		}

		fetched++
		if err := r.processJob(ctx, jobURL, src, now); err != nil {
			switch {
			case errors.Is(err, utils.ErrDuplicateJob):
				logger.Debug("Skipping duplicate job", map[string]interface{}{"url": jobURL})
			case errors.Is(err, utils.ErrNotJobContent):
				logger.Debug("Skipping non-job page", map[string]interface{}{"url": jobURL})
			case errors.Is(err, errStalePosting):
				logger.Debug("Skipping stale posting", map[string]interface{}{"url": jobURL})
			default:
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s: %v", src.Name, jobURL, err))
				r.pause(ctx, r.cfg.Scraper.ErrorDelay)
				continue
			}
			continue
		}

		result.Processed++
		r.pause(ctx, r.cfg.Scraper.SuccessDelay)
	}

	logger.Info("Source completed", map[string]interface{}{
		"processed": result.Processed,
		"fetched":   fetched,
		"errors":    len(result.Errors),
	})
	return result
}

var errStalePosting = errors.New("posting older than recency window")

// processJob runs one URL through dedup, fetch, extract, validate, normalize
// and persist. Known jobs are recognized from the URL alone, before any page
// fetch or model call is spent on them.
func (r *Runner) processJob(ctx context.Context, jobURL string, src *sources.Config, now time.Time) error {
	externalID := extract.ExtractJobID(jobURL, src)
	existing, err := r.store.FindJob(ctx, src.Name, externalID)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}
	if existing != nil {
		return utils.ErrDuplicateJob
	}

	html, err := r.fetcher.Fetch(ctx, jobURL, src)
	if err != nil {
		return err
	}

	raw := extract.ExtractFields(html, jobURL, src, now)

	if src.RecencyWindow > 0 && raw.PostedDate != nil &&
		raw.PostedDate.Before(now.Add(-src.RecencyWindow)) {
		return errStalePosting
	}

	if err := ValidateJobContent(raw); err != nil {
		return err
	}

	job, err := r.normalizer.Normalize(ctx, raw)
	if err != nil {
		// A model outage must not lose the posting. Persist the selector
		// extraction with defaulted fields instead.
		r.logger.Warn("Normalization failed, persisting raw extraction", map[string]interface{}{
			"source": src.Name,
			"url":    jobURL,
			"error":  err.Error(),
		})
		job = providers.FallbackJob(raw, now)
	}

	job.ExternalJobID = externalID

	return r.persister.Persist(ctx, job, src.Name, now)
}

// remainingQuota computes how many more jobs this source may persist today.
func (r *Runner) remainingQuota(ctx context.Context, src *sources.Config, now time.Time) (int, error) {
	quota := r.cfg.Pipeline.DailyQuotaPerSource
	if quota <= 0 {
		return 0, nil
	}

	existing, err := r.store.CountSourceJobsSince(ctx, src.Name, utils.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("%s: quota check failed: %w", src.Name, err)
	}
	return quota - existing, nil
}

func (r *Runner) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
