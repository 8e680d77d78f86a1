package pipeline

import (
	"context"
	"fmt"
	"time"

	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/internal/store"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// Persister writes normalized jobs into the store with dedup and
// deadline-driven status.
type Persister struct {
	store    store.Store
	employer string
	logger   types.Logger
}

// NewPersister creates a persister. Call EnsureEmployer before the first
// Persist.
func NewPersister(s store.Store) *Persister {
	return &Persister{
		store:  s,
		logger: logging.GetGlobalLogger(),
	}
}

// EnsureEmployer resolves the system account that owns scraped postings.
func (p *Persister) EnsureEmployer(ctx context.Context) error {
	id, err := p.store.EnsureSystemAccount(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve system employer: %w", err)
	}
	p.employer = id
	return nil
}

// Persist stores the job under (source, external job ID). The first write
// wins; a posting whose deadline already passed is stored as expired so it
// never surfaces as an open role.
func (p *Persister) Persist(ctx context.Context, job *models.Job, source string, now time.Time) error {
	if job.ExternalJobID == "" {
		return fmt.Errorf("job from %s has no external job ID", source)
	}

	existing, err := p.store.FindJob(ctx, source, job.ExternalJobID)
	if err != nil {
		return err
	}
	if existing != nil {
		return utils.ErrDuplicateJob
	}

	status := models.JobStatusActive
	if job.ApplicationDeadline != nil && job.ApplicationDeadline.Before(now) {
		status = models.JobStatusExpired
	}

	persisted := &models.PersistedJob{
		Job:       *job,
		Source:    source,
		Status:    status,
		Employer:  p.employer,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.store.InsertJob(ctx, persisted); err != nil {
		return err
	}

	p.logger.Info("Persisted job", map[string]interface{}{
		"source":          source,
		"external_job_id": job.ExternalJobID,
		"title":           job.Title,
		"status":          string(status),
	})
	return nil
}

// SweepExpired removes postings whose deadline has passed.
func (p *Persister) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return p.store.DeleteExpiredJobs(ctx, now)
}
