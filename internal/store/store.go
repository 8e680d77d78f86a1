package store

import (
	"context"
	"time"

	"jobharvest/pkg/models"
)

// Store is the persistence seam for scraped jobs. Implementations must treat
// (source, external job ID) as the dedup key.
type Store interface {
	// InsertJob persists a new job. Returns utils.ErrDuplicateJob when the
	// (source, external job ID) pair already exists.
	InsertJob(ctx context.Context, job *models.PersistedJob) error

	// FindJob returns the stored job or (nil, nil) when absent.
	FindJob(ctx context.Context, source, externalJobID string) (*models.PersistedJob, error)

	// CountSourceJobsSince counts jobs persisted for one source since the
	// given instant.
	CountSourceJobsSince(ctx context.Context, source string, since time.Time) (int, error)

	// CountJobsSince counts jobs persisted across all sources since the
	// given instant.
	CountJobsSince(ctx context.Context, since time.Time) (int, error)

	// DeleteExpiredJobs removes jobs whose application deadline has passed.
	DeleteExpiredJobs(ctx context.Context, now time.Time) (int64, error)

	// UpdateJobStatus sets the lifecycle status of a stored job.
	UpdateJobStatus(ctx context.Context, source, externalJobID string, status models.JobStatus) error

	// EnsureSystemAccount guarantees the system employer account that owns
	// scraped postings exists, returning its identifier.
	EnsureSystemAccount(ctx context.Context) (string, error)

	// Close releases the underlying connections.
	Close(ctx context.Context) error
}
