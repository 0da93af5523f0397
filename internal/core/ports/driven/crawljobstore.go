package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// CrawlJobStore persists crawl jobs and enforces the job state machine.
type CrawlJobStore interface {
	// CreatePending records a new PENDING job. Returns
	// domain.ErrCrawlInProgress if the vendor already has an active job.
	CreatePending(ctx context.Context, job *domain.CrawlJob) error

	// GetJob returns domain.ErrNotFound if the job does not exist.
	GetJob(ctx context.Context, id string) (*domain.CrawlJob, error)

	// ListJobs returns jobs newest first. An empty vendorID lists all vendors.
	ListJobs(ctx context.Context, vendorID string, limit int) ([]domain.CrawlJob, error)

	// ClaimNext moves the oldest PENDING job to IN_PROGRESS and returns it.
	// Returns nil and no error when nothing is pending.
	ClaimNext(ctx context.Context, now time.Time) (*domain.CrawlJob, error)

	// Claim moves a specific PENDING job to IN_PROGRESS.
	// Returns domain.ErrInvalidTransition if the job is not pending.
	Claim(ctx context.Context, jobID string, now time.Time) (*domain.CrawlJob, error)

	// GetStatus returns the current status of a job.
	GetStatus(ctx context.Context, jobID string) (domain.CrawlStatus, error)

	// UpdateStats overwrites the job counters regardless of status.
	UpdateStats(ctx context.Context, jobID string, stats domain.CrawlStats) error

	// Finish moves an IN_PROGRESS job to a terminal status.
	// Returns domain.ErrInvalidTransition if the job is no longer in progress.
	Finish(ctx context.Context, jobID string, status domain.CrawlStatus, stats domain.CrawlStats, errMsg string, now time.Time) error

	// Cancel moves a PENDING or IN_PROGRESS job to CANCELLED.
	// Returns domain.ErrInvalidTransition for terminal jobs.
	Cancel(ctx context.Context, jobID string, now time.Time) (*domain.CrawlJob, error)

	// FailStale marks every IN_PROGRESS job as FAILED with msg and returns
	// how many were changed.
	FailStale(ctx context.Context, msg string, now time.Time) (int, error)
}
