package driving

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// CrawlService submits and tracks crawl jobs.
type CrawlService interface {
	// Submit records a PENDING job for a worker to claim.
	// Returns domain.ErrCrawlInProgress if the vendor already has an active job.
	Submit(ctx context.Context, vendorID string) (*domain.CrawlJob, error)

	// RunNow submits a job and runs it on the calling goroutine.
	RunNow(ctx context.Context, vendorID string) (*domain.CrawlJob, error)

	// Cancel marks a pending or running job as cancelled.
	Cancel(ctx context.Context, jobID string) (*domain.CrawlJob, error)

	// Get retrieves a job by ID.
	Get(ctx context.Context, jobID string) (*domain.CrawlJob, error)

	// List returns recent jobs, optionally for one vendor.
	List(ctx context.Context, vendorID string, limit int) ([]domain.CrawlJob, error)
}
