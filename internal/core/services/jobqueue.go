package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driving"
	"github.com/custodia-labs/vendorscope/internal/logger"
	"github.com/custodia-labs/vendorscope/internal/metrics"
)

// Ensure JobQueue implements the interface.
var _ driving.CrawlService = (*JobQueue)(nil)

// staleJobMessage is recorded on jobs left IN_PROGRESS by a dead process.
const staleJobMessage = "interrupted"

// CrawlRunner executes one claimed crawl job.
type CrawlRunner interface {
	Run(ctx context.Context, job *domain.CrawlJob) (domain.CrawlStats, error)
}

// JobQueue persists crawl jobs and runs them on a fixed pool of workers.
// Claims go through the store, so several processes can share one queue.
type JobQueue struct {
	jobs    driven.CrawlJobStore
	vendors driven.VendorStore
	runner  CrawlRunner

	workers int
	poll    time.Duration
	now     func() time.Time
	log     *logrus.Entry

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewJobQueue creates a job queue.
func NewJobQueue(jobs driven.CrawlJobStore, vendors driven.VendorStore, runner CrawlRunner, cfg domain.JobSettings) *JobQueue {
	q := &JobQueue{
		jobs:    jobs,
		vendors: vendors,
		runner:  runner,
		workers: cfg.Workers,
		poll:    cfg.PollInterval,
		now:     time.Now,
		log:     logger.WithField("component", "jobqueue"),
		wake:    make(chan struct{}, 1),
	}
	if q.workers <= 0 {
		q.workers = 1
	}
	if q.poll <= 0 {
		q.poll = 2 * time.Second
	}
	return q
}

// Submit records a PENDING job for a worker to claim.
func (q *JobQueue) Submit(ctx context.Context, vendorID string) (*domain.CrawlJob, error) {
	job, err := q.create(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return job, nil
}

// RunNow submits a job and runs it on the calling goroutine.
func (q *JobQueue) RunNow(ctx context.Context, vendorID string) (*domain.CrawlJob, error) {
	job, err := q.create(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	claimed, err := q.jobs.Claim(ctx, job.ID, q.now().UTC())
	if errors.Is(err, domain.ErrInvalidTransition) {
		// A serve worker claimed it first; follow that run instead.
		return q.await(ctx, job.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return q.execute(ctx, claimed)
}

// await polls a job until it reaches a terminal state.
func (q *JobQueue) await(ctx context.Context, jobID string) (*domain.CrawlJob, error) {
	q.log.WithField("job_id", jobID).Info("job claimed by a worker, waiting")
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		job, err := q.jobs.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case domain.CrawlStatusFailed:
			return job, fmt.Errorf("job %s failed: %s", jobID, job.ErrorMessage)
		case domain.CrawlStatusCompleted, domain.CrawlStatusCancelled:
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cancel marks a pending or running job as cancelled. A running job stops
// at its next checkpoint.
func (q *JobQueue) Cancel(ctx context.Context, jobID string) (*domain.CrawlJob, error) {
	job, err := q.jobs.Cancel(ctx, jobID, q.now().UTC())
	if err != nil {
		return nil, err
	}
	q.log.WithField("job_id", jobID).Info("job cancelled")
	return job, nil
}

// Get retrieves a job by ID.
func (q *JobQueue) Get(ctx context.Context, jobID string) (*domain.CrawlJob, error) {
	return q.jobs.GetJob(ctx, jobID)
}

// List returns recent jobs, optionally for one vendor.
func (q *JobQueue) List(ctx context.Context, vendorID string, limit int) ([]domain.CrawlJob, error) {
	return q.jobs.ListJobs(ctx, vendorID, limit)
}

// Start fails jobs orphaned by a previous process and launches the
// workers. It returns immediately; Wait blocks until they exit after ctx
// is cancelled.
func (q *JobQueue) Start(ctx context.Context) error {
	n, err := q.jobs.FailStale(ctx, staleJobMessage, q.now().UTC())
	if err != nil {
		return fmt.Errorf("fail stale jobs: %w", err)
	}
	if n > 0 {
		q.log.Warnf("marked %d interrupted jobs as failed", n)
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.work(ctx, id)
		}(i)
	}
	return nil
}

// Wait blocks until all workers have exited.
func (q *JobQueue) Wait() {
	q.wg.Wait()
}

func (q *JobQueue) work(ctx context.Context, id int) {
	log := q.log.WithField("worker", id)
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		// Drain the queue before sleeping again.
		for {
			if ctx.Err() != nil {
				return
			}
			job, err := q.jobs.ClaimNext(ctx, q.now().UTC())
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Error("claim next job")
				}
				break
			}
			if job == nil {
				break
			}
			if _, err := q.execute(ctx, job); err != nil {
				log.WithField("job_id", job.ID).WithError(err).Warn("job did not complete")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

// execute runs a claimed job and records its terminal state. A job
// cancelled while running keeps CANCELLED; only its counts are saved.
func (q *JobQueue) execute(ctx context.Context, job *domain.CrawlJob) (*domain.CrawlJob, error) {
	stats, runErr := q.runner.Run(ctx, job)

	// Record the outcome even when ctx is what stopped the run.
	writeCtx := context.WithoutCancel(ctx)
	now := q.now().UTC()

	status := domain.CrawlStatusCompleted
	msg := ""
	if runErr != nil {
		status = domain.CrawlStatusFailed
		msg = runErr.Error()
	}

	err := q.jobs.Finish(writeCtx, job.ID, status, stats, msg, now)
	if errors.Is(err, domain.ErrInvalidTransition) {
		current, statusErr := q.jobs.GetStatus(writeCtx, job.ID)
		if statusErr == nil && current == domain.CrawlStatusCancelled {
			status = domain.CrawlStatusCancelled
			err = q.jobs.UpdateStats(writeCtx, job.ID, stats)
			runErr = domain.ErrCrawlCancelled
		}
	}
	if err != nil {
		return nil, fmt.Errorf("finish job %s: %w", job.ID, err)
	}
	metrics.CrawlJobs.WithLabelValues(string(status)).Inc()

	finished, err := q.jobs.GetJob(writeCtx, job.ID)
	if err != nil {
		return nil, err
	}
	if errors.Is(runErr, domain.ErrCrawlCancelled) {
		return finished, nil
	}
	return finished, runErr
}

func (q *JobQueue) create(ctx context.Context, vendorID string) (*domain.CrawlJob, error) {
	vendor, err := q.vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	job := &domain.CrawlJob{
		ID:        uuid.New().String(),
		VendorID:  vendor.ID,
		JobType:   domain.JobTypeFullCrawl,
		CreatedAt: q.now().UTC(),
	}
	if err := q.jobs.CreatePending(ctx, job); err != nil {
		return nil, err
	}
	q.log.WithFields(logrus.Fields{"job_id": job.ID, "vendor": vendor.Domain}).Info("job submitted")
	return job, nil
}
