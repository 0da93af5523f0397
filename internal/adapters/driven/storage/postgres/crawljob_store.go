package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

type crawlJobStore struct {
	db *sql.DB
}

var _ driven.CrawlJobStore = (*crawlJobStore)(nil)

const jobColumns = `id, vendor_id, status, job_type, pages_discovered, pages_crawled,
	pages_failed, pages_skipped, documents_created, documents_updated, documents_unchanged,
	error_message, started_at, completed_at, created_at`

// activeJobIndex enforces one pending or running job per vendor.
const activeJobIndex = "idx_crawl_jobs_active"

// CreatePending records a new PENDING job unless the vendor already has an
// active one. The partial unique index settles races between processes.
func (s *crawlJobStore) CreatePending(ctx context.Context, job *domain.CrawlJob) error {
	if job == nil || job.ID == "" || job.VendorID == "" {
		return domain.ErrInvalidInput
	}
	job.Status = domain.CrawlStatusPending
	if job.JobType == "" {
		job.JobType = domain.JobTypeFullCrawl
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_jobs (id, vendor_id, status, job_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, job.ID, job.VendorID, string(job.Status), job.JobType, job.CreatedAt.UTC())
	if isUniqueViolation(err, activeJobIndex) {
		return domain.ErrCrawlInProgress
	}
	return storeErr("create job", err)
}

// GetJob retrieves a job by ID.
func (s *crawlJobStore) GetJob(ctx context.Context, id string) (*domain.CrawlJob, error) {
	return scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM crawl_jobs WHERE id = $1`, id))
}

// ListJobs returns jobs newest first. A limit of zero or less returns all.
func (s *crawlJobStore) ListJobs(ctx context.Context, vendorID string, limit int) ([]domain.CrawlJob, error) {
	query := `SELECT ` + jobColumns + ` FROM crawl_jobs`
	var args []any
	if vendorID != "" {
		args = append(args, vendorID)
		query += " WHERE vendor_id = $1"
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list jobs", err)
	}
	defer rows.Close()

	var jobs []domain.CrawlJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list jobs", err)
	}
	return jobs, nil
}

// ClaimNext moves the oldest PENDING job to IN_PROGRESS. Rows locked by
// another worker are skipped.
func (s *crawlJobStore) ClaimNext(ctx context.Context, now time.Time) (*domain.CrawlJob, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE crawl_jobs SET status = $1, started_at = $2
		WHERE id = (
			SELECT id FROM crawl_jobs WHERE status = $3
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		string(domain.CrawlStatusInProgress), now.UTC(), string(domain.CrawlStatusPending))

	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return job, err
}

// Claim moves a specific PENDING job to IN_PROGRESS.
func (s *crawlJobStore) Claim(ctx context.Context, jobID string, now time.Time) (*domain.CrawlJob, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE crawl_jobs SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+jobColumns,
		string(domain.CrawlStatusInProgress), now.UTC(), jobID, string(domain.CrawlStatusPending))

	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.transitionError(ctx, jobID)
	}
	return job, err
}

// GetStatus returns the current status of a job.
func (s *crawlJobStore) GetStatus(ctx context.Context, jobID string) (domain.CrawlStatus, error) {
	var status string
	if err := s.db.QueryRowContext(ctx, "SELECT status FROM crawl_jobs WHERE id = $1", jobID).Scan(&status); err != nil {
		return "", notFoundOr("get job status", err)
	}
	return domain.CrawlStatus(status), nil
}

// UpdateStats overwrites the job counters.
func (s *crawlJobStore) UpdateStats(ctx context.Context, jobID string, st domain.CrawlStats) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_jobs SET
			pages_discovered = $1, pages_crawled = $2, pages_failed = $3, pages_skipped = $4,
			documents_created = $5, documents_updated = $6, documents_unchanged = $7
		WHERE id = $8
	`, st.PagesDiscovered, st.PagesCrawled, st.PagesFailed, st.PagesSkipped,
		st.DocumentsCreated, st.DocumentsUpdated, st.DocumentsUnchanged, jobID)
	if err != nil {
		return storeErr("update job stats", err)
	}
	return requireAffected(res, "update job stats")
}

// Finish moves an IN_PROGRESS job to a terminal status.
func (s *crawlJobStore) Finish(ctx context.Context, jobID string, status domain.CrawlStatus, st domain.CrawlStats, errMsg string, now time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish with status %q: %w", status, domain.ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_jobs SET
			status = $1, error_message = $2, completed_at = $3,
			pages_discovered = $4, pages_crawled = $5, pages_failed = $6, pages_skipped = $7,
			documents_created = $8, documents_updated = $9, documents_unchanged = $10
		WHERE id = $11 AND status = $12
	`, string(status), nullString(errMsg), now.UTC(),
		st.PagesDiscovered, st.PagesCrawled, st.PagesFailed, st.PagesSkipped,
		st.DocumentsCreated, st.DocumentsUpdated, st.DocumentsUnchanged,
		jobID, string(domain.CrawlStatusInProgress))
	if err != nil {
		return storeErr("finish job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("finish job", err)
	}
	if n == 0 {
		return s.transitionError(ctx, jobID)
	}
	return nil
}

// Cancel moves a PENDING or IN_PROGRESS job to CANCELLED.
func (s *crawlJobStore) Cancel(ctx context.Context, jobID string, now time.Time) (*domain.CrawlJob, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE crawl_jobs SET status = $1, completed_at = $2
		WHERE id = $3 AND status IN ($4, $5)
		RETURNING `+jobColumns,
		string(domain.CrawlStatusCancelled), now.UTC(), jobID,
		string(domain.CrawlStatusPending), string(domain.CrawlStatusInProgress))

	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.transitionError(ctx, jobID)
	}
	return job, err
}

// FailStale marks orphaned IN_PROGRESS jobs as FAILED.
func (s *crawlJobStore) FailStale(ctx context.Context, msg string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_jobs SET status = $1, error_message = $2, completed_at = $3
		WHERE status = $4
	`, string(domain.CrawlStatusFailed), msg, now.UTC(), string(domain.CrawlStatusInProgress))
	if err != nil {
		return 0, storeErr("fail stale jobs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("fail stale jobs", err)
	}
	return int(n), nil
}

func (s *crawlJobStore) transitionError(ctx context.Context, jobID string) error {
	status, err := s.GetStatus(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s is %s: %w", jobID, status, domain.ErrInvalidTransition)
}

func scanJob(row rowScanner) (*domain.CrawlJob, error) {
	var job domain.CrawlJob
	var status string
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime
	st := &job.Stats

	if err := row.Scan(&job.ID, &job.VendorID, &status, &job.JobType,
		&st.PagesDiscovered, &st.PagesCrawled, &st.PagesFailed, &st.PagesSkipped,
		&st.DocumentsCreated, &st.DocumentsUpdated, &st.DocumentsUnchanged,
		&errMsg, &startedAt, &completedAt, &job.CreatedAt); err != nil {
		return nil, notFoundOr("scan job", err)
	}

	job.Status = domain.CrawlStatus(status)
	job.ErrorMessage = errMsg.String
	job.StartedAt = timePtr(startedAt)
	job.CompletedAt = timePtr(completedAt)
	job.CreatedAt = job.CreatedAt.UTC()
	return &job, nil
}
