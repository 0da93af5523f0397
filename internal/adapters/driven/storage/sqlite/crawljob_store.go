package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

// crawlJobStore implements driven.CrawlJobStore.
type crawlJobStore struct {
	store *Store
}

var _ driven.CrawlJobStore = (*crawlJobStore)(nil)

const jobColumns = `id, vendor_id, status, job_type, pages_discovered, pages_crawled,
	pages_failed, pages_skipped, documents_created, documents_updated, documents_unchanged,
	error_message, started_at, completed_at, created_at`

// CreatePending records a new PENDING job unless the vendor already has
// an active one.
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

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin create job", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var active int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM crawl_jobs WHERE vendor_id = ? AND status IN (?, ?)
	`, job.VendorID, domain.CrawlStatusPending, domain.CrawlStatusInProgress).Scan(&active); err != nil {
		return storeErr("check active jobs", err)
	}
	if active > 0 {
		return domain.ErrCrawlInProgress
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO crawl_jobs (id, vendor_id, status, job_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, job.ID, job.VendorID, job.Status, job.JobType, formatTime(job.CreatedAt))
	if isUniqueViolation(err, "crawl_jobs.vendor_id") {
		return domain.ErrCrawlInProgress
	}
	if err != nil {
		return storeErr("create job", err)
	}

	return storeErr("commit create job", tx.Commit())
}

// GetJob retrieves a job by ID.
func (s *crawlJobStore) GetJob(ctx context.Context, id string) (*domain.CrawlJob, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM crawl_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// ListJobs returns jobs newest first.
func (s *crawlJobStore) ListJobs(ctx context.Context, vendorID string, limit int) ([]domain.CrawlJob, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + jobColumns + ` FROM crawl_jobs`
	var args []any
	if vendorID != "" {
		query += " WHERE vendor_id = ?"
		args = append(args, vendorID)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list jobs", err)
	}
	defer rows.Close()

	var jobs []domain.CrawlJob //nolint:prealloc // size unknown from query
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

// ClaimNext moves the oldest PENDING job to IN_PROGRESS in one statement.
func (s *crawlJobStore) ClaimNext(ctx context.Context, now time.Time) (*domain.CrawlJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		UPDATE crawl_jobs SET status = ?, started_at = ?
		WHERE id = (
			SELECT id FROM crawl_jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1
		) AND status = ?
		RETURNING `+jobColumns,
		domain.CrawlStatusInProgress, formatTime(now), domain.CrawlStatusPending, domain.CrawlStatusPending)

	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return job, err
}

// Claim moves a specific PENDING job to IN_PROGRESS.
func (s *crawlJobStore) Claim(ctx context.Context, jobID string, now time.Time) (*domain.CrawlJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		UPDATE crawl_jobs SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+jobColumns,
		domain.CrawlStatusInProgress, formatTime(now), jobID, domain.CrawlStatusPending)

	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.transitionError(ctx, jobID)
	}
	return job, err
}

// GetStatus returns the current status of a job.
func (s *crawlJobStore) GetStatus(ctx context.Context, jobID string) (domain.CrawlStatus, error) {
	var status string
	err := s.store.db.QueryRowContext(ctx, "SELECT status FROM crawl_jobs WHERE id = ?", jobID).Scan(&status)
	if err != nil {
		return "", notFoundOr("get job status", err)
	}
	return domain.CrawlStatus(status), nil
}

// UpdateStats overwrites the job counters.
func (s *crawlJobStore) UpdateStats(ctx context.Context, jobID string, st domain.CrawlStats) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE crawl_jobs SET
			pages_discovered = ?, pages_crawled = ?, pages_failed = ?, pages_skipped = ?,
			documents_created = ?, documents_updated = ?, documents_unchanged = ?
		WHERE id = ?
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
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE crawl_jobs SET
			status = ?, error_message = ?, completed_at = ?,
			pages_discovered = ?, pages_crawled = ?, pages_failed = ?, pages_skipped = ?,
			documents_created = ?, documents_updated = ?, documents_unchanged = ?
		WHERE id = ? AND status = ?
	`, status, nullString(errMsg), formatTime(now),
		st.PagesDiscovered, st.PagesCrawled, st.PagesFailed, st.PagesSkipped,
		st.DocumentsCreated, st.DocumentsUpdated, st.DocumentsUnchanged,
		jobID, domain.CrawlStatusInProgress)
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
	row := s.store.db.QueryRowContext(ctx, `
		UPDATE crawl_jobs SET status = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)
		RETURNING `+jobColumns,
		domain.CrawlStatusCancelled, formatTime(now), jobID,
		domain.CrawlStatusPending, domain.CrawlStatusInProgress)

	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.transitionError(ctx, jobID)
	}
	return job, err
}

// FailStale marks orphaned IN_PROGRESS jobs as FAILED.
func (s *crawlJobStore) FailStale(ctx context.Context, msg string, now time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE crawl_jobs SET status = ?, error_message = ?, completed_at = ?
		WHERE status = ?
	`, domain.CrawlStatusFailed, msg, formatTime(now), domain.CrawlStatusInProgress)
	if err != nil {
		return 0, storeErr("fail stale jobs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("fail stale jobs", err)
	}
	return int(n), nil
}

// transitionError explains why a conditional update matched no row.
func (s *crawlJobStore) transitionError(ctx context.Context, jobID string) error {
	status, err := s.GetStatus(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s is %s: %w", jobID, status, domain.ErrInvalidTransition)
}

func scanJob(row rowScanner) (*domain.CrawlJob, error) {
	var job domain.CrawlJob
	var status, createdAt string
	var errMsg, startedAt, completedAt sql.NullString
	st := &job.Stats

	if err := row.Scan(&job.ID, &job.VendorID, &status, &job.JobType,
		&st.PagesDiscovered, &st.PagesCrawled, &st.PagesFailed, &st.PagesSkipped,
		&st.DocumentsCreated, &st.DocumentsUpdated, &st.DocumentsUnchanged,
		&errMsg, &startedAt, &completedAt, &createdAt); err != nil {
		return nil, notFoundOr("scan job", err)
	}

	job.Status = domain.CrawlStatus(status)
	job.ErrorMessage = errMsg.String
	job.StartedAt = parseNullableTimePtr(startedAt)
	job.CompletedAt = parseNullableTimePtr(completedAt)
	job.CreatedAt = parseTime(createdAt)
	return &job, nil
}
