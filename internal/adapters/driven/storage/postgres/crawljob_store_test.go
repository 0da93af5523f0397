package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

var jobRowColumns = []string{
	"id", "vendor_id", "status", "job_type", "pages_discovered", "pages_crawled",
	"pages_failed", "pages_skipped", "documents_created", "documents_updated", "documents_unchanged",
	"error_message", "started_at", "completed_at", "created_at",
}

func jobRow(id, status string, started any) *sqlmock.Rows {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(jobRowColumns).AddRow(
		id, "v1", status, "full_crawl", 4, 3, 1, 0, 2, 0, 1, nil, started, nil, created,
	)
}

func TestCrawlJobStore_CreatePending(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO crawl_jobs`).
		WithArgs("j1", "v1", "pending", "full_crawl", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &domain.CrawlJob{ID: "j1", VendorID: "v1"}
	require.NoError(t, store.CrawlJobStore().CreatePending(context.Background(), job))
	assert.Equal(t, domain.CrawlStatusPending, job.Status)
	assert.Equal(t, domain.JobTypeFullCrawl, job.JobType)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestCrawlJobStore_CreatePendingActiveJobExists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO crawl_jobs`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: activeJobIndex})

	err := store.CrawlJobStore().CreatePending(context.Background(), &domain.CrawlJob{ID: "j2", VendorID: "v1"})
	assert.ErrorIs(t, err, domain.ErrCrawlInProgress)
}

func TestCrawlJobStore_CreatePendingInvalid(t *testing.T) {
	store, _ := newMockStore(t)

	assert.ErrorIs(t, store.CrawlJobStore().CreatePending(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.CrawlJobStore().CreatePending(context.Background(), &domain.CrawlJob{ID: "j1"}), domain.ErrInvalidInput)
}

func TestCrawlJobStore_ClaimNext(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE crawl_jobs SET status = \$1, started_at = \$2 WHERE id = \( SELECT id FROM crawl_jobs WHERE status = \$3 ORDER BY created_at, id LIMIT 1 FOR UPDATE SKIP LOCKED \) RETURNING`).
		WithArgs("in_progress", now, "pending").
		WillReturnRows(jobRow("j1", "in_progress", now))

	job, err := store.CrawlJobStore().ClaimNext(context.Background(), now)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, domain.CrawlStatusInProgress, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.True(t, now.Equal(*job.StartedAt))
	assert.Nil(t, job.CompletedAt)
	assert.Equal(t, 3, job.Stats.PagesCrawled)
	assert.Equal(t, 2, job.Stats.DocumentsCreated)
}

func TestCrawlJobStore_ClaimNextEmptyQueue(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).WillReturnRows(sqlmock.NewRows(jobRowColumns))

	job, err := store.CrawlJobStore().ClaimNext(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestCrawlJobStore_ClaimAlreadyRunning(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE crawl_jobs SET status = \$1, started_at = \$2\s+WHERE id = \$3 AND status = \$4`).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))
	mock.ExpectQuery(`SELECT status FROM crawl_jobs WHERE id = \$1`).
		WithArgs("j1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("in_progress"))

	_, err := store.CrawlJobStore().Claim(context.Background(), "j1", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCrawlJobStore_FinishRejectsNonTerminal(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.CrawlJobStore().Finish(context.Background(), "j1", domain.CrawlStatusPending, domain.CrawlStats{}, "", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCrawlJobStore_FinishAfterCancel(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE crawl_jobs SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM crawl_jobs`).
		WithArgs("j1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))

	err := store.CrawlJobStore().Finish(context.Background(), "j1", domain.CrawlStatusCompleted, domain.CrawlStats{PagesCrawled: 2}, "", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCrawlJobStore_CancelMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE crawl_jobs SET status = \$1, completed_at = \$2`).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))
	mock.ExpectQuery(`SELECT status FROM crawl_jobs`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	_, err := store.CrawlJobStore().Cancel(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCrawlJobStore_FailStale(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE crawl_jobs SET status = \$1, error_message = \$2, completed_at = \$3\s+WHERE status = \$4`).
		WithArgs("failed", "interrupted", sqlmock.AnyArg(), "in_progress").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := store.CrawlJobStore().FailStale(context.Background(), "interrupted", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCrawlJobStore_ListJobs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM crawl_jobs WHERE vendor_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2`).
		WithArgs("v1", 10).
		WillReturnRows(jobRow("j1", "completed", nil))

	jobs, err := store.CrawlJobStore().ListJobs(context.Background(), "v1", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.CrawlStatusCompleted, jobs[0].Status)
	assert.Nil(t, jobs[0].StartedAt)
}
