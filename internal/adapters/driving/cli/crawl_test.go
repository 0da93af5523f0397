package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

func TestCrawl_QueuesJob(t *testing.T) {
	crawls := &mockCrawlService{job: &domain.CrawlJob{ID: "job-1", VendorID: "v-acme", Status: domain.CrawlStatusPending}}
	withServices(t, &Services{Vendor: acmeVendorService(), Crawl: crawls})

	out, err := executeCommand(t, "crawl", "acme.com")

	require.NoError(t, err)
	assert.Equal(t, "v-acme", crawls.submitted)
	assert.Empty(t, crawls.ranNow)
	assert.Contains(t, out, "Crawl queued for Acme: job job-1")
}

func TestCrawl_WaitRunsNow(t *testing.T) {
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	crawls := &mockCrawlService{job: &domain.CrawlJob{
		ID:        "job-2",
		VendorID:  "v-acme",
		Status:    domain.CrawlStatusCompleted,
		StartedAt: &started,
		Stats: domain.CrawlStats{
			PagesDiscovered: 12, PagesCrawled: 10, PagesFailed: 1, PagesSkipped: 1,
			DocumentsCreated: 3, DocumentsUpdated: 2, DocumentsUnchanged: 5,
		},
	}}
	withServices(t, &Services{Vendor: acmeVendorService(), Crawl: crawls})

	out, err := executeCommand(t, "crawl", "v-acme", "--wait")

	require.NoError(t, err)
	assert.Equal(t, "v-acme", crawls.ranNow)
	assert.Empty(t, crawls.submitted)
	assert.Contains(t, out, "Crawling Acme (acme.com)...")
	assert.Contains(t, out, "12 discovered, 10 crawled, 1 failed, 1 skipped")
	assert.Contains(t, out, "3 created, 2 updated, 5 unchanged")
}

func TestCrawl_WaitPrintsFailedJob(t *testing.T) {
	crawls := &mockCrawlService{
		job: &domain.CrawlJob{ID: "job-3", Status: domain.CrawlStatusFailed, ErrorMessage: "all seeds failed"},
		err: errors.New("all seeds failed"),
	}
	withServices(t, &Services{Vendor: acmeVendorService(), Crawl: crawls})

	out, err := executeCommand(t, "crawl", "acme.com", "-w")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl failed")
	assert.Contains(t, out, "Error:      all seeds failed")
}

func TestCrawl_InProgress(t *testing.T) {
	crawls := &mockCrawlService{err: domain.ErrCrawlInProgress}
	withServices(t, &Services{Vendor: acmeVendorService(), Crawl: crawls})

	_, err := executeCommand(t, "crawl", "acme.com")
	assert.ErrorIs(t, err, domain.ErrCrawlInProgress)
}

func TestCrawl_UnknownVendor(t *testing.T) {
	crawls := &mockCrawlService{}
	withServices(t, &Services{Vendor: acmeVendorService(), Crawl: crawls})

	_, err := executeCommand(t, "crawl", "initech.com")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, crawls.submitted)
}

func TestJobsList(t *testing.T) {
	crawls := &mockCrawlService{jobs: []domain.CrawlJob{
		{ID: "job-1", VendorID: "v-acme", Status: domain.CrawlStatusCompleted, CreatedAt: time.Now()},
	}}
	withServices(t, &Services{Vendor: acmeVendorService(), Crawl: crawls})

	out, err := executeCommand(t, "jobs", "list", "--vendor", "acme.com")

	require.NoError(t, err)
	assert.Equal(t, "v-acme", crawls.listedFor)
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "vendor=v-acme")
}

func TestJobsList_Empty(t *testing.T) {
	crawls := &mockCrawlService{}
	withServices(t, &Services{Crawl: crawls})

	out, err := executeCommand(t, "jobs", "list")

	require.NoError(t, err)
	assert.Empty(t, crawls.listedFor)
	assert.Contains(t, out, "No crawl jobs.")
}

func TestJobsShow(t *testing.T) {
	crawls := &mockCrawlService{job: &domain.CrawlJob{ID: "job-9", VendorID: "v-acme", Status: domain.CrawlStatusInProgress}}
	withServices(t, &Services{Crawl: crawls})

	out, err := executeCommand(t, "jobs", "show", "job-9")

	require.NoError(t, err)
	assert.Contains(t, out, "Job job-9")
	assert.Contains(t, out, "Status:     in_progress")
}

func TestJobsCancel(t *testing.T) {
	crawls := &mockCrawlService{job: &domain.CrawlJob{ID: "job-9", Status: domain.CrawlStatusCancelled}}
	withServices(t, &Services{Crawl: crawls})

	out, err := executeCommand(t, "jobs", "cancel", "job-9")

	require.NoError(t, err)
	assert.Equal(t, "job-9", crawls.cancelled)
	assert.Contains(t, out, "Job job-9 cancelled.")
}

func TestJobsCancel_Terminal(t *testing.T) {
	withServices(t, &Services{Crawl: &mockCrawlService{err: domain.ErrInvalidTransition}})

	_, err := executeCommand(t, "jobs", "cancel", "job-9")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
