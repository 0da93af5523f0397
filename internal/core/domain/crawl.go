package domain

import (
	"context"
	"net/http"
	"time"
)

// CrawlStatus is the state of a crawl job.
//
// Transitions: PENDING -> IN_PROGRESS -> {COMPLETED, FAILED, CANCELLED}.
// A PENDING job may also move straight to CANCELLED.
type CrawlStatus string

// Crawl job states.
const (
	CrawlStatusPending    CrawlStatus = "pending"
	CrawlStatusInProgress CrawlStatus = "in_progress"
	CrawlStatusCompleted  CrawlStatus = "completed"
	CrawlStatusFailed     CrawlStatus = "failed"
	CrawlStatusCancelled  CrawlStatus = "cancelled"
)

// IsTerminal returns true for states that never change again.
func (s CrawlStatus) IsTerminal() bool {
	return s == CrawlStatusCompleted || s == CrawlStatusFailed || s == CrawlStatusCancelled
}

// IsActive returns true while a job holds the vendor's crawl slot.
func (s CrawlStatus) IsActive() bool {
	return s == CrawlStatusPending || s == CrawlStatusInProgress
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s CrawlStatus) CanTransitionTo(next CrawlStatus) bool {
	switch s {
	case CrawlStatusPending:
		return next == CrawlStatusInProgress || next == CrawlStatusCancelled
	case CrawlStatusInProgress:
		return next.IsTerminal()
	default:
		return false
	}
}

// JobTypeFullCrawl is the only job type the pipeline runs.
const JobTypeFullCrawl = "full_crawl"

// CrawlJob is one execution record of the crawl pipeline for a vendor.
type CrawlJob struct {
	ID       string
	VendorID string
	Status   CrawlStatus
	JobType  string

	// Stats holds the page and document counters.
	Stats CrawlStats

	// ErrorMessage is set when the job failed.
	ErrorMessage string

	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// CrawlStats counts pages and document outcomes of one crawl.
type CrawlStats struct {
	// PagesDiscovered counts relevant pages handed to the pipeline.
	PagesDiscovered int

	// PagesCrawled counts fetches that returned a 2xx response.
	PagesCrawled int

	// PagesFailed counts fetches that failed at transport or HTTP level.
	PagesFailed int

	// PagesSkipped counts URLs excluded by robots.txt.
	PagesSkipped int

	DocumentsCreated   int
	DocumentsUpdated   int
	DocumentsUnchanged int
}

// Record increments the document counter for an outcome.
func (s *CrawlStats) Record(outcome VersionOutcome) {
	switch outcome {
	case VersionCreated:
		s.DocumentsCreated++
	case VersionUpdated:
		s.DocumentsUpdated++
	case VersionUnchanged:
		s.DocumentsUnchanged++
	}
}

// FetchResult is the output of a successful fetch.
type FetchResult struct {
	// RequestedURL is the URL the fetch was asked for.
	RequestedURL string

	// FinalURL is the URL after redirects; it is what gets stored.
	FinalURL string

	StatusCode  int
	Header      http.Header
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// NormalisedPage is the output of the content normaliser.
type NormalisedPage struct {
	Title       string
	CleanedText string
	URLHash     string
	ContentHash string

	// Links holds the raw href values found in the page.
	Links []string

	// Degraded is set when markup could not be parsed and the text was
	// extracted from the raw body instead.
	Degraded bool
}

// CrawledPage is a relevant, classified page emitted by the frontier.
type CrawledPage struct {
	URL   string
	Fetch *FetchResult
	Page  *NormalisedPage
	Type  DocumentType
}

// CrawlRequest describes one crawl of one vendor.
type CrawlRequest struct {
	VendorID    string
	Domain      string
	SeedURLs    []string
	BlockedURLs []string

	// Checkpoint is polled before every fetch. A non-nil error stops the
	// crawl and is returned from it. It may be nil.
	Checkpoint func(ctx context.Context) error
}
