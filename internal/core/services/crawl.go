package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/logger"
	"github.com/custodia-labs/vendorscope/internal/metrics"
)

// CrawlOrchestrator runs the crawl pipeline for one job: discover
// relevant pages, then version, chunk, embed and store each of them.
type CrawlOrchestrator struct {
	vendors  driven.VendorStore
	docs     driven.DocumentStore
	jobs     driven.CrawlJobStore
	crawlers driven.CrawlerFactory
	pipeline driven.PostProcessorPipeline
	indexer  *Indexer
	refresh  domain.RefreshSettings

	now func() time.Time
	log *logrus.Entry
}

// NewCrawlOrchestrator creates a new crawl orchestrator.
func NewCrawlOrchestrator(
	vendors driven.VendorStore,
	docs driven.DocumentStore,
	jobs driven.CrawlJobStore,
	crawlers driven.CrawlerFactory,
	pipeline driven.PostProcessorPipeline,
	indexer *Indexer,
	refresh domain.RefreshSettings,
) *CrawlOrchestrator {
	return &CrawlOrchestrator{
		vendors:  vendors,
		docs:     docs,
		jobs:     jobs,
		crawlers: crawlers,
		pipeline: pipeline,
		indexer:  indexer,
		refresh:  refresh,
		now:      time.Now,
		log:      logger.WithField("component", "orchestrator"),
	}
}

// Run crawls the job's vendor. The returned stats are valid even when an
// error is returned. Vendor crawl state is only advanced on success.
func (o *CrawlOrchestrator) Run(ctx context.Context, job *domain.CrawlJob) (domain.CrawlStats, error) {
	var stats domain.CrawlStats

	vendor, err := o.vendors.GetVendor(ctx, job.VendorID)
	if err != nil {
		return stats, fmt.Errorf("get vendor: %w", err)
	}
	if !o.indexer.Available() {
		return stats, domain.ErrEmbeddingUnavailable
	}

	crawler, err := o.crawlers.NewCrawler()
	if err != nil {
		return stats, fmt.Errorf("create crawler: %w", err)
	}

	log := o.log.WithFields(logrus.Fields{"job_id": job.ID, "vendor": vendor.Domain})
	log.Info("crawl started")

	var docStats domain.CrawlStats
	var discovered []string

	req := domain.CrawlRequest{
		VendorID:    vendor.ID,
		Domain:      vendor.Domain,
		SeedURLs:    vendor.SeedURLs,
		BlockedURLs: vendor.BlockedURLs,
		Checkpoint:  o.checkpoint(job.ID),
	}
	visit := func(ctx context.Context, page *domain.CrawledPage) error {
		discovered = append(discovered, page.URL)
		outcome, err := o.Upsert(ctx, vendor.ID, page)
		if err != nil {
			return err
		}
		docStats.Record(outcome)
		log.WithFields(logrus.Fields{"url": page.URL, "outcome": outcome}).Debug("page stored")
		return nil
	}

	stats, err = crawler.Crawl(ctx, req, visit)
	stats.DocumentsCreated = docStats.DocumentsCreated
	stats.DocumentsUpdated = docStats.DocumentsUpdated
	stats.DocumentsUnchanged = docStats.DocumentsUnchanged
	if err != nil {
		return stats, err
	}
	// A cancel after the crawler's last checkpoint must not advance the
	// schedule either.
	if req.Checkpoint != nil {
		if err := req.Checkpoint(ctx); err != nil {
			return stats, err
		}
	}

	now := o.now().UTC()
	next := now.Add(vendor.EffectiveRefreshInterval(o.refresh))
	if err := o.vendors.RecordCrawl(ctx, vendor.ID, now, next, discovered); err != nil {
		return stats, fmt.Errorf("record crawl: %w", err)
	}

	log.WithFields(logrus.Fields{
		"pages":     stats.PagesCrawled,
		"relevant":  stats.PagesDiscovered,
		"created":   stats.DocumentsCreated,
		"updated":   stats.DocumentsUpdated,
		"unchanged": stats.DocumentsUnchanged,
	}).Info("crawl finished")
	return stats, nil
}

// checkpoint stops the crawl once the job has been cancelled.
func (o *CrawlOrchestrator) checkpoint(jobID string) func(context.Context) error {
	if o.jobs == nil || jobID == "" {
		return nil
	}
	return func(ctx context.Context) error {
		status, err := o.jobs.GetStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("check job status: %w", err)
		}
		if status == domain.CrawlStatusCancelled {
			return domain.ErrCrawlCancelled
		}
		return nil
	}
}

// Upsert stores a crawled page as a new document version when its content
// changed, or refreshes crawled_at when it did not. Chunks are embedded
// before anything is written, so a failed embedding leaves the current
// latest version in place.
func (o *CrawlOrchestrator) Upsert(ctx context.Context, vendorID string, page *domain.CrawledPage) (domain.VersionOutcome, error) {
	if page == nil || page.Page == nil || page.Fetch == nil {
		return "", domain.ErrInvalidInput
	}

	latest, err := o.docs.GetLatest(ctx, vendorID, page.URL)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	now := o.now().UTC()

	if latest != nil && latest.ContentHash == page.Page.ContentHash {
		if err := o.docs.Touch(ctx, latest.ID, now); err != nil {
			return "", err
		}
		metrics.DocumentVersions.WithLabelValues(string(domain.VersionUnchanged)).Inc()
		return domain.VersionUnchanged, nil
	}

	doc := newDocument(vendorID, page, now)
	outcome := domain.VersionCreated
	if latest != nil {
		doc.Version = latest.Version + 1
		doc.PreviousVersionID = &latest.ID
		outcome = domain.VersionUpdated
	}

	chunks, err := o.pipeline.Process(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("chunk %s: %w", page.URL, err)
	}
	if err := o.indexer.EmbedChunks(ctx, chunks); err != nil {
		return "", err
	}
	if err := o.docs.CommitVersion(ctx, doc, latest, chunks); err != nil {
		return "", err
	}

	metrics.DocumentVersions.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

func newDocument(vendorID string, page *domain.CrawledPage, now time.Time) *domain.Document {
	meta := map[string]any{}
	if ct := page.Fetch.ContentType; ct != "" {
		meta["content_type"] = ct
	}
	if page.Fetch.Header != nil {
		if lm := page.Fetch.Header.Get("Last-Modified"); lm != "" {
			meta["last_modified"] = lm
		}
		if etag := page.Fetch.Header.Get("ETag"); etag != "" {
			meta["etag"] = etag
		}
	}
	if page.Page.Degraded {
		meta["degraded"] = true
	}

	return &domain.Document{
		ID:             uuid.New().String(),
		VendorID:       vendorID,
		URL:            page.URL,
		URLHash:        page.Page.URLHash,
		Type:           page.Type,
		Title:          page.Page.Title,
		RawContent:     string(page.Fetch.Body),
		CleanedContent: page.Page.CleanedText,
		ContentHash:    page.Page.ContentHash,
		Version:        1,
		HTTPStatus:     page.Fetch.StatusCode,
		Metadata:       meta,
		CrawledAt:      now,
		CreatedAt:      now,
	}
}
