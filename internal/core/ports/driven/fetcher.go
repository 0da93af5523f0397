package driven

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// Fetcher issues rate-limited HTTP GETs.
// Failures are *domain.TransportError or *domain.HTTPError.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*domain.FetchResult, error)
}

// PageVisitor receives each relevant page the crawler discovers.
// Returning an error for which domain.IsFatalToJob is true stops the crawl.
type PageVisitor func(ctx context.Context, page *domain.CrawledPage) error

// Crawler walks a vendor's site from its seeds and emits relevant pages.
// A Crawler serves a single crawl and must not be shared between vendors.
type Crawler interface {
	// Crawl runs the frontier until it is empty, the page budget is spent,
	// the checkpoint reports an error, or the visitor fails fatally.
	Crawl(ctx context.Context, req domain.CrawlRequest, visit PageVisitor) (domain.CrawlStats, error)
}

// CrawlerFactory builds a fresh Crawler, with its own HTTP client and
// rate limiter, for every crawl invocation.
type CrawlerFactory interface {
	NewCrawler() (Crawler, error)
}
