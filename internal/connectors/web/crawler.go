package web

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/logger"
	"github.com/custodia-labs/vendorscope/internal/metrics"
)

var _ driven.Crawler = (*Crawler)(nil)

const defaultMaxPages = 200

// wellKnownTrustPaths seed a crawl when the vendor has no seed URLs.
var wellKnownTrustPaths = []string{"/", "/security", "/trust", "/privacy", "/legal"}

// delayAdjuster is implemented by fetchers that can honour a robots.txt
// crawl-delay.
type delayAdjuster interface {
	SlowDown(d time.Duration)
}

// Crawler runs one budget-bounded, relevance-gated breadth-first crawl.
type Crawler struct {
	fetcher    driven.Fetcher
	normaliser driven.PageNormaliser
	policy     domain.RelevancePolicy

	maxPages        int
	maxLinksPerPage int
	respectRobots   bool
	userAgent       string
	log             *logrus.Entry
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithMaxPages bounds the number of fetch attempts per crawl.
func WithMaxPages(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithMaxLinksPerPage caps how many links one page may enqueue. Zero means no cap.
func WithMaxLinksPerPage(n int) CrawlerOption {
	return func(c *Crawler) { c.maxLinksPerPage = n }
}

// WithRobots enables robots.txt checks for the given user agent.
func WithRobots(enabled bool, userAgent string) CrawlerOption {
	return func(c *Crawler) {
		c.respectRobots = enabled
		c.userAgent = userAgent
	}
}

// WithLogger sets the log entry used for page-level messages.
func WithLogger(l *logrus.Entry) CrawlerOption {
	return func(c *Crawler) { c.log = l }
}

// NewCrawler creates a crawler. The fetcher must not be shared with
// another concurrent crawl.
func NewCrawler(fetcher driven.Fetcher, normaliser driven.PageNormaliser, policy domain.RelevancePolicy, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		fetcher:    fetcher,
		normaliser: normaliser,
		policy:     policy,
		maxPages:   defaultMaxPages,
		userAgent:  defaultUserAgent,
		log:        logrus.NewEntry(logger.L()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// frontier is a FIFO work queue that never holds a URL twice and
// remembers what was already taken.
type frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

func (f *frontier) push(u string) {
	if _, ok := f.queued[u]; ok {
		return
	}
	if _, ok := f.visited[u]; ok {
		return
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
}

// pop returns the next unvisited URL and marks it visited.
func (f *frontier) pop() (string, bool) {
	for len(f.queue) > 0 {
		u := f.queue[0]
		f.queue = f.queue[1:]
		delete(f.queued, u)
		if _, ok := f.visited[u]; ok {
			continue
		}
		f.visited[u] = struct{}{}
		return u, true
	}
	return "", false
}

// markVisited records u and reports whether it was new.
func (f *frontier) markVisited(u string) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	f.visited[u] = struct{}{}
	return true
}

// Seeds returns the canonical starting URLs for a crawl request.
func Seeds(req domain.CrawlRequest) []string {
	raw := req.SeedURLs
	if len(raw) == 0 {
		d := domain.NormaliseDomain(req.Domain)
		for _, p := range wellKnownTrustPaths {
			raw = append(raw, "https://"+d+p)
		}
	}
	seeds := make([]string, 0, len(raw))
	for _, s := range raw {
		if c, err := Canonicalize(s); err == nil {
			seeds = append(seeds, c)
		}
	}
	return seeds
}

// Crawl walks the vendor site from its seeds. Relevant pages are passed
// to visit in discovery order. Page-level failures are counted and
// skipped; a checkpoint error, a fatal visitor error or context
// cancellation ends the crawl and is returned with the stats so far.
func (c *Crawler) Crawl(ctx context.Context, req domain.CrawlRequest, visit driven.PageVisitor) (domain.CrawlStats, error) {
	var stats domain.CrawlStats
	scope := NewScope(req.Domain, req.BlockedURLs)
	log := c.log.WithField("vendor_id", req.VendorID)

	f := newFrontier()
	for _, s := range Seeds(req) {
		f.push(s)
	}

	robots := make(map[string]*robotsRules)
	attempts := 0

	for attempts < c.maxPages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if req.Checkpoint != nil {
			if err := req.Checkpoint(ctx); err != nil {
				return stats, err
			}
		}

		target, ok := f.pop()
		if !ok {
			break
		}
		parsed, err := url.Parse(target)
		if err != nil {
			continue
		}

		if c.respectRobots && !c.robotsFor(ctx, parsed, robots).allowed(parsed.RequestURI()) {
			stats.PagesSkipped++
			metrics.CrawlPages.WithLabelValues(metrics.PageSkipped).Inc()
			log.WithField("url", target).Debug("disallowed by robots.txt")
			continue
		}

		attempts++
		res, err := c.fetcher.Fetch(ctx, target)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			stats.PagesFailed++
			metrics.CrawlPages.WithLabelValues(metrics.PageFailed).Inc()
			log.WithField("url", target).WithError(err).Warn("page fetch failed")
			continue
		}
		stats.PagesCrawled++

		pageURL, finalURL, ok := c.resolveFinal(target, res.FinalURL, scope, f)
		if !ok {
			continue
		}

		if !supportedContentType(res.ContentType) {
			stats.PagesSkipped++
			metrics.CrawlPages.WithLabelValues(metrics.PageUnsupported).Inc()
			log.WithField("url", pageURL).Debugf("skipping content type %q", res.ContentType)
			continue
		}

		page, err := c.normaliser.Normalise(pageURL, res.Body, res.ContentType)
		if err != nil {
			stats.PagesFailed++
			metrics.CrawlPages.WithLabelValues(metrics.PageFailed).Inc()
			log.WithField("url", pageURL).WithError(err).Warn("page normalisation failed")
			continue
		}

		if !IsRelevant(c.policy, pageURL, page.CleanedText) {
			metrics.CrawlPages.WithLabelValues(metrics.PageIrrelevant).Inc()
			log.WithField("url", pageURL).Debug("not a trust page")
			continue
		}

		stats.PagesDiscovered++
		metrics.CrawlPages.WithLabelValues(metrics.PageRelevant).Inc()
		crawled := &domain.CrawledPage{
			URL:   pageURL,
			Fetch: res,
			Page:  page,
			Type:  Classify(pageURL, page.CleanedText),
		}
		if err := visit(ctx, crawled); err != nil {
			if domain.IsFatalToJob(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			log.WithField("url", pageURL).WithError(err).Warn("page processing failed")
		}

		links := ExtractLinks(finalURL, page.Links, scope)
		if c.maxLinksPerPage > 0 && len(links) > c.maxLinksPerPage {
			links = links[:c.maxLinksPerPage]
		}
		for _, l := range links {
			f.push(l)
		}
	}

	return stats, nil
}

// resolveFinal canonicalises the post-redirect URL. It returns false when
// a redirect landed on a URL the scope does not allow (another domain, a
// blocked prefix, an auth or admin path) or on a page already visited.
func (c *Crawler) resolveFinal(target, final string, scope Scope, f *frontier) (string, *url.URL, bool) {
	canonical, err := Canonicalize(final)
	if err != nil {
		canonical = target
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return "", nil, false
	}
	if canonical == target {
		return canonical, u, true
	}
	if !scope.Allows(u) {
		c.log.WithField("url", target).Debugf("redirected out of scope to %s", canonical)
		return "", nil, false
	}
	if !f.markVisited(canonical) {
		return "", nil, false
	}
	return canonical, u, true
}

// robotsFor fetches and caches robots.txt rules per scheme and host.
// Missing or unreadable robots.txt allows everything.
func (c *Crawler) robotsFor(ctx context.Context, u *url.URL, cache map[string]*robotsRules) *robotsRules {
	base := u.Scheme + "://" + u.Host
	if rules, ok := cache[base]; ok {
		return rules
	}
	rules := &robotsRules{}
	res, err := c.fetcher.Fetch(ctx, base+"/robots.txt")
	if err == nil {
		rules = parseRobotsTxt(string(res.Body), c.userAgent)
		if adj, ok := c.fetcher.(delayAdjuster); ok && rules.delay > 0 {
			adj.SlowDown(rules.delay)
		}
	}
	cache[base] = rules
	return rules
}

func supportedContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml") ||
		strings.HasPrefix(ct, "text/plain")
}
