package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	htmlnorm "github.com/custodia-labs/vendorscope/internal/normalisers/html"
)

type fakePage struct {
	status      int
	contentType string
	body        string
	finalURL    string
}

// fakeFetcher serves canned pages and records every requested URL.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]fakePage
	requests []string
	slowDown time.Duration
}

func newFakeFetcher(pages map[string]fakePage) *fakeFetcher {
	return &fakeFetcher{pages: pages}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*domain.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, rawURL)

	p, ok := f.pages[rawURL]
	if !ok {
		return nil, &domain.HTTPError{URL: rawURL, StatusCode: http.StatusNotFound}
	}
	if p.status >= 400 {
		return nil, &domain.HTTPError{URL: rawURL, StatusCode: p.status}
	}
	final := p.finalURL
	if final == "" {
		final = rawURL
	}
	ct := p.contentType
	if ct == "" {
		ct = "text/html"
	}
	return &domain.FetchResult{
		RequestedURL: rawURL,
		FinalURL:     final,
		StatusCode:   http.StatusOK,
		ContentType:  ct,
		Body:         []byte(p.body),
		FetchedAt:    time.Now(),
	}, nil
}

func (f *fakeFetcher) SlowDown(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slowDown = d
}

func (f *fakeFetcher) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func htmlPage(title, text string, links ...string) fakePage {
	body := fmt.Sprintf("<html><head><title>%s</title></head><body><p>%s</p>", title, text)
	for _, l := range links {
		body += fmt.Sprintf(`<a href="%s">link</a>`, l)
	}
	return fakePage{body: body + "</body></html>"}
}

func testPolicy() domain.RelevancePolicy {
	return domain.RelevancePolicy{
		URLPatterns:      []string{"/security", "/privacy", "/trust"},
		Keywords:         []string{"encryption", "soc 2", "gdpr"},
		KeywordThreshold: 2,
	}
}

type visitLog struct {
	pages []*domain.CrawledPage
}

func (v *visitLog) visit(_ context.Context, p *domain.CrawledPage) error {
	v.pages = append(v.pages, p)
	return nil
}

func (v *visitLog) urls() []string {
	out := make([]string, 0, len(v.pages))
	for _, p := range v.pages {
		out = append(out, p.URL)
	}
	return out
}

func acmeSite() map[string]fakePage {
	return map[string]fakePage{
		"https://acme.com/":                    htmlPage("Acme", "Welcome to Acme.", "/about", "/security"),
		"https://acme.com/security":            htmlPage("Security", "We use encryption and hold SOC 2.", "/security/encryption", "https://other.com/security", "/security"),
		"https://acme.com/privacy":             htmlPage("Privacy", "Privacy policy for Acme."),
		"https://acme.com/security/encryption": htmlPage("Encryption", "AES-256 encryption at rest."),
		"https://acme.com/about":               htmlPage("About", "About us. encryption gdpr"),
	}
}

func TestCrawl_RelevantPagesOnly(t *testing.T) {
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	stats, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://acme.com/security",
		"https://acme.com/privacy",
		"https://acme.com/security/encryption",
	}, log.urls())
	assert.Equal(t, 3, stats.PagesDiscovered)
	assert.Equal(t, 4, stats.PagesCrawled)
	assert.Equal(t, 2, stats.PagesFailed)

	requested := fetcher.requested()
	assert.NotContains(t, requested, "https://other.com/security")
	// The root page is not a trust page, so its links are not followed.
	assert.NotContains(t, requested, "https://acme.com/about")

	assert.Equal(t, domain.DocumentTypeSecurityPage, log.pages[0].Type)
	assert.Equal(t, domain.DocumentTypePrivacyPolicy, log.pages[1].Type)
	assert.Equal(t, "Security", log.pages[0].Page.Title)
}

func TestCrawl_NoURLFetchedTwice(t *testing.T) {
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, u := range fetcher.requested() {
		seen[u]++
	}
	for u, n := range seen {
		assert.Equal(t, 1, n, u)
	}
}

func TestCrawl_BudgetCountsAttempts(t *testing.T) {
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy(), WithMaxPages(2))
	var log visitLog

	stats, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	require.NoError(t, err)
	assert.Len(t, fetcher.requested(), 2)
	assert.Equal(t, 2, stats.PagesCrawled+stats.PagesFailed)
	assert.Equal(t, []string{"https://acme.com/security"}, log.urls())
}

func TestCrawl_ExplicitSeeds(t *testing.T) {
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{
		VendorID: "v1",
		Domain:   "acme.com",
		SeedURLs: []string{"https://acme.com/privacy"},
	}, log.visit)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.com/privacy"}, fetcher.requested())
}

func TestCrawl_CheckpointStopsCrawl(t *testing.T) {
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog
	calls := 0

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{
		VendorID: "v1",
		Domain:   "acme.com",
		Checkpoint: func(context.Context) error {
			calls++
			if calls > 2 {
				return domain.ErrCrawlCancelled
			}
			return nil
		},
	}, log.visit)

	assert.ErrorIs(t, err, domain.ErrCrawlCancelled)
	assert.Len(t, fetcher.requested(), 2)
}

func TestCrawl_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	_, err := c.Crawl(ctx, domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fetcher.requested())
}

func TestCrawl_RespectsRobots(t *testing.T) {
	site := acmeSite()
	site["https://acme.com/robots.txt"] = fakePage{
		contentType: "text/plain",
		body:        "User-agent: *\nDisallow: /privacy\nCrawl-delay: 3\n",
	}
	fetcher := newFakeFetcher(site)
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy(), WithRobots(true, defaultUserAgent))
	var log visitLog

	stats, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	require.NoError(t, err)
	assert.NotContains(t, fetcher.requested(), "https://acme.com/privacy")
	assert.Equal(t, 1, stats.PagesSkipped)
	assert.Equal(t, 3*time.Second, fetcher.slowDown)

	robotsFetches := 0
	for _, u := range fetcher.requested() {
		if u == "https://acme.com/robots.txt" {
			robotsFetches++
		}
	}
	assert.Equal(t, 1, robotsFetches)
}

func TestCrawl_RedirectToVisitedPage(t *testing.T) {
	site := acmeSite()
	trust := site["https://acme.com/security"]
	trust.finalURL = "https://acme.com/security"
	site["https://acme.com/trust"] = trust
	fetcher := newFakeFetcher(site)
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	require.NoError(t, err)
	count := 0
	for _, u := range log.urls() {
		if u == "https://acme.com/security" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.NotContains(t, log.urls(), "https://acme.com/trust")
}

func TestCrawl_RedirectOffDomain(t *testing.T) {
	site := acmeSite()
	off := htmlPage("Trust", "encryption soc 2")
	off.finalURL = "https://other.com/trust"
	site["https://acme.com/trust"] = off
	fetcher := newFakeFetcher(site)
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	require.NoError(t, err)
	assert.NotContains(t, log.urls(), "https://other.com/trust")
	assert.NotContains(t, log.urls(), "https://acme.com/trust")
}

func TestCrawl_RedirectIntoBlockedPath(t *testing.T) {
	site := acmeSite()
	internal := htmlPage("Security", "encryption soc 2")
	internal.finalURL = "https://acme.com/internal/security"
	site["https://acme.com/trust"] = internal
	login := htmlPage("Sign in", "Sign in to continue. encryption soc 2")
	login.finalURL = "https://acme.com/login?next=/privacy"
	site["https://acme.com/privacy"] = login
	fetcher := newFakeFetcher(site)
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{
		VendorID:    "v1",
		Domain:      "acme.com",
		BlockedURLs: []string{"/internal"},
	}, log.visit)

	require.NoError(t, err)
	assert.NotContains(t, log.urls(), "https://acme.com/internal/security")
	assert.NotContains(t, log.urls(), "https://acme.com/login?next=/privacy")
	assert.Contains(t, log.urls(), "https://acme.com/security")
}

func TestCrawl_UnsupportedContentType(t *testing.T) {
	site := acmeSite()
	site["https://acme.com/trust"] = fakePage{contentType: "application/pdf", body: "%PDF"}
	fetcher := newFakeFetcher(site)
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	var log visitLog

	stats, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.PagesSkipped)
	assert.NotContains(t, log.urls(), "https://acme.com/trust")
}

func TestCrawl_FatalVisitorErrorAborts(t *testing.T) {
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	storeErr := &domain.StoreError{Op: "commit", Err: errors.New("disk full")}

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"},
		func(context.Context, *domain.CrawledPage) error { return storeErr })

	var got *domain.StoreError
	require.True(t, errors.As(err, &got))
	assert.Len(t, fetcher.requested(), 2)
}

func TestCrawl_NonFatalVisitorErrorContinues(t *testing.T) {
	fetcher := newFakeFetcher(acmeSite())
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy())
	visits := 0

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"},
		func(context.Context, *domain.CrawledPage) error {
			visits++
			return fmt.Errorf("chunking: %w", domain.ErrInvalidInput)
		})

	require.NoError(t, err)
	assert.Equal(t, 3, visits)
}

func TestCrawl_MaxLinksPerPage(t *testing.T) {
	site := acmeSite()
	site["https://acme.com/security"] = htmlPage("Security", "encryption soc 2",
		"/security/a", "/security/b", "/security/c")
	fetcher := newFakeFetcher(site)
	c := NewCrawler(fetcher, htmlnorm.New(), testPolicy(), WithMaxLinksPerPage(1))
	var log visitLog

	_, err := c.Crawl(context.Background(), domain.CrawlRequest{VendorID: "v1", Domain: "acme.com"}, log.visit)

	require.NoError(t, err)
	requested := fetcher.requested()
	assert.Contains(t, requested, "https://acme.com/security/a")
	assert.NotContains(t, requested, "https://acme.com/security/b")
}

func TestSeeds(t *testing.T) {
	assert.Equal(t, []string{
		"https://acme.com/",
		"https://acme.com/security",
		"https://acme.com/trust",
		"https://acme.com/privacy",
		"https://acme.com/legal",
	}, Seeds(domain.CrawlRequest{Domain: "www.acme.com"}))

	assert.Equal(t, []string{"https://acme.com/x"}, Seeds(domain.CrawlRequest{
		Domain:   "acme.com",
		SeedURLs: []string{"https://acme.com/x#frag", "not a url"},
	}))
}
