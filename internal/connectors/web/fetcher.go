package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/metrics"
)

var _ driven.Fetcher = (*Fetcher)(nil)

const (
	defaultUserAgent    = "VendorScope/1.0 (Vendor Risk Analysis Bot)"
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 5
	defaultMaxRetries   = 2
	maxPageBytes        = 5 << 20
	maxRetryAfter       = 120 * time.Second
	maxCrawlDelay       = 10 * time.Second
)

// Fetcher issues rate-limited GET requests. Each instance owns one
// limiter; requests through the same Fetcher are spaced by at least the
// configured minimum delay.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	backoff    time.Duration

	mu       sync.Mutex
	minDelay time.Duration
	limiter  *rate.Limiter
}

type fetcherConfig struct {
	userAgent    string
	timeout      time.Duration
	maxRedirects int
	minDelay     time.Duration
	maxRetries   int
	backoff      time.Duration
	transport    http.RoundTripper
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherConfig)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(c *fetcherConfig) { c.userAgent = ua }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(c *fetcherConfig) { c.timeout = d }
}

// WithMaxRedirects bounds the redirect hops followed per request.
func WithMaxRedirects(n int) FetcherOption {
	return func(c *fetcherConfig) { c.maxRedirects = n }
}

// WithMinDelay sets the minimum delay between requests. Zero disables limiting.
func WithMinDelay(d time.Duration) FetcherOption {
	return func(c *fetcherConfig) { c.minDelay = d }
}

// WithRetries sets how often a 429/5xx or network failure is retried.
func WithRetries(n int, backoff time.Duration) FetcherOption {
	return func(c *fetcherConfig) {
		c.maxRetries = n
		c.backoff = backoff
	}
}

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(c *fetcherConfig) { c.transport = rt }
}

// NewFetcher creates a Fetcher with its own client and limiter.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	cfg := fetcherConfig{
		userAgent:    defaultUserAgent,
		timeout:      defaultTimeout,
		maxRedirects: defaultMaxRedirects,
		minDelay:     time.Second,
		maxRetries:   defaultMaxRetries,
		backoff:      time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	maxRedirects := cfg.maxRedirects
	client := &http.Client{
		Timeout:   cfg.timeout,
		Transport: cfg.transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client:     client,
		userAgent:  cfg.userAgent,
		maxRetries: cfg.maxRetries,
		backoff:    cfg.backoff,
		minDelay:   cfg.minDelay,
		limiter:    newLimiter(cfg.minDelay),
	}
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// SlowDown raises the minimum delay to d, for example from a robots.txt
// crawl-delay. It never lowers the delay and caps it at maxCrawlDelay.
func (f *Fetcher) SlowDown(d time.Duration) {
	if d > maxCrawlDelay {
		d = maxCrawlDelay
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d <= f.minDelay {
		return
	}
	f.minDelay = d
	f.limiter.SetLimit(rate.Every(d))
}

// MinDelay returns the current minimum delay between requests.
func (f *Fetcher) MinDelay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minDelay
}

// Fetch GETs rawURL. Redirects are followed and FinalURL reports where
// they ended. Non-2xx responses return *domain.HTTPError; network
// failures return *domain.TransportError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &domain.TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	start := time.Now()
	resp, err := f.doWithRetry(ctx, req)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &domain.TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &domain.TransportError{URL: rawURL, Err: fmt.Errorf("reading body: %w", err)}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &domain.FetchResult{
		RequestedURL: rawURL,
		FinalURL:     finalURL,
		StatusCode:   resp.StatusCode,
		Header:       resp.Header,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
		FetchedAt:    time.Now().UTC(),
	}, nil
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// doWithRetry waits for the limiter before every attempt and backs off
// exponentially on transient failures, honouring Retry-After.
func (f *Fetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.backoff * time.Duration(1<<(attempt-1))
			if resp != nil {
				if ra := resp.Header.Get("Retry-After"); ra != "" {
					if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
						backoff = min(time.Duration(secs)*time.Second, maxRetryAfter)
					}
				}
				resp.Body.Close()
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		if waitErr := f.limiter.Wait(ctx); waitErr != nil {
			return nil, waitErr
		}
		resp, err = f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil || !isRetryableError(err) {
				return nil, err
			}
			continue
		}
		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
