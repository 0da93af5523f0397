package web

import (
	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/logger"
)

var _ driven.CrawlerFactory = (*Factory)(nil)

// Factory builds a fresh Crawler, with its own Fetcher, for every job.
type Factory struct {
	settings   domain.CrawlerSettings
	policy     domain.RelevancePolicy
	normaliser driven.PageNormaliser
	fetchOpts  []FetcherOption
}

// NewFactory creates a crawler factory. Extra fetcher options are
// appended after those derived from settings.
func NewFactory(settings domain.CrawlerSettings, policy domain.RelevancePolicy, normaliser driven.PageNormaliser, fetchOpts ...FetcherOption) *Factory {
	return &Factory{
		settings:   settings,
		policy:     policy,
		normaliser: normaliser,
		fetchOpts:  fetchOpts,
	}
}

// NewCrawler implements driven.CrawlerFactory.
func (f *Factory) NewCrawler() (driven.Crawler, error) {
	s := f.settings
	ua := s.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	opts := []FetcherOption{
		WithUserAgent(ua),
		WithMinDelay(s.RateLimit),
	}
	if s.Timeout > 0 {
		opts = append(opts, WithTimeout(s.Timeout))
	}
	if s.MaxRedirects > 0 {
		opts = append(opts, WithMaxRedirects(s.MaxRedirects))
	}
	opts = append(opts, f.fetchOpts...)

	return NewCrawler(NewFetcher(opts...), f.normaliser, f.policy,
		WithMaxPages(s.MaxPages),
		WithMaxLinksPerPage(s.MaxLinksPerPage),
		WithRobots(s.RespectRobots, ua),
		WithLogger(logger.WithField("component", "crawler")),
	), nil
}
