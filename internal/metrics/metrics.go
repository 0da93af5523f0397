// Package metrics holds the Prometheus collectors for the crawl and
// retrieval pipeline. Collectors register with the default registry and
// are served by `vendorscope serve` on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vendorscope"

// Page outcomes recorded by CrawlPages.
const (
	PageRelevant    = "relevant"
	PageIrrelevant  = "irrelevant"
	PageFailed      = "failed"
	PageSkipped     = "skipped"
	PageUnsupported = "unsupported"
)

var (
	// CrawlPages counts frontier outcomes per page.
	CrawlPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_pages_total",
			Help:      "Total pages handled by the crawl frontier",
		},
		[]string{"outcome"},
	)

	// FetchDuration observes single HTTP fetches.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_fetch_duration_seconds",
			Help:      "Duration of page fetches in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	// CrawlJobs counts finished crawl jobs by terminal status.
	CrawlJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_jobs_total",
			Help:      "Total crawl jobs by terminal status",
		},
		[]string{"status"},
	)

	// DocumentVersions counts version store outcomes.
	DocumentVersions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_versions_total",
			Help:      "Total crawled pages by version outcome",
		},
		[]string{"outcome"},
	)

	// EmbedBatches counts upstream embedding calls.
	EmbedBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_batches_total",
			Help:      "Total embedding sub-batches sent upstream",
		},
		[]string{"status"},
	)

	// EmbedDuration observes one embedding sub-batch.
	EmbedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_batch_duration_seconds",
			Help:      "Duration of embedding sub-batches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RetrievalDuration observes end-to-end retrieval including query embedding.
	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of similarity retrievals in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
