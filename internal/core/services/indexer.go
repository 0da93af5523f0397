package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/metrics"
)

const (
	defaultEmbedBatchSize   = 2048
	defaultEmbedConcurrency = 2
)

// Indexer attaches embeddings to chunks. Sub-batches run in parallel and
// each writes to its own slice window, so output order equals input order.
type Indexer struct {
	embedder    driven.EmbeddingService
	batchSize   int
	concurrency int
	dimensions  int
}

// NewIndexer creates an indexer. A nil embedder makes every call fail
// with domain.ErrEmbeddingUnavailable. Dimensions of zero accept any
// vector size as long as all vectors agree.
func NewIndexer(embedder driven.EmbeddingService, cfg domain.EmbeddingSettings) *Indexer {
	idx := &Indexer{
		embedder:    embedder,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		dimensions:  cfg.Dimensions,
	}
	if idx.batchSize <= 0 {
		idx.batchSize = defaultEmbedBatchSize
	}
	if idx.concurrency <= 0 {
		idx.concurrency = defaultEmbedConcurrency
	}
	if idx.dimensions <= 0 && embedder != nil {
		idx.dimensions = embedder.Dimensions()
	}
	return idx
}

// Available reports whether an embedding service is configured.
func (i *Indexer) Available() bool {
	return i != nil && i.embedder != nil
}

// EmbedChunks fills chunk.Embedding for every chunk. On error no chunk is
// modified.
func (i *Indexer) EmbedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if !i.Available() {
		return domain.ErrEmbeddingUnavailable
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for j := range chunks {
		texts[j] = chunks[j].Content
	}

	vectors, err := i.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	for j := range chunks {
		chunks[j].Embedding = vectors[j]
	}
	return nil
}

// EmbedTexts embeds texts in order.
func (i *Indexer) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if !i.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for start := 0; start < len(texts); start += i.batchSize {
		end := min(start+i.batchSize, len(texts))
		batch := texts[start:end]
		slot := vectors[start:end]

		g.Go(func() error {
			began := time.Now()
			out, err := i.embedder.EmbedBatch(gctx, batch)
			metrics.EmbedDuration.Observe(time.Since(began).Seconds())
			if err != nil {
				metrics.EmbedBatches.WithLabelValues("error").Inc()
				return asEmbeddingError("batch", err)
			}
			if len(out) != len(batch) {
				metrics.EmbedBatches.WithLabelValues("error").Inc()
				return &domain.EmbeddingServiceError{
					Op:  "batch",
					Err: fmt.Errorf("got %d vectors for %d texts", len(out), len(batch)),
				}
			}
			metrics.EmbedBatches.WithLabelValues("ok").Inc()
			copy(slot, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	want := i.dimensions
	for j, v := range vectors {
		if want == 0 {
			want = len(v)
		}
		if len(v) == 0 || len(v) != want {
			return nil, &domain.EmbeddingServiceError{
				Op:  "batch",
				Err: fmt.Errorf("vector %d has dimension %d, want %d", j, len(v), want),
			}
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single retrieval query.
func (i *Indexer) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := i.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// asEmbeddingError keeps provider errors typed so callers can tell them
// apart from page-level failures.
func asEmbeddingError(op string, err error) error {
	var embedErr *domain.EmbeddingServiceError
	if errors.As(err, &embedErr) || errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.EmbeddingServiceError{Op: op, Err: err}
}
