package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driving"
	"github.com/custodia-labs/vendorscope/internal/metrics"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

const (
	excerptRunes    = 200
	noContextResult = "No relevant information found in vendor documents."
)

// Retriever ranks stored chunks against a query.
type Retriever struct {
	docs    driven.DocumentStore
	vendors driven.VendorStore
	indexer *Indexer
	topK    int
}

// NewRetriever creates a retriever. Queries with TopK <= 0 use cfg.TopK.
func NewRetriever(docs driven.DocumentStore, vendors driven.VendorStore, indexer *Indexer, cfg domain.RetrievalSettings) *Retriever {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{docs: docs, vendors: vendors, indexer: indexer, topK: topK}
}

// Retrieve embeds the query and returns the most similar chunks of the
// latest document versions, best first.
func (r *Retriever) Retrieve(ctx context.Context, query domain.RetrieveQuery) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query.Query) == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}
	if len(query.VendorIDs) == 0 {
		return nil, fmt.Errorf("no vendors in scope: %w", domain.ErrInvalidInput)
	}
	for _, t := range query.DocumentTypes {
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown document type %q: %w", t, domain.ErrInvalidInput)
		}
	}
	if !r.indexer.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	vector, err := r.indexer.EmbedQuery(ctx, query.Query)
	if err != nil {
		return nil, err
	}

	topK := query.TopK
	if topK <= 0 {
		topK = r.topK
	}
	return r.docs.SearchChunks(ctx, vector, domain.ChunkFilter{
		VendorIDs:     query.VendorIDs,
		DocumentTypes: query.DocumentTypes,
		Limit:         topK,
	})
}

// Citations returns one citation per (vendor, url), keeping the first and
// therefore most similar chunk of each page.
func (r *Retriever) Citations(ctx context.Context, query domain.RetrieveQuery) ([]domain.Citation, error) {
	chunks, err := r.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	return Dedupe(chunks), nil
}

// Dedupe collapses ranked chunks into citations, preserving rank order.
func Dedupe(chunks []domain.RetrievedChunk) []domain.Citation {
	type key struct{ vendorID, url string }
	seen := make(map[key]struct{}, len(chunks))
	citations := make([]domain.Citation, 0, len(chunks))

	for _, c := range chunks {
		k := key{c.VendorID, c.URL}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		citations = append(citations, domain.Citation{
			VendorID:     c.VendorID,
			VendorName:   c.VendorName,
			URL:          c.URL,
			Title:        c.Title,
			DocumentType: c.DocumentType,
			Excerpt:      excerpt(c.Chunk.Content),
			Similarity:   c.Similarity,
		})
	}
	return citations
}

// BuildContext renders retrieved chunks as numbered source blocks.
func (r *Retriever) BuildContext(ctx context.Context, query domain.RetrieveQuery) (string, error) {
	chunks, err := r.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatContext(chunks), nil
}

// FormatContext renders chunks as "[Source n]" blocks joined by "\n---\n".
func FormatContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return noContextResult
	}
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("[Source %d]\nVendor: %s\nDocument: %s\nURL: %s\nType: %s\nContent:\n%s\n",
			i+1, c.VendorName, title, c.URL, c.DocumentType, c.Chunk.Content))
	}
	return strings.Join(parts, "\n---\n")
}

// VendorContext summarises a vendor and its latest documents.
func (r *Retriever) VendorContext(ctx context.Context, vendorID string) (*domain.VendorContext, error) {
	v, err := r.vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.ListLatest(ctx, v.ID)
	if err != nil {
		return nil, err
	}

	vc := &domain.VendorContext{
		Name:           v.Name,
		Domain:         v.Domain,
		Type:           v.Type,
		IsCritical:     v.IsCritical,
		LastCrawledAt:  "Never",
		DocumentCounts: make(map[domain.DocumentType]int),
	}
	if v.LastCrawledAt != nil {
		vc.LastCrawledAt = v.LastCrawledAt.UTC().Format(time.RFC3339)
	}
	for _, d := range docs {
		vc.DocumentCounts[d.Type]++
	}
	return vc, nil
}

// excerpt truncates on a rune boundary and marks the cut.
func excerpt(s string) string {
	n := 0
	for i := range s {
		if n == excerptRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
