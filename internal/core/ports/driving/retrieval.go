package driving

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// RetrievalService answers questions with ranked, deduplicated evidence.
type RetrievalService interface {
	// Retrieve ranks latest-version chunks by similarity to the query.
	Retrieve(ctx context.Context, query domain.RetrieveQuery) ([]domain.RetrievedChunk, error)

	// Citations returns at most one citation per source page.
	Citations(ctx context.Context, query domain.RetrieveQuery) ([]domain.Citation, error)

	// BuildContext renders retrieved chunks as numbered source blocks for a
	// language model prompt.
	BuildContext(ctx context.Context, query domain.RetrieveQuery) (string, error)

	// VendorContext summarises a vendor and its latest documents.
	VendorContext(ctx context.Context, vendorID string) (*domain.VendorContext, error)
}
