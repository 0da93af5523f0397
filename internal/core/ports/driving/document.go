package driving

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// DocumentService exposes stored trust pages and their history.
type DocumentService interface {
	// ListLatest returns the latest version of every document of a vendor.
	ListLatest(ctx context.Context, vendorID string) ([]domain.Document, error)

	// Get retrieves a document version by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetByURL returns the latest version for a URL, optionally scoped to a vendor.
	GetByURL(ctx context.Context, url, vendorID string) (*domain.Document, error)

	// History returns every version of a URL, newest first.
	History(ctx context.Context, vendorID, url string) ([]domain.Document, error)
}
