package services

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes stored trust pages and their version history.
type DocumentService struct {
	docStore driven.DocumentStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore) *DocumentService {
	return &DocumentService{docStore: docStore}
}

// ListLatest returns the latest version of every document of a vendor.
func (s *DocumentService) ListLatest(ctx context.Context, vendorID string) ([]domain.Document, error) {
	if vendorID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.docStore.ListLatest(ctx, vendorID)
}

// Get retrieves a document version by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// GetByURL returns the latest version for a URL, optionally scoped to a vendor.
func (s *DocumentService) GetByURL(ctx context.Context, url, vendorID string) (*domain.Document, error) {
	return s.docStore.GetDocumentByURL(ctx, url, vendorID)
}

// History returns every version of a URL, newest first.
func (s *DocumentService) History(ctx context.Context, vendorID, url string) ([]domain.Document, error) {
	versions, err := s.docStore.ListVersions(ctx, vendorID, url)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	return versions, nil
}
