package mcp

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	chunks    []domain.RetrievedChunk
	citations []domain.Citation
	context   *domain.VendorContext
	err       error

	lastQuery    domain.RetrieveQuery
	lastVendorID string
}

func (m *mockRetrievalService) Retrieve(_ context.Context, q domain.RetrieveQuery) ([]domain.RetrievedChunk, error) {
	m.lastQuery = q
	return m.chunks, m.err
}

func (m *mockRetrievalService) Citations(_ context.Context, q domain.RetrieveQuery) ([]domain.Citation, error) {
	m.lastQuery = q
	return m.citations, m.err
}

func (m *mockRetrievalService) BuildContext(_ context.Context, q domain.RetrieveQuery) (string, error) {
	m.lastQuery = q
	return "", m.err
}

func (m *mockRetrievalService) VendorContext(_ context.Context, vendorID string) (*domain.VendorContext, error) {
	m.lastVendorID = vendorID
	return m.context, m.err
}

// mockVendorService is a mock implementation of driving.VendorService.
// Resolve matches on ID or domain.
type mockVendorService struct {
	vendors []domain.Vendor
	err     error
}

func (m *mockVendorService) Add(_ context.Context, _ *domain.Vendor) error { return m.err }

func (m *mockVendorService) Get(ctx context.Context, id string) (*domain.Vendor, error) {
	return m.Resolve(ctx, id)
}

func (m *mockVendorService) Resolve(_ context.Context, ref string) (*domain.Vendor, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.vendors {
		if m.vendors[i].ID == ref || m.vendors[i].Domain == ref {
			v := m.vendors[i]
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockVendorService) List(_ context.Context) ([]domain.Vendor, error) {
	return m.vendors, m.err
}

func (m *mockVendorService) Update(_ context.Context, _ *domain.Vendor) error { return m.err }

func (m *mockVendorService) SetActive(_ context.Context, _ string, _ bool) error { return m.err }

func (m *mockVendorService) Remove(_ context.Context, _ string) error { return m.err }

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) ListLatest(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetByURL(_ context.Context, _, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) History(_ context.Context, _, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}
