package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// DocumentStore persists versioned documents and their chunks.
//
// For every (vendor, url) exactly one document version is latest. The
// store enforces this with a uniqueness guarantee and only changes it
// through CommitVersion.
type DocumentStore interface {
	// GetLatest returns the latest version for a URL.
	// Returns domain.ErrNotFound if the URL has never been stored.
	GetLatest(ctx context.Context, vendorID, url string) (*domain.Document, error)

	// CommitVersion atomically supersedes previous (if non-nil), inserts doc
	// as the latest version and inserts its chunks. Nothing is written if
	// any step fails. Failures are *domain.StoreError.
	CommitVersion(ctx context.Context, doc *domain.Document, previous *domain.Document, chunks []domain.Chunk) error

	// Touch updates only the crawled-at timestamp of an unchanged version.
	Touch(ctx context.Context, documentID string, crawledAt time.Time) error

	// GetDocument retrieves a document version by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByURL returns the latest version for a URL across vendors,
	// or scoped to vendorID when it is non-empty.
	GetDocumentByURL(ctx context.Context, url, vendorID string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document version in position order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListLatest returns the latest version of every document of a vendor.
	ListLatest(ctx context.Context, vendorID string) ([]domain.Document, error)

	// ListVersions returns the version chain for a URL, newest first.
	ListVersions(ctx context.Context, vendorID, url string) ([]domain.Document, error)

	// CountRows returns the number of document rows (all versions) and chunk
	// rows for a vendor.
	CountRows(ctx context.Context, vendorID string) (documents, chunks int, err error)

	// SearchChunks ranks chunks of latest versions by similarity to vector,
	// descending, breaking ties by insertion order.
	SearchChunks(ctx context.Context, vector []float32, filter domain.ChunkFilter) ([]domain.RetrievedChunk, error)
}
