package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// VendorStore persists vendors and their crawl state.
type VendorStore interface {
	// SaveVendor inserts or updates a vendor.
	// Returns domain.ErrAlreadyExists when another vendor owns the domain.
	SaveVendor(ctx context.Context, vendor *domain.Vendor) error

	// GetVendor returns domain.ErrNotFound if the vendor does not exist.
	GetVendor(ctx context.Context, id string) (*domain.Vendor, error)

	// GetVendorByDomain returns domain.ErrNotFound if no vendor owns the domain.
	GetVendorByDomain(ctx context.Context, domainName string) (*domain.Vendor, error)

	// ListVendors returns all vendors ordered by name.
	ListVendors(ctx context.Context) ([]domain.Vendor, error)

	// ListDueVendors returns active vendors whose next crawl is at or
	// before now, or has never been scheduled.
	ListDueVendors(ctx context.Context, now time.Time) ([]domain.Vendor, error)

	// RecordCrawl stores the outcome of a successful crawl.
	RecordCrawl(ctx context.Context, vendorID string, crawledAt, nextCrawl time.Time, discovered []string) error

	// DeleteVendor removes a vendor and cascades to its documents, chunks and jobs.
	DeleteVendor(ctx context.Context, id string) error
}
