package driving

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// VendorService manages monitored vendors.
type VendorService interface {
	// Add validates and stores a new vendor, assigning its ID.
	Add(ctx context.Context, vendor *domain.Vendor) error

	// Get retrieves a vendor by ID.
	Get(ctx context.Context, id string) (*domain.Vendor, error)

	// Resolve finds a vendor by ID or by domain.
	Resolve(ctx context.Context, idOrDomain string) (*domain.Vendor, error)

	// List returns all vendors.
	List(ctx context.Context) ([]domain.Vendor, error)

	// Update stores changed vendor fields.
	Update(ctx context.Context, vendor *domain.Vendor) error

	// SetActive enables or disables scheduled crawling.
	SetActive(ctx context.Context, id string, active bool) error

	// Remove deletes a vendor with all its documents and jobs.
	Remove(ctx context.Context, id string) error
}
