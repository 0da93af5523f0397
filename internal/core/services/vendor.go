package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driving"
)

// Ensure VendorService implements the interface.
var _ driving.VendorService = (*VendorService)(nil)

// VendorService manages monitored vendors.
type VendorService struct {
	store driven.VendorStore
	now   func() time.Time
}

// NewVendorService creates a new vendor service.
func NewVendorService(store driven.VendorStore) *VendorService {
	return &VendorService{store: store, now: time.Now}
}

// Add validates and stores a new vendor, assigning its ID.
func (s *VendorService) Add(ctx context.Context, vendor *domain.Vendor) error {
	if vendor == nil {
		return domain.ErrInvalidInput
	}
	if err := normaliseVendor(vendor); err != nil {
		return err
	}

	if _, err := s.store.GetVendorByDomain(ctx, vendor.Domain); err == nil {
		return fmt.Errorf("vendor with domain %s: %w", vendor.Domain, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	now := s.now().UTC()
	vendor.ID = uuid.New().String()
	vendor.CreatedAt = now
	vendor.UpdatedAt = now
	return s.store.SaveVendor(ctx, vendor)
}

// Get retrieves a vendor by ID.
func (s *VendorService) Get(ctx context.Context, id string) (*domain.Vendor, error) {
	return s.store.GetVendor(ctx, id)
}

// Resolve finds a vendor by ID, falling back to its domain.
func (s *VendorService) Resolve(ctx context.Context, idOrDomain string) (*domain.Vendor, error) {
	v, err := s.store.GetVendor(ctx, idOrDomain)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return v, err
	}
	d := domain.NormaliseDomain(idOrDomain)
	if d == "" {
		return nil, domain.ErrNotFound
	}
	return s.store.GetVendorByDomain(ctx, d)
}

// List returns all vendors.
func (s *VendorService) List(ctx context.Context) ([]domain.Vendor, error) {
	return s.store.ListVendors(ctx)
}

// Update stores changed vendor fields.
func (s *VendorService) Update(ctx context.Context, vendor *domain.Vendor) error {
	if vendor == nil || vendor.ID == "" {
		return domain.ErrInvalidInput
	}
	existing, err := s.store.GetVendor(ctx, vendor.ID)
	if err != nil {
		return err
	}
	if err := normaliseVendor(vendor); err != nil {
		return err
	}
	vendor.CreatedAt = existing.CreatedAt
	vendor.UpdatedAt = s.now().UTC()
	return s.store.SaveVendor(ctx, vendor)
}

// SetActive enables or disables scheduled crawling.
func (s *VendorService) SetActive(ctx context.Context, id string, active bool) error {
	v, err := s.store.GetVendor(ctx, id)
	if err != nil {
		return err
	}
	if v.IsActive == active {
		return nil
	}
	v.IsActive = active
	v.UpdatedAt = s.now().UTC()
	return s.store.SaveVendor(ctx, v)
}

// Remove deletes a vendor with all its documents and jobs.
func (s *VendorService) Remove(ctx context.Context, id string) error {
	return s.store.DeleteVendor(ctx, id)
}

// normaliseVendor cleans user input in place and rejects what cannot be crawled.
func normaliseVendor(v *domain.Vendor) error {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return fmt.Errorf("vendor name is required: %w", domain.ErrInvalidInput)
	}
	v.Domain = domain.NormaliseDomain(v.Domain)
	if v.Domain == "" || !strings.Contains(v.Domain, ".") || strings.ContainsAny(v.Domain, " \t") {
		return fmt.Errorf("invalid vendor domain %q: %w", v.Domain, domain.ErrInvalidInput)
	}
	if v.Type == "" {
		v.Type = domain.VendorTypeOther
	}
	if !v.Type.IsValid() {
		return fmt.Errorf("unknown vendor type %q: %w", v.Type, domain.ErrInvalidInput)
	}
	if v.RefreshInterval < 0 {
		return fmt.Errorf("negative refresh interval: %w", domain.ErrInvalidInput)
	}
	return nil
}
