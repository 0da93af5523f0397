package domain

import (
	"strings"
	"time"
)

// VendorType categorises what a vendor provides.
type VendorType string

// Known vendor types.
const (
	VendorTypePayments        VendorType = "payments"
	VendorTypeCloud           VendorType = "cloud"
	VendorTypeAnalytics       VendorType = "analytics"
	VendorTypeSecurity        VendorType = "security"
	VendorTypeCustomerSupport VendorType = "customer_support"
	VendorTypeMarketing       VendorType = "marketing"
	VendorTypeDataStorage     VendorType = "data_storage"
	VendorTypeAPIService      VendorType = "api_service"
	VendorTypeOther           VendorType = "other"
)

// IsValid returns true if the vendor type is recognised.
func (t VendorType) IsValid() bool {
	switch t {
	case VendorTypePayments, VendorTypeCloud, VendorTypeAnalytics, VendorTypeSecurity,
		VendorTypeCustomerSupport, VendorTypeMarketing, VendorTypeDataStorage,
		VendorTypeAPIService, VendorTypeOther:
		return true
	default:
		return false
	}
}

// Vendor is a monitored software vendor.
// A vendor owns its documents and crawl jobs; deleting it cascades to both.
type Vendor struct {
	// ID is the unique identifier for the vendor.
	ID string

	// Name is the display name.
	Name string

	// Domain is the registrable host, lower-case and without scheme.
	Domain string

	// Type categorises the vendor.
	Type VendorType

	// Description is free-form text.
	Description string

	// IsActive controls whether the scheduler sweep picks the vendor up.
	IsActive bool

	// IsCritical selects the shorter refresh interval.
	IsCritical bool

	// SeedURLs are the crawl starting points. When empty the crawler
	// seeds from the domain root and well-known trust paths.
	SeedURLs []string

	// BlockedURLs are URL prefixes the crawler never follows.
	BlockedURLs []string

	// DiscoveredURLs are the relevant pages found by the last successful crawl.
	DiscoveredURLs []string

	// RefreshInterval overrides the configured refresh interval when non-zero.
	RefreshInterval time.Duration

	// LastCrawledAt is when the last successful crawl completed.
	LastCrawledAt *time.Time

	// NextCrawlScheduledAt is when the scheduler should crawl again.
	// Nil means the vendor has never been scheduled and is due now.
	NextCrawlScheduledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveRefreshInterval picks the vendor override, then the critical
// interval, then the default interval.
func (v *Vendor) EffectiveRefreshInterval(cfg RefreshSettings) time.Duration {
	if v.RefreshInterval > 0 {
		return v.RefreshInterval
	}
	if v.IsCritical {
		return cfg.CriticalInterval
	}
	return cfg.DefaultInterval
}

// IsDue reports whether the vendor should be crawled at now.
func (v *Vendor) IsDue(now time.Time) bool {
	if !v.IsActive {
		return false
	}
	return v.NextCrawlScheduledAt == nil || !v.NextCrawlScheduledAt.After(now)
}

// NormaliseDomain strips scheme, path, port, a leading "www." and a trailing dot from a
// user-supplied domain and lower-cases the result.
func NormaliseDomain(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(d, ".")
	return strings.TrimPrefix(d, "www.")
}
