package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

type vendorStore struct {
	db *sql.DB
}

var _ driven.VendorStore = (*vendorStore)(nil)

const vendorColumns = `id, name, domain, vendor_type, description, is_active, is_critical,
	seed_urls, blocked_urls, discovered_urls, refresh_interval_seconds,
	last_crawled_at, next_crawl_scheduled_at, created_at, updated_at`

// SaveVendor inserts or updates a vendor.
func (s *vendorStore) SaveVendor(ctx context.Context, v *domain.Vendor) error {
	if v == nil || v.ID == "" || v.Domain == "" {
		return domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (`+vendorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			domain = EXCLUDED.domain,
			vendor_type = EXCLUDED.vendor_type,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			is_critical = EXCLUDED.is_critical,
			seed_urls = EXCLUDED.seed_urls,
			blocked_urls = EXCLUDED.blocked_urls,
			discovered_urls = EXCLUDED.discovered_urls,
			refresh_interval_seconds = EXCLUDED.refresh_interval_seconds,
			last_crawled_at = EXCLUDED.last_crawled_at,
			next_crawl_scheduled_at = EXCLUDED.next_crawl_scheduled_at,
			updated_at = EXCLUDED.updated_at
	`, v.ID, v.Name, v.Domain, string(v.Type), v.Description, v.IsActive, v.IsCritical,
		pq.Array(nonNil(v.SeedURLs)), pq.Array(nonNil(v.BlockedURLs)), pq.Array(nonNil(v.DiscoveredURLs)),
		int64(v.RefreshInterval.Seconds()), nullTime(v.LastCrawledAt), nullTime(v.NextCrawlScheduledAt),
		v.CreatedAt, v.UpdatedAt)
	if isUniqueViolation(err, "vendors_domain_key") {
		return fmt.Errorf("vendor domain %s: %w", v.Domain, domain.ErrAlreadyExists)
	}
	return storeErr("save vendor", err)
}

// GetVendor retrieves a vendor by ID.
func (s *vendorStore) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	return scanVendor(s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
}

// GetVendorByDomain retrieves a vendor by its normalised domain.
func (s *vendorStore) GetVendorByDomain(ctx context.Context, domainName string) (*domain.Vendor, error) {
	return scanVendor(s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE domain = $1`, domainName))
}

// ListVendors returns all vendors ordered by name.
func (s *vendorStore) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	return s.query(ctx, "list vendors", `SELECT `+vendorColumns+` FROM vendors ORDER BY name, domain`)
}

// ListDueVendors returns active vendors that are due, never-scheduled first.
func (s *vendorStore) ListDueVendors(ctx context.Context, now time.Time) ([]domain.Vendor, error) {
	return s.query(ctx, "list due vendors", `
		SELECT `+vendorColumns+` FROM vendors
		WHERE is_active
		  AND (next_crawl_scheduled_at IS NULL OR next_crawl_scheduled_at <= $1)
		ORDER BY next_crawl_scheduled_at NULLS FIRST, name
	`, now.UTC())
}

// RecordCrawl stores the outcome of a successful crawl.
func (s *vendorStore) RecordCrawl(ctx context.Context, vendorID string, crawledAt, nextCrawl time.Time, discovered []string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vendors
		SET last_crawled_at = $1, next_crawl_scheduled_at = $2, discovered_urls = $3, updated_at = $4
		WHERE id = $5
	`, crawledAt.UTC(), nextCrawl.UTC(), pq.Array(nonNil(discovered)), time.Now().UTC(), vendorID)
	if err != nil {
		return storeErr("record crawl", err)
	}
	return requireAffected(res, "record crawl")
}

// DeleteVendor removes a vendor; documents, chunks and jobs cascade.
func (s *vendorStore) DeleteVendor(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM vendors WHERE id = $1", id)
	if err != nil {
		return storeErr("delete vendor", err)
	}
	return requireAffected(res, "delete vendor")
}

func (s *vendorStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var vendors []domain.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return vendors, nil
}

func scanVendor(row rowScanner) (*domain.Vendor, error) {
	var v domain.Vendor
	var vendorType string
	var refreshSeconds int64
	var lastCrawled, nextCrawl sql.NullTime

	if err := row.Scan(&v.ID, &v.Name, &v.Domain, &vendorType, &v.Description,
		&v.IsActive, &v.IsCritical,
		pq.Array(&v.SeedURLs), pq.Array(&v.BlockedURLs), pq.Array(&v.DiscoveredURLs),
		&refreshSeconds, &lastCrawled, &nextCrawl, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, notFoundOr("scan vendor", err)
	}

	v.Type = domain.VendorType(vendorType)
	v.RefreshInterval = time.Duration(refreshSeconds) * time.Second
	v.LastCrawledAt = timePtr(lastCrawled)
	v.NextCrawlScheduledAt = timePtr(nextCrawl)
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
