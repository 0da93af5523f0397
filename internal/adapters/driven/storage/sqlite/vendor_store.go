package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

// vendorStore implements driven.VendorStore.
type vendorStore struct {
	store *Store
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

	seeds, err := marshalJSON(v.SeedURLs, "[]")
	if err != nil {
		return fmt.Errorf("marshalling seed urls: %w", err)
	}
	blocked, err := marshalJSON(v.BlockedURLs, "[]")
	if err != nil {
		return fmt.Errorf("marshalling blocked urls: %w", err)
	}
	discovered, err := marshalJSON(v.DiscoveredURLs, "[]")
	if err != nil {
		return fmt.Errorf("marshalling discovered urls: %w", err)
	}

	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO vendors (`+vendorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			domain = excluded.domain,
			vendor_type = excluded.vendor_type,
			description = excluded.description,
			is_active = excluded.is_active,
			is_critical = excluded.is_critical,
			seed_urls = excluded.seed_urls,
			blocked_urls = excluded.blocked_urls,
			discovered_urls = excluded.discovered_urls,
			refresh_interval_seconds = excluded.refresh_interval_seconds,
			last_crawled_at = excluded.last_crawled_at,
			next_crawl_scheduled_at = excluded.next_crawl_scheduled_at,
			updated_at = excluded.updated_at
	`, v.ID, v.Name, v.Domain, string(v.Type), v.Description,
		boolToInt(v.IsActive), boolToInt(v.IsCritical),
		seeds, blocked, discovered, int64(v.RefreshInterval.Seconds()),
		formatNullableTimePtr(v.LastCrawledAt), formatNullableTimePtr(v.NextCrawlScheduledAt),
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt))
	if isUniqueViolation(err, "vendors.domain") {
		return fmt.Errorf("vendor domain %s: %w", v.Domain, domain.ErrAlreadyExists)
	}
	return storeErr("save vendor", err)
}

// GetVendor retrieves a vendor by ID.
func (s *vendorStore) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id)
	return scanVendor(row)
}

// GetVendorByDomain retrieves a vendor by its normalised domain.
func (s *vendorStore) GetVendorByDomain(ctx context.Context, domainName string) (*domain.Vendor, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE domain = ?`, domainName)
	return scanVendor(row)
}

// ListVendors returns all vendors ordered by name.
func (s *vendorStore) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	return s.query(ctx, "list vendors", `SELECT `+vendorColumns+` FROM vendors ORDER BY name, domain`)
}

// ListDueVendors returns active vendors that were never scheduled or whose
// next crawl is due, never-scheduled vendors first.
func (s *vendorStore) ListDueVendors(ctx context.Context, now time.Time) ([]domain.Vendor, error) {
	return s.query(ctx, "list due vendors", `
		SELECT `+vendorColumns+` FROM vendors
		WHERE is_active = 1
		  AND (next_crawl_scheduled_at IS NULL OR next_crawl_scheduled_at <= ?)
		ORDER BY next_crawl_scheduled_at IS NOT NULL, next_crawl_scheduled_at, name
	`, formatTime(now))
}

// RecordCrawl stores the outcome of a successful crawl.
func (s *vendorStore) RecordCrawl(ctx context.Context, vendorID string, crawledAt, nextCrawl time.Time, discovered []string) error {
	discoveredJSON, err := marshalJSON(discovered, "[]")
	if err != nil {
		return fmt.Errorf("marshalling discovered urls: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE vendors
		SET last_crawled_at = ?, next_crawl_scheduled_at = ?, discovered_urls = ?, updated_at = ?
		WHERE id = ?
	`, formatTime(crawledAt), formatTime(nextCrawl), discoveredJSON, formatTime(time.Now()), vendorID)
	if err != nil {
		return storeErr("record crawl", err)
	}
	return requireAffected(res, "record crawl")
}

// DeleteVendor removes a vendor; documents, chunks and jobs cascade.
func (s *vendorStore) DeleteVendor(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM vendors WHERE id = ?", id)
	if err != nil {
		return storeErr("delete vendor", err)
	}
	return requireAffected(res, "delete vendor")
}

func (s *vendorStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Vendor, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var vendors []domain.Vendor //nolint:prealloc // size unknown from query
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
	var vendorType, seeds, blocked, discovered, createdAt, updatedAt string
	var isActive, isCritical int
	var refreshSeconds int64
	var lastCrawled, nextCrawl sql.NullString

	if err := row.Scan(&v.ID, &v.Name, &v.Domain, &vendorType, &v.Description,
		&isActive, &isCritical, &seeds, &blocked, &discovered, &refreshSeconds,
		&lastCrawled, &nextCrawl, &createdAt, &updatedAt); err != nil {
		return nil, notFoundOr("scan vendor", err)
	}

	v.Type = domain.VendorType(vendorType)
	v.IsActive = isActive == 1
	v.IsCritical = isCritical == 1
	v.RefreshInterval = time.Duration(refreshSeconds) * time.Second
	v.LastCrawledAt = parseNullableTimePtr(lastCrawled)
	v.NextCrawlScheduledAt = parseNullableTimePtr(nextCrawl)
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)

	if err := unmarshalJSON(seeds, &v.SeedURLs); err != nil {
		return nil, fmt.Errorf("unmarshalling seed urls: %w", err)
	}
	if err := unmarshalJSON(blocked, &v.BlockedURLs); err != nil {
		return nil, fmt.Errorf("unmarshalling blocked urls: %w", err)
	}
	if err := unmarshalJSON(discovered, &v.DiscoveredURLs); err != nil {
		return nil, fmt.Errorf("unmarshalling discovered urls: %w", err)
	}

	return &v, nil
}

// requireAffected returns domain.ErrNotFound when an update or delete
// matched no row.
func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
