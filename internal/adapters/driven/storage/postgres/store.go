package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store is a PostgreSQL database that hands out the individual store ports.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and ensures the schema exists with embedding
// columns of the given dimension.
func Open(ctx context.Context, dsn string, dims int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := NewStore(db)
	if err := s.EnsureSchema(ctx, dims); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the pgvector extension and all tables if missing.
func (s *Store) EnsureSchema(ctx context.Context, dims int) error {
	if _, err := s.db.ExecContext(ctx, schemaFor(dims)); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// VendorStore returns the vendor store backed by this database.
func (s *Store) VendorStore() driven.VendorStore {
	return &vendorStore{db: s.db}
}

// DocumentStore returns the document store backed by this database.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{db: s.db}
}

// CrawlJobStore returns the crawl job store backed by this database.
func (s *Store) CrawlJobStore() driven.CrawlJobStore {
	return &crawlJobStore{db: s.db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.StoreError{Op: op, Err: err}
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return storeErr(op, err)
}

// isUniqueViolation reports whether err violates the named constraint or index.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// vectorArg returns nil for an empty embedding so the column stays NULL.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func jsonArg(v map[string]any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func jsonScan(b []byte, v *map[string]any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
