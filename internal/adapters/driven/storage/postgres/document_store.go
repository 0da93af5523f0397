package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

type documentStore struct {
	db *sql.DB
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, vendor_id, url, url_hash, document_type, title, raw_content,
	cleaned_content, content_hash, version, is_latest, previous_version_id,
	http_status, metadata, crawled_at, created_at`

const chunkColumns = `id, document_id, vendor_id, content, position, embedding, metadata`

// GetLatest returns the latest version of a URL for a vendor.
func (s *documentStore) GetLatest(ctx context.Context, vendorID, url string) (*domain.Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE vendor_id = $1 AND url = $2 AND is_latest
	`, vendorID, url))
}

// CommitVersion supersedes previous (if any) and inserts doc with its
// chunks in one transaction.
func (s *documentStore) CommitVersion(ctx context.Context, doc *domain.Document, previous *domain.Document, chunks []domain.Chunk) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}
	metadata, err := jsonArg(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling document metadata: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin commit", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if previous != nil {
		res, err := tx.ExecContext(ctx,
			"UPDATE documents SET is_latest = FALSE WHERE id = $1 AND is_latest", previous.ID)
		if err != nil {
			return storeErr("supersede version", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return storeErr("supersede version", fmt.Errorf("document %s is no longer the latest version", previous.ID))
		}
	}

	var previousID sql.NullString
	if doc.PreviousVersionID != nil {
		previousID = sql.NullString{String: *doc.PreviousVersionID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $12, $13, $14, $15)
	`, doc.ID, doc.VendorID, doc.URL, doc.URLHash, string(doc.Type), doc.Title, doc.RawContent,
		doc.CleanedContent, doc.ContentHash, doc.Version, previousID,
		doc.HTTPStatus, metadata, doc.CrawledAt.UTC(), doc.CreatedAt.UTC()); err != nil {
		return storeErr("insert document", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO document_chunks (`+chunkColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return storeErr("prepare chunk insert", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			chunkMeta, err := jsonArg(c.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling chunk metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, doc.VendorID, c.Content, c.Position,
				vectorArg(c.Embedding), chunkMeta); err != nil {
				return storeErr("insert chunk", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit version", err)
	}
	doc.IsLatest = true
	if previous != nil {
		previous.IsLatest = false
	}
	return nil
}

// Touch records a re-crawl that found identical content.
func (s *documentStore) Touch(ctx context.Context, documentID string, crawledAt time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE documents SET crawled_at = $1 WHERE id = $2", crawledAt.UTC(), documentID)
	if err != nil {
		return storeErr("touch document", err)
	}
	return requireAffected(res, "touch document")
}

// GetDocument retrieves a document version by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

// GetDocumentByURL returns the most recently crawled latest version for a URL.
func (s *documentStore) GetDocumentByURL(ctx context.Context, url, vendorID string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE url = $1 AND is_latest`
	args := []any{url}
	if vendorID != "" {
		query += " AND vendor_id = $2"
		args = append(args, vendorID)
	}
	query += " ORDER BY crawled_at DESC LIMIT 1"
	return scanDocument(s.db.QueryRowContext(ctx, query, args...))
}

// GetChunks retrieves all chunks for a document in position order.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = $1 ORDER BY position
	`, documentID)
	if err != nil {
		return nil, storeErr("get chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding *pgvector.Vector
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.VendorID, &c.Content, &c.Position, &embedding, &metadata); err != nil {
			return nil, storeErr("scan chunk", err)
		}
		if embedding != nil {
			c.Embedding = embedding.Slice()
		}
		if err := jsonScan(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("get chunks", err)
	}
	return chunks, nil
}

// ListLatest returns the latest version of every document of a vendor.
func (s *documentStore) ListLatest(ctx context.Context, vendorID string) ([]domain.Document, error) {
	return s.queryDocuments(ctx, "list latest", `
		SELECT `+documentColumns+` FROM documents
		WHERE vendor_id = $1 AND is_latest
		ORDER BY document_type, url
	`, vendorID)
}

// ListVersions returns the version chain for a URL, newest first.
func (s *documentStore) ListVersions(ctx context.Context, vendorID, url string) ([]domain.Document, error) {
	return s.queryDocuments(ctx, "list versions", `
		SELECT `+documentColumns+` FROM documents
		WHERE vendor_id = $1 AND url = $2
		ORDER BY version DESC
	`, vendorID, url)
}

// CountRows returns how many document versions and chunks a vendor has.
func (s *documentStore) CountRows(ctx context.Context, vendorID string) (documents, chunks int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents WHERE vendor_id = $1),
			(SELECT COUNT(*) FROM document_chunks WHERE vendor_id = $1)
	`, vendorID)
	if err := row.Scan(&documents, &chunks); err != nil {
		return 0, 0, storeErr("count rows", err)
	}
	return documents, chunks, nil
}

// SearchChunks ranks chunks of latest versions by cosine distance in the
// database. Equal distances fall back to insertion order.
func (s *documentStore) SearchChunks(ctx context.Context, vector []float32, filter domain.ChunkFilter) ([]domain.RetrievedChunk, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrInvalidInput)
	}

	args := []any{pgvector.NewVector(vector)}
	where := []string{"d.is_latest", "c.embedding IS NOT NULL"}
	if len(filter.VendorIDs) > 0 {
		args = append(args, pq.Array(filter.VendorIDs))
		where = append(where, "d.vendor_id = ANY($"+strconv.Itoa(len(args))+")")
	}
	if len(filter.DocumentTypes) > 0 {
		types := make([]string, len(filter.DocumentTypes))
		for i, t := range filter.DocumentTypes {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		where = append(where, "d.document_type = ANY($"+strconv.Itoa(len(args))+")")
	}
	query := `
		SELECT c.id, c.document_id, c.vendor_id, c.content, c.position, c.embedding, c.metadata,
			d.url, d.title, d.document_type, v.name,
			1 - (c.embedding <=> $1) AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		JOIN vendors v ON v.id = d.vendor_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.embedding <=> $1, c.seq`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin search", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, searchTuningSQL); err != nil {
		return nil, storeErr("tune search", err)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("search chunks", err)
	}
	defer rows.Close()

	var results []domain.RetrievedChunk
	for rows.Next() {
		var rc domain.RetrievedChunk
		var embedding pgvector.Vector
		var metadata []byte
		var docType string
		if err := rows.Scan(&rc.Chunk.ID, &rc.Chunk.DocumentID, &rc.Chunk.VendorID, &rc.Chunk.Content,
			&rc.Chunk.Position, &embedding, &metadata, &rc.URL, &rc.Title, &docType, &rc.VendorName,
			&rc.Similarity); err != nil {
			return nil, storeErr("scan search result", err)
		}
		if err := jsonScan(metadata, &rc.Chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
		rc.Chunk.Embedding = embedding.Slice()
		rc.DocumentID = rc.Chunk.DocumentID
		rc.VendorID = rc.Chunk.VendorID
		rc.DocumentType = domain.DocumentType(docType)
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search chunks", err)
	}
	if err := rows.Close(); err != nil {
		return nil, storeErr("search chunks", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit search", err)
	}
	return results, nil
}

func (s *documentStore) queryDocuments(ctx context.Context, op, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return docs, nil
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType string
	var previousID sql.NullString
	var metadata []byte

	if err := row.Scan(&doc.ID, &doc.VendorID, &doc.URL, &doc.URLHash, &docType, &doc.Title,
		&doc.RawContent, &doc.CleanedContent, &doc.ContentHash, &doc.Version, &doc.IsLatest,
		&previousID, &doc.HTTPStatus, &metadata, &doc.CrawledAt, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("scan document", err)
	}

	doc.Type = domain.DocumentType(docType)
	if previousID.Valid {
		doc.PreviousVersionID = &previousID.String
	}
	doc.CrawledAt = doc.CrawledAt.UTC()
	doc.CreatedAt = doc.CreatedAt.UTC()
	if err := jsonScan(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling document metadata: %w", err)
	}
	return &doc, nil
}
