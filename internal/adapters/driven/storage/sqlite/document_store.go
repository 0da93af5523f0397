package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, vendor_id, url, url_hash, document_type, title, raw_content,
	cleaned_content, content_hash, version, is_latest, previous_version_id,
	http_status, metadata, crawled_at, created_at`

const chunkColumns = `id, document_id, vendor_id, content, position, embedding, metadata`

// GetLatest returns the latest version stored for a URL.
func (s *documentStore) GetLatest(ctx context.Context, vendorID, url string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE vendor_id = ? AND url = ? AND is_latest = 1
	`, vendorID, url)
	return scanDocument(row)
}

// CommitVersion supersedes previous and inserts doc with its chunks in
// one transaction.
func (s *documentStore) CommitVersion(ctx context.Context, doc *domain.Document, previous *domain.Document, chunks []domain.Chunk) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}

	metadata, err := marshalJSON(doc.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("marshalling document metadata: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin commit", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if previous != nil {
		res, err := tx.ExecContext(ctx,
			"UPDATE documents SET is_latest = 0 WHERE id = ? AND is_latest = 1", previous.ID)
		if err != nil {
			return storeErr("supersede version", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return storeErr("supersede version", fmt.Errorf("document %s is no longer the latest version", previous.ID))
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
	`, doc.ID, doc.VendorID, doc.URL, doc.URLHash, string(doc.Type), doc.Title, doc.RawContent,
		doc.CleanedContent, doc.ContentHash, doc.Version, doc.PreviousVersionID,
		doc.HTTPStatus, metadata, formatTime(doc.CrawledAt), formatTime(doc.CreatedAt))
	if err != nil {
		return storeErr("insert document", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO document_chunks (`+chunkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return storeErr("prepare chunk insert", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			chunkMeta, err := marshalJSON(c.Metadata, "{}")
			if err != nil {
				return fmt.Errorf("marshalling chunk metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, doc.VendorID, c.Content, c.Position,
				float32SliceToBytes(c.Embedding), chunkMeta); err != nil {
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
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE documents SET crawled_at = ? WHERE id = ?", formatTime(crawledAt), documentID)
	if err != nil {
		return storeErr("touch document", err)
	}
	return requireAffected(res, "touch document")
}

// GetDocument retrieves a document version by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetDocumentByURL returns the most recently crawled latest version for a URL.
func (s *documentStore) GetDocumentByURL(ctx context.Context, url, vendorID string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE url = ? AND is_latest = 1`
	args := []any{url}
	if vendorID != "" {
		query += " AND vendor_id = ?"
		args = append(args, vendorID)
	}
	query += " ORDER BY crawled_at DESC LIMIT 1"
	return scanDocument(s.store.db.QueryRowContext(ctx, query, args...))
}

// GetChunks retrieves all chunks for a document in position order.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = ? ORDER BY position
	`, documentID)
	if err != nil {
		return nil, storeErr("get chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
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
		WHERE vendor_id = ? AND is_latest = 1
		ORDER BY document_type, url
	`, vendorID)
}

// ListVersions returns the version chain for a URL, newest first.
func (s *documentStore) ListVersions(ctx context.Context, vendorID, url string) ([]domain.Document, error) {
	return s.queryDocuments(ctx, "list versions", `
		SELECT `+documentColumns+` FROM documents
		WHERE vendor_id = ? AND url = ?
		ORDER BY version DESC
	`, vendorID, url)
}

// CountRows returns how many document versions and chunks a vendor has.
func (s *documentStore) CountRows(ctx context.Context, vendorID string) (documents, chunks int, err error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents WHERE vendor_id = ?),
			(SELECT COUNT(*) FROM document_chunks WHERE vendor_id = ?)
	`, vendorID, vendorID)
	if err := row.Scan(&documents, &chunks); err != nil {
		return 0, 0, storeErr("count rows", err)
	}
	return documents, chunks, nil
}

// SearchChunks scores every embedded chunk of the latest versions in
// scope by cosine similarity. Rows are read in seq order and sorted
// stably, so equal scores keep insertion order.
func (s *documentStore) SearchChunks(ctx context.Context, vector []float32, filter domain.ChunkFilter) ([]domain.RetrievedChunk, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrInvalidInput)
	}

	var where []string
	var args []any
	where = append(where, "d.is_latest = 1", "c.embedding IS NOT NULL")
	if len(filter.VendorIDs) > 0 {
		where = append(where, "d.vendor_id IN ("+placeholders(len(filter.VendorIDs))+")")
		for _, id := range filter.VendorIDs {
			args = append(args, id)
		}
	}
	if len(filter.DocumentTypes) > 0 {
		where = append(where, "d.document_type IN ("+placeholders(len(filter.DocumentTypes))+")")
		for _, t := range filter.DocumentTypes {
			args = append(args, string(t))
		}
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.vendor_id, c.content, c.position, c.embedding, c.metadata,
			d.url, d.title, d.document_type, v.name
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		JOIN vendors v ON v.id = d.vendor_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY c.seq
	`, args...)
	if err != nil {
		return nil, storeErr("search chunks", err)
	}
	defer rows.Close()

	queryNorm := norm(vector)
	var results []domain.RetrievedChunk
	for rows.Next() {
		var rc domain.RetrievedChunk
		var embedding []byte
		var metadata, docType string
		if err := rows.Scan(&rc.Chunk.ID, &rc.Chunk.DocumentID, &rc.Chunk.VendorID, &rc.Chunk.Content,
			&rc.Chunk.Position, &embedding, &metadata, &rc.URL, &rc.Title, &docType, &rc.VendorName); err != nil {
			return nil, storeErr("scan search result", err)
		}
		vec := bytesToFloat32Slice(embedding)
		if len(vec) != len(vector) {
			continue
		}
		if err := unmarshalJSON(metadata, &rc.Chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
		rc.Chunk.Embedding = vec
		rc.DocumentID = rc.Chunk.DocumentID
		rc.VendorID = rc.Chunk.VendorID
		rc.DocumentType = domain.DocumentType(docType)
		rc.Similarity = cosineSimilarity(vector, vec, queryNorm)
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search chunks", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

func (s *documentStore) queryDocuments(ctx context.Context, op, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
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
	var docType, metadata, crawledAt, createdAt string
	var isLatest int
	var previousID sql.NullString

	if err := row.Scan(&doc.ID, &doc.VendorID, &doc.URL, &doc.URLHash, &docType, &doc.Title,
		&doc.RawContent, &doc.CleanedContent, &doc.ContentHash, &doc.Version, &isLatest,
		&previousID, &doc.HTTPStatus, &metadata, &crawledAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("scan document", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.IsLatest = isLatest == 1
	if previousID.Valid {
		doc.PreviousVersionID = &previousID.String
	}
	doc.CrawledAt = parseTime(crawledAt)
	doc.CreatedAt = parseTime(createdAt)
	if err := unmarshalJSON(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling document metadata: %w", err)
	}
	return &doc, nil
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var embedding []byte
	var metadata string

	if err := row.Scan(&c.ID, &c.DocumentID, &c.VendorID, &c.Content, &c.Position, &embedding, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("scan chunk", err)
	}
	c.Embedding = bytesToFloat32Slice(embedding)
	if err := unmarshalJSON(metadata, &c.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
	}
	return &c, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineSimilarity returns 1 - cosine distance. Zero vectors score 0.
func cosineSimilarity(query, v []float32, queryNorm float64) float64 {
	vNorm := norm(v)
	if queryNorm == 0 || vNorm == 0 {
		return 0
	}
	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(v[i])
	}
	return dot / (queryNorm * vNorm)
}
