package postgres

import "fmt"

// schemaSQL creates every table idempotently. %s is the embedding column
// type, e.g. vector(1536).
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS vendors (
    id                        TEXT PRIMARY KEY,
    name                      TEXT NOT NULL,
    domain                    TEXT NOT NULL,
    vendor_type               TEXT NOT NULL DEFAULT 'other',
    description               TEXT NOT NULL DEFAULT '',
    is_active                 BOOLEAN NOT NULL DEFAULT TRUE,
    is_critical               BOOLEAN NOT NULL DEFAULT FALSE,
    seed_urls                 TEXT[] NOT NULL DEFAULT '{}',
    blocked_urls              TEXT[] NOT NULL DEFAULT '{}',
    discovered_urls           TEXT[] NOT NULL DEFAULT '{}',
    refresh_interval_seconds  BIGINT NOT NULL DEFAULT 0,
    last_crawled_at           TIMESTAMPTZ,
    next_crawl_scheduled_at   TIMESTAMPTZ,
    created_at                TIMESTAMPTZ NOT NULL,
    updated_at                TIMESTAMPTZ NOT NULL,
    CONSTRAINT vendors_domain_key UNIQUE (domain)
);

CREATE INDEX IF NOT EXISTS idx_vendors_due ON vendors(is_active, next_crawl_scheduled_at);

CREATE TABLE IF NOT EXISTS documents (
    id                   TEXT PRIMARY KEY,
    vendor_id            TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
    url                  TEXT NOT NULL,
    url_hash             TEXT NOT NULL,
    document_type        TEXT NOT NULL,
    title                TEXT NOT NULL DEFAULT '',
    raw_content          TEXT NOT NULL DEFAULT '',
    cleaned_content      TEXT NOT NULL DEFAULT '',
    content_hash         TEXT NOT NULL,
    version              INTEGER NOT NULL,
    is_latest            BOOLEAN NOT NULL DEFAULT TRUE,
    previous_version_id  TEXT REFERENCES documents(id) ON DELETE SET NULL,
    http_status          INTEGER NOT NULL DEFAULT 0,
    metadata             JSONB NOT NULL DEFAULT '{}',
    crawled_at           TIMESTAMPTZ NOT NULL,
    created_at           TIMESTAMPTZ NOT NULL,
    UNIQUE (vendor_id, url, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_latest ON documents(vendor_id, url) WHERE is_latest;
CREATE INDEX IF NOT EXISTS idx_documents_url_hash ON documents(url_hash);

CREATE TABLE IF NOT EXISTS document_chunks (
    seq          BIGSERIAL PRIMARY KEY,
    id           TEXT NOT NULL UNIQUE,
    document_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    vendor_id    TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
    content      TEXT NOT NULL,
    position     INTEGER NOT NULL,
    embedding    %s,
    metadata     JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks(document_id, position);
CREATE INDEX IF NOT EXISTS idx_chunks_vendor ON document_chunks(vendor_id);

CREATE TABLE IF NOT EXISTS crawl_jobs (
    id                   TEXT PRIMARY KEY,
    vendor_id            TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
    status               TEXT NOT NULL,
    job_type             TEXT NOT NULL DEFAULT 'full_crawl',
    pages_discovered     INTEGER NOT NULL DEFAULT 0,
    pages_crawled        INTEGER NOT NULL DEFAULT 0,
    pages_failed         INTEGER NOT NULL DEFAULT 0,
    pages_skipped        INTEGER NOT NULL DEFAULT 0,
    documents_created    INTEGER NOT NULL DEFAULT 0,
    documents_updated    INTEGER NOT NULL DEFAULT 0,
    documents_unchanged  INTEGER NOT NULL DEFAULT 0,
    error_message        TEXT,
    started_at           TIMESTAMPTZ,
    completed_at         TIMESTAMPTZ,
    created_at           TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crawl_jobs_status ON crawl_jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_crawl_jobs_vendor ON crawl_jobs(vendor_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_crawl_jobs_active ON crawl_jobs(vendor_id)
    WHERE status IN ('pending', 'in_progress');
`

// chunkEmbeddingIndexSQL needs a fixed column dimension. pgvector cannot
// index vector columns wider than maxIndexedDims.
const chunkEmbeddingIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_chunks_embedding_cosine ON document_chunks
    USING hnsw (embedding vector_cosine_ops) WITH (m = 16, ef_construction = 64);
`

const maxIndexedDims = 2000

// searchTuningSQL keeps filtered ANN scans going until LIMIT rows match,
// in exact distance order. Servers without iterative scans accept the
// setting as an unused placeholder.
const searchTuningSQL = "SET LOCAL hnsw.iterative_scan = strict_order"

func schemaFor(dims int) string {
	col := "vector"
	if dims > 0 {
		col = fmt.Sprintf("vector(%d)", dims)
	}
	ddl := fmt.Sprintf(schemaSQL, col)
	if dims > 0 && dims <= maxIndexedDims {
		ddl += chunkEmbeddingIndexSQL
	}
	return ddl
}
