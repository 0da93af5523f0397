// Package sqlite is the embedded store behind the vendor, document, crawl
// job and scheduler ports.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation, so the
// binary needs no CGO. All stores share one database file.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory and recorded in schema_migrations.
//
// # Vectors
//
// Chunk embeddings are stored as little-endian float32 BLOBs. Similarity
// search loads the candidate chunks of the requested vendors and ranks
// them by cosine similarity in Go.
//
// # Data Location
//
// By default, the database is stored at ~/.vendorscope/data/vendorscope.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. WAL mode allows readers
// alongside a writer, and write transactions take the lock up front
// (_txlock=immediate) and wait up to busy_timeout for it.
package sqlite
