// Package postgres is the server-side store behind the vendor, document
// and crawl job ports, for deployments where several processes share one
// queue and corpus.
//
// Connections go through lib/pq. Chunk embeddings live in a pgvector
// column and similarity search runs in the database using the cosine
// distance operator (<=>). Scheduler state stays in the local SQLite
// store.
//
// Workers in different processes claim jobs with FOR UPDATE SKIP LOCKED,
// so a job is never handed to two workers.
package postgres
