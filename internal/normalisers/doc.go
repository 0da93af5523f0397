// Package normalisers provides content normalisers for fetched pages.
// Each normaliser turns raw response bodies into cleaned text plus the
// hashes used for document identity and change detection.
package normalisers
