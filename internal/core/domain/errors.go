package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCrawlInProgress indicates the vendor already has a pending or running crawl.
	ErrCrawlInProgress = errors.New("crawl in progress")

	// ErrCrawlCancelled indicates the crawl job was cancelled while running.
	ErrCrawlCancelled = errors.New("crawl cancelled")

	// ErrInvalidTransition indicates a crawl job status change that the
	// state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrVendorInactive indicates the vendor is deactivated.
	ErrVendorInactive = errors.New("vendor inactive")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// TransportError is a network-level fetch failure: timeout, DNS, TLS or
// connection refused. The page is skipped and the crawl continues.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response. The page is skipped and counted as failed.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}

// ParseError is malformed markup. The normaliser degrades to raw-text
// extraction instead of returning it to the crawler.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbeddingServiceError is a batch-level upstream failure. It aborts the job.
type EmbeddingServiceError struct {
	Op  string
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// StoreError is a persistence failure such as a transaction conflict or
// constraint violation. It aborts the job.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsFatalToJob reports whether err must abort the whole crawl job rather
// than only the current page.
func IsFatalToJob(err error) bool {
	if err == nil {
		return false
	}
	var embedErr *EmbeddingServiceError
	var storeErr *StoreError
	return errors.As(err, &embedErr) ||
		errors.As(err, &storeErr) ||
		errors.Is(err, ErrCrawlCancelled) ||
		errors.Is(err, ErrEmbeddingUnavailable)
}

// IsPageError reports whether err only affects a single page.
func IsPageError(err error) bool {
	var transportErr *TransportError
	var httpErr *HTTPError
	return errors.As(err, &transportErr) || errors.As(err, &httpErr)
}
