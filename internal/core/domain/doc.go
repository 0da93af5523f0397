// Package domain defines the core business entities for vendorscope.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Vendor: A monitored software vendor and its crawl policy
//   - Document: One version of a vendor trust page
//   - Chunk: A retrieval unit owned by one document version
//   - CrawlJob: One execution record of the crawl pipeline
//   - FetchResult, NormalisedPage, CrawledPage: Tagged stage results
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
