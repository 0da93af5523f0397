// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Fetcher: Rate-limited HTTP GET for one crawl
//   - Crawler / CrawlerFactory: Frontier that discovers and classifies trust pages
//   - PageNormaliser: Markup to title, cleaned text and hashes
//   - PostProcessor / PostProcessorPipeline: Chunking and chunk metadata
//   - VendorStore, DocumentStore, CrawlJobStore: Persistence
//   - SchedulerStore: Scheduler task state and history
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - EmbeddingService: Without it, crawls cannot index and retrieval is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
