// Package web implements the vendor trust-page crawler.
//
// A Crawler is built per crawl invocation with its own Fetcher, so two
// vendors crawled at the same time never share a rate limiter or client.
// The frontier is breadth-first, budget-bounded and relevance-gated: only
// pages that look like trust pages are emitted and have their links
// followed.
package web
