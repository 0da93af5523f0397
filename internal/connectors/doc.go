// Package connectors holds the crawlers that turn a vendor's public web
// presence into pages for the document pipeline. The web connector is the
// only source; its factory is handed to the crawl orchestrator at startup.
package connectors
