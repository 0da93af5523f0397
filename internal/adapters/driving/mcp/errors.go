// Package mcp exposes vendor evidence retrieval over the Model Context
// Protocol so an assistant can ground its answers in crawled trust pages.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
