package mcp

import (
	"github.com/custodia-labs/vendorscope/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Retrieval answers similarity queries. Required.
	Retrieval driving.RetrievalService

	// Vendor resolves vendor names and domains and backs the vendor resources.
	Vendor driving.VendorService

	// Document backs the document resources.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
