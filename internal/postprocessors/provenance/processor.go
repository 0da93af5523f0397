// Package provenance stamps source document details onto chunks.
package provenance

import (
	"context"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// Processor copies the document URL, title, type and version into each
// chunk's metadata so a retrieved chunk can be cited on its own.
type Processor struct{}

// New creates a provenance processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "provenance"
}

// Process annotates chunks in place and returns them.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		c := &chunks[i]
		if c.Metadata == nil {
			c.Metadata = make(map[string]any, 4)
		}
		c.Metadata["url"] = doc.URL
		c.Metadata["title"] = doc.Title
		c.Metadata["document_type"] = string(doc.Type)
		c.Metadata["version"] = doc.Version
		if c.DocumentID == "" {
			c.DocumentID = doc.ID
		}
		if c.VendorID == "" {
			c.VendorID = doc.VendorID
		}
	}
	return chunks, nil
}
