package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/services"
)

// RetrieveInput is the input schema shared by the retrieve and citations tools.
type RetrieveInput struct {
	Query   string   `json:"query" jsonschema:"the due-diligence question to find evidence for"`
	Vendors []string `json:"vendors" jsonschema:"vendor IDs or domains to search within"`
	Types   []string `json:"types,omitempty" jsonschema:"optional document types such as security_page or privacy_policy"`
	TopK    int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks  []ChunkOutput `json:"chunks"`
	Count   int           `json:"count"`
	Context string        `json:"context"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	VendorID     string  `json:"vendor_id"`
	VendorName   string  `json:"vendor_name"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	DocumentType string  `json:"document_type"`
	Similarity   float64 `json:"similarity"`
	Content      string  `json:"content"`
}

// CitationsOutput is the output schema for the citations tool.
type CitationsOutput struct {
	Citations []CitationOutput `json:"citations"`
	Count     int              `json:"count"`
}

// CitationOutput is one deduplicated source page.
type CitationOutput struct {
	VendorID     string  `json:"vendor_id"`
	VendorName   string  `json:"vendor_name"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	DocumentType string  `json:"document_type"`
	Excerpt      string  `json:"excerpt"`
	Similarity   float64 `json:"similarity"`
}

// VendorContextInput is the input schema for the vendor_context tool.
type VendorContextInput struct {
	Vendor string `json:"vendor" jsonschema:"vendor ID or domain"`
}

// VendorContextOutput summarises a vendor.
type VendorContextOutput struct {
	Name           string         `json:"name"`
	Domain         string         `json:"domain"`
	Type           string         `json:"type"`
	IsCritical     bool           `json:"is_critical"`
	LastCrawledAt  string         `json:"last_crawled_at"`
	DocumentCounts map[string]int `json:"document_counts"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the most relevant trust-page passages for a question about one or more vendors",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "citations",
		Description: "List the source pages supporting a question, one per page, in relevance order",
	}, s.handleCitations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vendor_context",
		Description: "Summarise a vendor and the documents collected for it",
	}, s.handleVendorContext)
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	query, err := s.buildQuery(ctx, input)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	chunks, err := s.ports.Retrieval.Retrieve(ctx, query)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		c := &chunks[i]
		output.Chunks[i] = ChunkOutput{
			ChunkID:      c.Chunk.ID,
			DocumentID:   c.DocumentID,
			VendorID:     c.VendorID,
			VendorName:   c.VendorName,
			URL:          c.URL,
			Title:        c.Title,
			DocumentType: string(c.DocumentType),
			Similarity:   c.Similarity,
			Content:      c.Chunk.Content,
		}
	}
	output.Context = services.FormatContext(chunks)

	return nil, output, nil
}

func (s *Server) handleCitations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, CitationsOutput, error) {
	query, err := s.buildQuery(ctx, input)
	if err != nil {
		return nil, CitationsOutput{}, err
	}

	citations, err := s.ports.Retrieval.Citations(ctx, query)
	if err != nil {
		return nil, CitationsOutput{}, err
	}

	output := CitationsOutput{
		Citations: make([]CitationOutput, len(citations)),
		Count:     len(citations),
	}
	for i, c := range citations {
		output.Citations[i] = CitationOutput{
			VendorID:     c.VendorID,
			VendorName:   c.VendorName,
			URL:          c.URL,
			Title:        c.Title,
			DocumentType: string(c.DocumentType),
			Excerpt:      c.Excerpt,
			Similarity:   c.Similarity,
		}
	}
	return nil, output, nil
}

func (s *Server) handleVendorContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input VendorContextInput,
) (*mcp.CallToolResult, VendorContextOutput, error) {
	ids, err := s.resolveVendors(ctx, []string{input.Vendor})
	if err != nil {
		return nil, VendorContextOutput{}, err
	}

	vc, err := s.ports.Retrieval.VendorContext(ctx, ids[0])
	if err != nil {
		return nil, VendorContextOutput{}, err
	}

	counts := make(map[string]int, len(vc.DocumentCounts))
	for t, n := range vc.DocumentCounts {
		counts[string(t)] = n
	}
	return nil, VendorContextOutput{
		Name:           vc.Name,
		Domain:         vc.Domain,
		Type:           string(vc.Type),
		IsCritical:     vc.IsCritical,
		LastCrawledAt:  vc.LastCrawledAt,
		DocumentCounts: counts,
	}, nil
}

func (s *Server) buildQuery(ctx context.Context, input RetrieveInput) (domain.RetrieveQuery, error) {
	vendorIDs, err := s.resolveVendors(ctx, input.Vendors)
	if err != nil {
		return domain.RetrieveQuery{}, err
	}

	types := make([]domain.DocumentType, 0, len(input.Types))
	for _, t := range input.Types {
		dt := domain.DocumentType(t)
		if !dt.IsValid() {
			return domain.RetrieveQuery{}, fmt.Errorf("unknown document type %q: %w", t, domain.ErrInvalidInput)
		}
		types = append(types, dt)
	}

	return domain.RetrieveQuery{
		Query:         input.Query,
		VendorIDs:     vendorIDs,
		TopK:          input.TopK,
		DocumentTypes: types,
	}, nil
}

// resolveVendors maps IDs or domains to vendor IDs. Without a vendor port
// the values are passed through unchanged.
func (s *Server) resolveVendors(ctx context.Context, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("at least one vendor is required: %w", domain.ErrInvalidInput)
	}
	if s.ports.Vendor == nil {
		return refs, nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		v, err := s.ports.Vendor.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolving vendor %q: %w", ref, err)
		}
		ids = append(ids, v.ID)
	}
	return ids, nil
}
