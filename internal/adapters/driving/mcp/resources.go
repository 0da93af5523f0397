package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "vendorscope://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "vendors",
		Name:        "vendors",
		Description: "All monitored vendors",
		MIMEType:    "application/json",
	}, s.handleVendorsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "vendors/{vendorId}/documents",
		Name:        "vendor-documents",
		Description: "Latest document versions collected for a vendor",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Cleaned text of a specific document version",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

// handleVendorsResource lists vendors. Without a vendor port it returns an
// empty list.
func (s *Server) handleVendorsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Vendor == nil {
		return jsonResult(req.Params.URI, "[]"), nil
	}

	vendors, err := s.ports.Vendor.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing vendors: %w", err)
	}

	type vendorInfo struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Domain        string `json:"domain"`
		Type          string `json:"type"`
		IsActive      bool   `json:"is_active"`
		IsCritical    bool   `json:"is_critical"`
		LastCrawledAt string `json:"last_crawled_at,omitempty"`
	}

	infos := make([]vendorInfo, len(vendors))
	for i := range vendors {
		v := &vendors[i]
		infos[i] = vendorInfo{
			ID:         v.ID,
			Name:       v.Name,
			Domain:     v.Domain,
			Type:       string(v.Type),
			IsActive:   v.IsActive,
			IsCritical: v.IsCritical,
		}
		if v.LastCrawledAt != nil {
			infos[i].LastCrawledAt = v.LastCrawledAt.Format(time.RFC3339)
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling vendors: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	vendorID := extractVendorID(req.Params.URI)
	if vendorID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Document.ListLatest(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		Type      string `json:"type"`
		Version   int    `json:"version"`
		CrawledAt string `json:"crawled_at"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:        docs[i].ID,
			Title:     docs[i].Title,
			URL:       docs[i].URL,
			Type:      string(docs[i].Type),
			Version:   docs[i].Version,
			CrawledAt: docs[i].CrawledAt.Format(time.RFC3339),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.CleanedContent,
		}},
	}, nil
}

func jsonResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractVendorID extracts the vendor ID from vendorscope://vendors/{vendorId}/documents.
func extractVendorID(uri string) string {
	const prefix = uriScheme + "vendors/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}
	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractDocumentID extracts the document ID from vendorscope://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}
