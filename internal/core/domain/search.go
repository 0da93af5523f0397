package domain

// RetrieveQuery configures a similarity retrieval.
type RetrieveQuery struct {
	// Query is the natural-language question.
	Query string

	// VendorIDs scopes retrieval. It must not be empty.
	VendorIDs []string

	// TopK is the maximum number of chunks. Zero uses the configured default.
	TopK int

	// DocumentTypes optionally restricts results to these types.
	DocumentTypes []DocumentType
}

// ChunkFilter is the store-level filter applied to a vector search.
// Only chunks of latest document versions are ever considered.
type ChunkFilter struct {
	VendorIDs     []string
	DocumentTypes []DocumentType
	Limit         int
}

// RetrievedChunk is a ranked retrieval hit with its provenance.
type RetrievedChunk struct {
	Chunk Chunk

	DocumentID   string
	URL          string
	Title        string
	DocumentType DocumentType
	VendorID     string
	VendorName   string

	// Similarity is 1 - cosine distance; higher is more relevant.
	Similarity float64
}

// Citation is a user-facing reference to one source page.
// There is at most one citation per (VendorID, URL).
type Citation struct {
	VendorID     string
	VendorName   string
	URL          string
	Title        string
	DocumentType DocumentType
	Excerpt      string
	Similarity   float64
}

// VendorContext is a short summary of a vendor for answer generation.
type VendorContext struct {
	Name           string
	Domain         string
	Type           VendorType
	IsCritical     bool
	LastCrawledAt  string
	DocumentCounts map[DocumentType]int
}
