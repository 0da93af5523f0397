package domain

import "time"

// DocumentType classifies a trust page.
type DocumentType string

// Known document types.
const (
	DocumentTypeSecurityPage   DocumentType = "security_page"
	DocumentTypePrivacyPolicy  DocumentType = "privacy_policy"
	DocumentTypeTrustCenter    DocumentType = "trust_center"
	DocumentTypeComplianceDoc  DocumentType = "compliance_doc"
	DocumentTypeStatusPage     DocumentType = "status_page"
	DocumentTypeBlogPost       DocumentType = "blog_post"
	DocumentTypeIncidentReport DocumentType = "incident_report"
	DocumentTypeTermsOfService DocumentType = "terms_of_service"
	DocumentTypeOther          DocumentType = "other"
)

// AllDocumentTypes returns every known document type.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeSecurityPage,
		DocumentTypePrivacyPolicy,
		DocumentTypeTrustCenter,
		DocumentTypeComplianceDoc,
		DocumentTypeStatusPage,
		DocumentTypeBlogPost,
		DocumentTypeIncidentReport,
		DocumentTypeTermsOfService,
		DocumentTypeOther,
	}
}

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	for _, known := range AllDocumentTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Document is one version of a page at one URL.
//
// For a given (VendorID, URL) the versions form a total order by Version
// and exactly one has IsLatest set. PreviousVersionID is a history
// back-reference only; it never owns the predecessor.
type Document struct {
	// ID is the unique identifier for this version.
	ID string

	// VendorID links to the owning Vendor.
	VendorID string

	// URL is the canonical final URL of the page.
	URL string

	// URLHash is hex(sha256(URL)), the stable identity key.
	URLHash string

	// Type is the classified document type.
	Type DocumentType

	// Title is the page title, possibly empty.
	Title string

	// RawContent is the body as fetched.
	RawContent string

	// CleanedContent is the normalised text that is chunked and hashed.
	CleanedContent string

	// ContentHash is hex(sha256(CleanedContent)), the change-detection key.
	ContentHash string

	// Version starts at 1 and increments on every content change.
	Version int

	// IsLatest marks the current queryable revision.
	IsLatest bool

	// PreviousVersionID points at the superseded version, if any.
	PreviousVersionID *string

	// HTTPStatus is the status code of the fetch that produced this version.
	HTTPStatus int

	// Metadata carries response details such as content type and last-modified.
	Metadata map[string]any

	// CrawledAt is the last time the page was seen with this content.
	CrawledAt time.Time

	// CreatedAt is when this version was first stored.
	CreatedAt time.Time
}

// Chunk is a retrieval unit owned by exactly one document version.
// Chunks are never mutated after they are persisted.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning document version.
	DocumentID string

	// VendorID is denormalised from the document for scoped search.
	VendorID string

	// Content is the text of this chunk.
	Content string

	// Position is the 0-based emission order within the document.
	Position int

	// Embedding is the vector representation used for similarity search.
	Embedding []float32

	// Metadata carries provenance: url, title, document_type and token offsets.
	Metadata map[string]any
}

// VersionOutcome is the result of storing a crawled page.
type VersionOutcome string

// Possible outcomes of a version upsert.
const (
	VersionCreated   VersionOutcome = "created"
	VersionUpdated   VersionOutcome = "updated"
	VersionUnchanged VersionOutcome = "unchanged"
)
