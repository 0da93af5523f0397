package driven

import "github.com/custodia-labs/vendorscope/internal/core/domain"

// PageNormaliser strips boilerplate markup and hashes the remaining text.
// Malformed markup degrades to raw-text extraction rather than failing.
type PageNormaliser interface {
	Normalise(pageURL string, body []byte, contentType string) (*domain.NormalisedPage, error)
}
