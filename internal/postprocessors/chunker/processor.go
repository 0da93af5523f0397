// Package chunker splits cleaned page text into overlapping token windows.
package chunker

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// DefaultChunkSize is the default number of tokens per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of tokens shared by consecutive chunks.
const DefaultChunkOverlap = 200

// DefaultMinTokens is the smallest trailing chunk that is kept.
const DefaultMinTokens = 50

// tokenPattern matches a run of word characters or a single symbol.
var tokenPattern = regexp.MustCompile(`\w+|[^\w\s]`)

// Segment is one chunk of text with its token window.
type Segment struct {
	Text       string
	Index      int
	StartToken int
	EndToken   int
}

// Processor splits document content into token windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	minTokens int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinTokens sets the minimum size of a trailing chunk.
func WithMinTokens(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minTokens = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		minTokens: DefaultMinTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits text into windows of chunkSize tokens that advance by
// chunkSize-overlap tokens. Each segment's text is the source substring
// covering its tokens. A trailing window shorter than minTokens is dropped
// unless it is the only one.
func (p *Processor) Chunk(text string) []Segment {
	spans := tokenPattern.FindAllStringIndex(text, -1)
	n := len(spans)
	if n == 0 {
		return nil
	}

	stride := p.chunkSize - p.overlap
	segments := make([]Segment, 0, n/stride+1)

	for start := 0; start < n; start += stride {
		end := min(start+p.chunkSize, n)
		if end-start < p.minTokens && len(segments) > 0 {
			break
		}
		segments = append(segments, Segment{
			Text:       text[spans[start][0]:spans[end-1][1]],
			Index:      len(segments),
			StartToken: start,
			EndToken:   end,
		})
		if end == n {
			break
		}
	}

	return segments
}

// Process splits the document's cleaned content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	segments := p.Chunk(doc.CleanedContent)
	if len(segments) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(segments))
	for _, seg := range segments {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			VendorID:   doc.VendorID,
			Content:    seg.Text,
			Position:   seg.Index,
			Metadata: map[string]any{
				"start_token": seg.StartToken,
				"end_token":   seg.EndToken,
			},
		})
	}

	return chunks, nil
}
