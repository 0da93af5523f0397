package postprocessors

import (
	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/postprocessors/chunker"
	"github.com/custodia-labs/vendorscope/internal/postprocessors/provenance"
)

// DefaultOrder is the processor order used for every document version.
var DefaultOrder = []string{"chunker", "provenance"}

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("provenance", func(map[string]any) (driven.PostProcessor, error) {
		return provenance.New(), nil
	})
}

// NewDefaultPipeline builds the chunker and provenance pipeline from the
// chunking settings.
func NewDefaultPipeline(cs domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(DefaultOrder, map[string]map[string]any{
		"chunker": {
			"chunk_size": cs.Size,
			"overlap":    cs.Overlap,
			"min_tokens": cs.MinTokens,
		},
	})
}

// buildChunker creates a chunker from generic config.
// Supported config keys:
//   - chunk_size (int): tokens per chunk (default: 1000)
//   - overlap (int): tokens shared by consecutive chunks (default: 200)
//   - min_tokens (int): smallest trailing chunk kept (default: 50)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok && size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if minTokens, ok := getIntFromConfig(cfg, "min_tokens"); ok {
		opts = append(opts, chunker.WithMinTokens(minTokens))
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
