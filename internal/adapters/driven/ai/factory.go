// Package ai builds the embedding service selected by the settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/vendorscope/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/vendorscope/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and checks
// that it is reachable. It returns nil, nil when no provider is configured
// so callers can run without embeddings.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service for the configured
// provider. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil
	case domain.AIProviderOpenAI:
		svc, err := createOpenAIEmbedding(settings)
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) *ollamaembed.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions <= 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding only requests a reduced vector size when the
// configured dimensions differ from the model's native size.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (*openaiembed.EmbeddingService, error) {
	dimensions := 0
	if native := domain.EmbeddingDimensions()[settings.Model]; settings.Dimensions > 0 && settings.Dimensions != native {
		dimensions = settings.Dimensions
	}

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}
