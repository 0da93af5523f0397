package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the persistence adapter.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
)

// CrawlerSettings holds fetcher and frontier configuration.
type CrawlerSettings struct {
	UserAgent     string
	MaxPages      int
	RateLimit     time.Duration
	Timeout       time.Duration
	MaxRedirects  int
	RespectRobots bool

	// MaxLinksPerPage caps how many links one page may enqueue. Zero means no cap.
	MaxLinksPerPage int
}

// RelevancePolicy decides whether a fetched page is a trust page.
// A page is relevant when its URL contains any URLPatterns entry, or when
// at least KeywordThreshold distinct Keywords occur in its text.
type RelevancePolicy struct {
	URLPatterns      []string
	Keywords         []string
	KeywordThreshold int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI). Normally read from the environment.
	APIKey string

	// Dimensions is the vector size stored chunks must share.
	Dimensions int

	// BatchSize caps the number of texts per upstream call.
	BatchSize int

	// Concurrency caps the number of sub-batches in flight.
	Concurrency int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings holds chunker configuration, in tokens.
type ChunkingSettings struct {
	Size      int
	Overlap   int
	MinTokens int
}

// RetrievalSettings holds retrieval defaults.
type RetrievalSettings struct {
	TopK int
}

// RefreshSettings holds vendor refresh intervals.
type RefreshSettings struct {
	DefaultInterval  time.Duration
	CriticalInterval time.Duration
}

// StorageSettings selects and configures persistence.
type StorageSettings struct {
	Backend StorageBackend

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string
}

// JobSettings configures the crawl job queue.
type JobSettings struct {
	Workers      int
	PollInterval time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Crawler   CrawlerSettings
	Relevance RelevancePolicy
	Embedding EmbeddingSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Refresh   RefreshSettings
	Storage   StorageSettings
	Jobs      JobSettings
	Scheduler SchedulerConfig
}

// DefaultTrustPagePatterns are URL fragments that mark a page as relevant.
func DefaultTrustPagePatterns() []string {
	return []string{
		"/security",
		"/trust",
		"/privacy",
		"/legal",
		"/compliance",
		"/status",
		"/policies",
		"/terms",
		"/gdpr",
		"/soc2",
		"/hipaa",
		"/certifications",
	}
}

// DefaultTrustKeywords is the vocabulary counted for content relevance.
func DefaultTrustKeywords() []string {
	return []string{
		"security", "privacy", "compliance", "soc 2", "soc2", "iso 27001",
		"gdpr", "hipaa", "trust center", "certifications", "certificate",
		"data protection", "incident", "vulnerability", "encryption",
		"authentication", "authorization", "pci", "terms", "policy",
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// The embedding API key is left empty; it is read from the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Crawler: CrawlerSettings{
			UserAgent:     "VendorScope/1.0 (Vendor Risk Analysis Bot)",
			MaxPages:      200,
			RateLimit:     time.Second,
			Timeout:       30 * time.Second,
			MaxRedirects:  5,
			RespectRobots: true,
		},
		Relevance: RelevancePolicy{
			URLPatterns:      DefaultTrustPagePatterns(),
			Keywords:         DefaultTrustKeywords(),
			KeywordThreshold: 2,
		},
		Embedding: EmbeddingSettings{
			Provider:    AIProviderOpenAI,
			Model:       "text-embedding-3-small",
			Dimensions:  1536,
			BatchSize:   2048,
			Concurrency: 2,
		},
		Chunking: ChunkingSettings{
			Size:      1000,
			Overlap:   200,
			MinTokens: 50,
		},
		Retrieval: RetrievalSettings{TopK: 5},
		Refresh: RefreshSettings{
			DefaultInterval:  30 * 24 * time.Hour,
			CriticalInterval: 7 * 24 * time.Hour,
		},
		Storage: StorageSettings{Backend: StorageSQLite},
		Jobs: JobSettings{
			Workers:      2,
			PollInterval: 2 * time.Second,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
