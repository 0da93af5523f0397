package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
)

// Config keys for settings storage.
const (
	keyCrawlerUserAgent     = "crawler.user_agent"
	keyCrawlerMaxPages      = "crawler.max_pages"
	keyCrawlerRateLimit     = "crawler.rate_limit"
	keyCrawlerTimeout       = "crawler.timeout"
	keyCrawlerMaxRedirects  = "crawler.max_redirects"
	keyCrawlerRespectRobots = "crawler.respect_robots"
	keyCrawlerMaxLinks      = "crawler.max_links_per_page"

	keyRelevancePatterns  = "relevance.trust_page_patterns"
	keyRelevanceKeywords  = "relevance.keywords"
	keyRelevanceThreshold = "relevance.keyword_threshold"

	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedDimensions  = "embedding.dimensions"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyEmbedConcurrency = "embedding.concurrency"

	keyChunkSize      = "chunking.size"
	keyChunkOverlap   = "chunking.overlap"
	keyChunkMinTokens = "chunking.min_tokens"

	keyRetrievalTopK = "retrieval.top_k"

	keyRefreshDefaultDays  = "refresh.default_days"
	keyRefreshCriticalDays = "refresh.critical_days"

	keyStorageBackend     = "storage.backend"
	keyStoragePostgresDSN = "storage.postgres_dsn"

	keyJobsWorkers      = "jobs.workers"
	keyJobsPollInterval = "jobs.poll_interval"

	keySchedulerEnabled       = "scheduler.enabled"
	keySchedulerSweepInterval = "scheduler.sweep_interval"
	keySchedulerSweepEnabled  = "scheduler.vendor_refresh.enabled"
)

// Environment variables holding secrets.
const (
	envOpenAIAPIKey = "OPENAI_API_KEY"
	envDatabaseURL  = "DATABASE_URL"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindBool
	kindDuration
	kindList
)

// settingKeys lists every key `config set` accepts and how its value parses.
var settingKeys = map[string]keyKind{
	keyCrawlerUserAgent:       kindString,
	keyCrawlerMaxPages:        kindInt,
	keyCrawlerRateLimit:       kindDuration,
	keyCrawlerTimeout:         kindDuration,
	keyCrawlerMaxRedirects:    kindInt,
	keyCrawlerRespectRobots:   kindBool,
	keyCrawlerMaxLinks:        kindInt,
	keyRelevancePatterns:      kindList,
	keyRelevanceKeywords:      kindList,
	keyRelevanceThreshold:     kindInt,
	keyEmbedProvider:          kindString,
	keyEmbedModel:             kindString,
	keyEmbedBaseURL:           kindString,
	keyEmbedDimensions:        kindInt,
	keyEmbedBatchSize:         kindInt,
	keyEmbedConcurrency:       kindInt,
	keyChunkSize:              kindInt,
	keyChunkOverlap:           kindInt,
	keyChunkMinTokens:         kindInt,
	keyRetrievalTopK:          kindInt,
	keyRefreshDefaultDays:     kindInt,
	keyRefreshCriticalDays:    kindInt,
	keyStorageBackend:         kindString,
	keyStoragePostgresDSN:     kindString,
	keyJobsWorkers:            kindInt,
	keyJobsPollInterval:       kindDuration,
	keySchedulerEnabled:       kindBool,
	keySchedulerSweepInterval: kindDuration,
	keySchedulerSweepEnabled:  kindBool,
}

// SettingsService maps the config file onto domain.AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore, getenv: os.Getenv}
}

// Keys returns the configurable keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves current application settings, falling back to defaults
// for anything unset or invalid. Secrets come from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Crawler: domain.CrawlerSettings{
			UserAgent:       s.getString(keyCrawlerUserAgent, d.Crawler.UserAgent),
			MaxPages:        s.getInt(keyCrawlerMaxPages, d.Crawler.MaxPages),
			RateLimit:       s.getDuration(keyCrawlerRateLimit, d.Crawler.RateLimit),
			Timeout:         s.getDuration(keyCrawlerTimeout, d.Crawler.Timeout),
			MaxRedirects:    s.getInt(keyCrawlerMaxRedirects, d.Crawler.MaxRedirects),
			RespectRobots:   s.getBool(keyCrawlerRespectRobots, d.Crawler.RespectRobots),
			MaxLinksPerPage: s.getInt(keyCrawlerMaxLinks, d.Crawler.MaxLinksPerPage),
		},
		Relevance: domain.RelevancePolicy{
			URLPatterns:      s.getList(keyRelevancePatterns, d.Relevance.URLPatterns),
			Keywords:         s.getList(keyRelevanceKeywords, d.Relevance.Keywords),
			KeywordThreshold: s.getIntAllowZero(keyRelevanceThreshold, d.Relevance.KeywordThreshold),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:    s.getProvider(d.Embedding.Provider),
			Model:       s.configStore.GetString(keyEmbedModel),
			BaseURL:     s.configStore.GetString(keyEmbedBaseURL),
			APIKey:      s.getenv(envOpenAIAPIKey),
			Dimensions:  s.configStore.GetInt(keyEmbedDimensions),
			BatchSize:   s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			Concurrency: s.getInt(keyEmbedConcurrency, d.Embedding.Concurrency),
		},
		Chunking: domain.ChunkingSettings{
			Size:      s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap:   s.getIntAllowZero(keyChunkOverlap, d.Chunking.Overlap),
			MinTokens: s.getIntAllowZero(keyChunkMinTokens, d.Chunking.MinTokens),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyRetrievalTopK, d.Retrieval.TopK),
		},
		Refresh: domain.RefreshSettings{
			DefaultInterval:  s.getDays(keyRefreshDefaultDays, d.Refresh.DefaultInterval),
			CriticalInterval: s.getDays(keyRefreshCriticalDays, d.Refresh.CriticalInterval),
		},
		Storage: domain.StorageSettings{
			Backend:     s.getBackend(d.Storage.Backend),
			PostgresDSN: s.configStore.GetString(keyStoragePostgresDSN),
		},
		Jobs: domain.JobSettings{
			Workers:      s.getInt(keyJobsWorkers, d.Jobs.Workers),
			PollInterval: s.getDuration(keyJobsPollInterval, d.Jobs.PollInterval),
		},
		Scheduler: s.GetSchedulerConfig(),
	}

	// Model and dimensions follow the provider unless set explicitly.
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.Dimensions <= 0 {
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}
	if dsn := s.getenv(envDatabaseURL); dsn != "" {
		settings.Storage.PostgresDSN = dsn
	}

	return settings, nil
}

// Validate checks settings that would make the pipeline misbehave.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	c := settings.Chunking
	if c.Overlap >= c.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d): %w",
			c.Overlap, c.Size, domain.ErrInvalidInput)
	}
	if settings.Storage.Backend == domain.StoragePostgres && settings.Storage.PostgresDSN == "" {
		return fmt.Errorf("postgres backend needs %s or %s: %w", envDatabaseURL, keyStoragePostgresDSN, domain.ErrInvalidInput)
	}
	return nil
}

// GetValue returns the stored value for key, or the empty string.
func (s *SettingsService) GetValue(key string) (string, bool) {
	v, ok := s.configStore.Get(key)
	if !ok {
		return "", false
	}
	switch list := v.(type) {
	case []string:
		return strings.Join(list, ","), true
	case []any:
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(v), true
	}
}

// SetValue parses raw according to the key's type and persists it.
func (s *SettingsService) SetValue(key, raw string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q: %w", key, domain.ErrInvalidInput)
	}

	var value any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s expects an integer: %w", key, domain.ErrInvalidInput)
		}
		value = n
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s expects true or false: %w", key, domain.ErrInvalidInput)
		}
		value = b
	case kindDuration:
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s expects a duration such as 1s or 45m: %w", key, domain.ErrInvalidInput)
		}
		value = raw
	case kindList:
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		value = items
	default:
		value = raw
	}

	switch key {
	case keyEmbedProvider:
		if !domain.AIProvider(raw).IsValid() {
			return fmt.Errorf("unknown embedding provider %q: %w", raw, domain.ErrInvalidInput)
		}
	case keyStorageBackend:
		if b := domain.StorageBackend(raw); b != domain.StorageSQLite && b != domain.StoragePostgres {
			return fmt.Errorf("unknown storage backend %q: %w", raw, domain.ErrInvalidInput)
		}
	}

	return s.configStore.Set(key, value)
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()

	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		cfg.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	taskCfg := cfg.TaskConfigs[domain.TaskIDVendorRefresh]
	taskCfg.Enabled = s.getBool(keySchedulerSweepEnabled, taskCfg.Enabled)
	taskCfg.Interval = s.getDuration(keySchedulerSweepInterval, taskCfg.Interval)
	cfg.TaskConfigs[domain.TaskIDVendorRefresh] = taskCfg

	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero keeps an explicit zero, which disables some features.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetInt(key)
	if val < 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getDays(key string, defaultVal time.Duration) time.Duration {
	days := s.configStore.GetInt(key)
	if days <= 0 {
		return defaultVal
	}
	return time.Duration(days) * 24 * time.Hour
}

func (s *SettingsService) getList(key string, defaultVal []string) []string {
	if list := s.configStore.GetStringSlice(key); len(list) > 0 {
		return list
	}
	return defaultVal
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	switch b := domain.StorageBackend(s.configStore.GetString(keyStorageBackend)); b {
	case domain.StorageSQLite, domain.StoragePostgres:
		return b
	default:
		return defaultVal
	}
}
