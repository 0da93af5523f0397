package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vendorscope/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

func newTestSettings(t *testing.T, env map[string]string) (*SettingsService, *file.ConfigStore) {
	t.Helper()
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	service := NewSettingsService(store)
	service.getenv = func(key string) string { return env[key] }
	return service, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettings(t, nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Crawler, settings.Crawler)
	assert.Equal(t, defaults.Relevance, settings.Relevance)
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.Refresh, settings.Refresh)
	assert.Equal(t, defaults.Jobs, settings.Jobs)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, 1536, settings.Embedding.Dimensions)
	assert.Equal(t, domain.StorageSQLite, settings.Storage.Backend)
	assert.Equal(t, 5, settings.Retrieval.TopK)
	assert.True(t, settings.Scheduler.Enabled)
	assert.Empty(t, settings.Embedding.APIKey)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettings(t, nil)
	require.NoError(t, store.Set("crawler.max_pages", 50))
	require.NoError(t, store.Set("crawler.rate_limit", "250ms"))
	require.NoError(t, store.Set("crawler.respect_robots", false))
	require.NoError(t, store.Set("relevance.trust_page_patterns", []string{"/security", "/soc2"}))
	require.NoError(t, store.Set("chunking.overlap", 0))
	require.NoError(t, store.Set("refresh.critical_days", 3))
	require.NoError(t, store.Set("jobs.workers", 4))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, 50, settings.Crawler.MaxPages)
	assert.Equal(t, 250*time.Millisecond, settings.Crawler.RateLimit)
	assert.False(t, settings.Crawler.RespectRobots)
	assert.Equal(t, []string{"/security", "/soc2"}, settings.Relevance.URLPatterns)
	assert.Equal(t, 0, settings.Chunking.Overlap)
	assert.Equal(t, 3*24*time.Hour, settings.Refresh.CriticalInterval)
	assert.Equal(t, 30*24*time.Hour, settings.Refresh.DefaultInterval)
	assert.Equal(t, 4, settings.Jobs.Workers)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	service, store := newTestSettings(t, nil)
	require.NoError(t, store.Set("embedding.provider", "invalid_provider"))
	require.NoError(t, store.Set("storage.backend", "mongo"))
	require.NoError(t, store.Set("crawler.timeout", "soon"))
	require.NoError(t, store.Set("retrieval.top_k", -1))

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Storage.Backend, settings.Storage.Backend)
	assert.Equal(t, defaults.Crawler.Timeout, settings.Crawler.Timeout)
	assert.Equal(t, defaults.Retrieval.TopK, settings.Retrieval.TopK)
}

func TestSettingsService_Get_ProviderDefaultsModel(t *testing.T) {
	service, store := newTestSettings(t, nil)
	require.NoError(t, store.Set("embedding.provider", "ollama"))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, 768, settings.Embedding.Dimensions)
}

func TestSettingsService_Get_ExplicitDimensionsWin(t *testing.T) {
	service, store := newTestSettings(t, nil)
	require.NoError(t, store.Set("embedding.model", "text-embedding-3-large"))
	require.NoError(t, store.Set("embedding.dimensions", 256))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, 256, settings.Embedding.Dimensions)
}

func TestSettingsService_Get_SecretsFromEnvironment(t *testing.T) {
	service, store := newTestSettings(t, map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"DATABASE_URL":   "postgres://env/db",
	})
	require.NoError(t, store.Set("storage.postgres_dsn", "postgres://file/db"))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, "postgres://env/db", settings.Storage.PostgresDSN)
	assert.True(t, settings.Embedding.IsConfigured())
}

func TestSettingsService_SetValue(t *testing.T) {
	service, _ := newTestSettings(t, nil)

	require.NoError(t, service.SetValue("crawler.max_pages", "25"))
	require.NoError(t, service.SetValue("crawler.respect_robots", "false"))
	require.NoError(t, service.SetValue("jobs.poll_interval", "5s"))
	require.NoError(t, service.SetValue("relevance.keywords", "soc 2, gdpr ,"))
	require.NoError(t, service.SetValue("embedding.provider", "ollama"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 25, settings.Crawler.MaxPages)
	assert.False(t, settings.Crawler.RespectRobots)
	assert.Equal(t, 5*time.Second, settings.Jobs.PollInterval)
	assert.Equal(t, []string{"soc 2", "gdpr"}, settings.Relevance.Keywords)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)

	value, ok := service.GetValue("relevance.keywords")
	require.True(t, ok)
	assert.Equal(t, "soc 2,gdpr", value)
}

func TestSettingsService_SetValue_Rejects(t *testing.T) {
	service, _ := newTestSettings(t, nil)

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not an integer", "crawler.max_pages", "many"},
		{"not a bool", "crawler.respect_robots", "maybe"},
		{"not a duration", "crawler.timeout", "30"},
		{"unknown provider", "embedding.provider", "cohere"},
		{"unknown backend", "storage.backend", "mongo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.SetValue(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, ok := service.GetValue("crawler.max_pages")
	assert.False(t, ok)
}

func TestSettingsService_Validate(t *testing.T) {
	service, store := newTestSettings(t, nil)
	require.NoError(t, service.Validate())

	require.NoError(t, store.Set("chunking.overlap", 1000))
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)

	require.NoError(t, store.Set("chunking.overlap", 100))
	require.NoError(t, store.Set("storage.backend", "postgres"))
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)

	require.NoError(t, store.Set("storage.postgres_dsn", "postgres://localhost/vendorscope"))
	assert.NoError(t, service.Validate())
}

func TestSettingsService_GetSchedulerConfig(t *testing.T) {
	service, store := newTestSettings(t, nil)

	cfg := service.GetSchedulerConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Hour, cfg.GetTaskConfig(domain.TaskIDVendorRefresh).Interval)

	require.NoError(t, store.Set("scheduler.enabled", false))
	require.NoError(t, store.Set("scheduler.sweep_interval", "15m"))

	cfg = service.GetSchedulerConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.GetTaskConfig(domain.TaskIDVendorRefresh).Interval)
}

func TestSettingsService_Keys(t *testing.T) {
	service, _ := newTestSettings(t, nil)
	keys := service.Keys()
	assert.Contains(t, keys, "crawler.max_pages")
	assert.Contains(t, keys, "retrieval.top_k")
	assert.IsNonDecreasing(t, keys)
}
