package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "vendorscope-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// createTestVendor saves a vendor to satisfy foreign key constraints.
func createTestVendor(t *testing.T, store *Store, id, domainName string) *domain.Vendor {
	t.Helper()
	v := &domain.Vendor{
		ID:       id,
		Name:     "Vendor " + id,
		Domain:   domainName,
		Type:     domain.VendorTypeCloud,
		IsActive: true,
	}
	require.NoError(t, store.VendorStore().SaveVendor(context.Background(), v))
	return v
}

// newTestDocument builds version 1 of a page.
func newTestDocument(vendorID, url, content string) *domain.Document {
	return &domain.Document{
		ID:             uuid.New().String(),
		VendorID:       vendorID,
		URL:            url,
		URLHash:        "urlhash-" + url,
		Type:           domain.DocumentTypeSecurityPage,
		Title:          "Security",
		CleanedContent: content,
		ContentHash:    "hash-" + content,
		Version:        1,
		HTTPStatus:     200,
		CrawledAt:      time.Now().UTC(),
	}
}

func newTestChunk(content string, position int, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:        uuid.New().String(),
		Content:   content,
		Position:  position,
		Embedding: embedding,
		Metadata:  map[string]any{"start_token": position},
	}
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(tempDir, dbFileName), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewStore(nested)
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStore_MigrationsRecorded(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewStore(tempDir)
	require.NoError(t, err)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNewStore_Tables(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	for _, table := range []string{"vendors", "documents", "document_chunks", "crawl_jobs", "scheduled_tasks", "task_results"} {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var enabled int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestFloat32RoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestTimeFormatSortsLexically(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := a.Add(time.Nanosecond * 500)
	assert.Less(t, formatTime(a), formatTime(b))
	assert.True(t, parseTime(formatTime(b)).Equal(b))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
