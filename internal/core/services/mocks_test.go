package services

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driving"
)

// mockVendorStore implements driven.VendorStore in memory.
type mockVendorStore struct {
	mu      sync.Mutex
	vendors map[string]domain.Vendor
	listErr error
}

func newMockVendorStore(vendors ...domain.Vendor) *mockVendorStore {
	m := &mockVendorStore{vendors: make(map[string]domain.Vendor)}
	for _, v := range vendors {
		m.vendors[v.ID] = v
	}
	return m
}

func (m *mockVendorStore) SaveVendor(_ context.Context, vendor *domain.Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.vendors {
		if id != vendor.ID && v.Domain == vendor.Domain {
			return domain.ErrAlreadyExists
		}
	}
	m.vendors[vendor.ID] = *vendor
	return nil
}

func (m *mockVendorStore) GetVendor(_ context.Context, id string) (*domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (m *mockVendorStore) GetVendorByDomain(_ context.Context, domainName string) (*domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vendors {
		if v.Domain == domainName {
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockVendorStore) ListVendors(_ context.Context) ([]domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Vendor, 0, len(m.vendors))
	for _, v := range m.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockVendorStore) ListDueVendors(ctx context.Context, now time.Time) ([]domain.Vendor, error) {
	all, err := m.ListVendors(ctx)
	if err != nil {
		return nil, err
	}
	var due []domain.Vendor
	for _, v := range all {
		if v.IsDue(now) {
			due = append(due, v)
		}
	}
	return due, nil
}

func (m *mockVendorStore) RecordCrawl(_ context.Context, vendorID string, crawledAt, nextCrawl time.Time, discovered []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[vendorID]
	if !ok {
		return domain.ErrNotFound
	}
	v.LastCrawledAt = &crawledAt
	v.NextCrawlScheduledAt = &nextCrawl
	v.DiscoveredURLs = discovered
	m.vendors[vendorID] = v
	return nil
}

func (m *mockVendorStore) DeleteVendor(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vendors[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.vendors, id)
	return nil
}

// mockCrawlService records submissions and can fail per vendor.
type mockCrawlService struct {
	mu        sync.Mutex
	submitted []string
	errs      map[string]error
}

func (m *mockCrawlService) Submit(_ context.Context, vendorID string) (*domain.CrawlJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[vendorID]; err != nil {
		return nil, err
	}
	m.submitted = append(m.submitted, vendorID)
	return &domain.CrawlJob{ID: "job-" + vendorID, VendorID: vendorID, Status: domain.CrawlStatusPending}, nil
}

func (m *mockCrawlService) RunNow(ctx context.Context, vendorID string) (*domain.CrawlJob, error) {
	return m.Submit(ctx, vendorID)
}

func (m *mockCrawlService) Cancel(_ context.Context, _ string) (*domain.CrawlJob, error) {
	return nil, domain.ErrNotFound
}

func (m *mockCrawlService) Get(_ context.Context, _ string) (*domain.CrawlJob, error) {
	return nil, domain.ErrNotFound
}

func (m *mockCrawlService) List(_ context.Context, _ string, _ int) ([]domain.CrawlJob, error) {
	return nil, nil
}

func (m *mockCrawlService) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submitted...)
}

// fakeEmbedder returns deterministic bag-of-words vectors, so texts that
// share words score higher against each other.
type fakeEmbedder struct {
	mu       sync.Mutex
	dims     int
	err      error
	batches  [][]string
	override func(texts []string) ([][]float32, error)
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{dims: dims}
}

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, f.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,:;!?\"'()")))
		v[h.Sum32()%uint32(f.dims)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	err, override := f.err, f.override
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if override != nil {
		return override(texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeEmbedder) BatchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeEmbedder) Dimensions() int            { return f.dims }
func (f *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (f *fakeEmbedder) Ping(context.Context) error { return f.err }
func (f *fakeEmbedder) Close() error               { return nil }

// Ensure mocks implement interfaces
var (
	_ driven.VendorStore      = (*mockVendorStore)(nil)
	_ driven.EmbeddingService = (*fakeEmbedder)(nil)
	_ driving.CrawlService    = (*mockCrawlService)(nil)
)
