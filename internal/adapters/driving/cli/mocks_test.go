package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

type mockVendorService struct {
	vendors []domain.Vendor
	added   *domain.Vendor
	removed string
	active  map[string]bool
	err     error
}

func (m *mockVendorService) Add(_ context.Context, v *domain.Vendor) error {
	if m.err != nil {
		return m.err
	}
	v.ID = "v-new"
	v.Domain = domain.NormaliseDomain(v.Domain)
	m.added = v
	return nil
}

func (m *mockVendorService) Get(ctx context.Context, id string) (*domain.Vendor, error) {
	return m.Resolve(ctx, id)
}

func (m *mockVendorService) Resolve(_ context.Context, ref string) (*domain.Vendor, error) {
	for i := range m.vendors {
		if m.vendors[i].ID == ref || m.vendors[i].Domain == ref {
			v := m.vendors[i]
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockVendorService) List(_ context.Context) ([]domain.Vendor, error) {
	return m.vendors, m.err
}

func (m *mockVendorService) Update(_ context.Context, _ *domain.Vendor) error { return m.err }

func (m *mockVendorService) SetActive(_ context.Context, id string, active bool) error {
	if m.active == nil {
		m.active = map[string]bool{}
	}
	m.active[id] = active
	return m.err
}

func (m *mockVendorService) Remove(_ context.Context, id string) error {
	m.removed = id
	return m.err
}

type mockCrawlService struct {
	job       *domain.CrawlJob
	jobs      []domain.CrawlJob
	err       error
	submitted string
	ranNow    string
	cancelled string
	listedFor string
}

func (m *mockCrawlService) Submit(_ context.Context, vendorID string) (*domain.CrawlJob, error) {
	m.submitted = vendorID
	return m.job, m.err
}

func (m *mockCrawlService) RunNow(_ context.Context, vendorID string) (*domain.CrawlJob, error) {
	m.ranNow = vendorID
	return m.job, m.err
}

func (m *mockCrawlService) Cancel(_ context.Context, jobID string) (*domain.CrawlJob, error) {
	m.cancelled = jobID
	return m.job, m.err
}

func (m *mockCrawlService) Get(_ context.Context, _ string) (*domain.CrawlJob, error) {
	return m.job, m.err
}

func (m *mockCrawlService) List(_ context.Context, vendorID string, _ int) ([]domain.CrawlJob, error) {
	m.listedFor = vendorID
	return m.jobs, m.err
}

type mockRetrievalService struct {
	chunks    []domain.RetrievedChunk
	citations []domain.Citation
	context   string
	err       error
	lastQuery domain.RetrieveQuery
}

func (m *mockRetrievalService) Retrieve(_ context.Context, q domain.RetrieveQuery) ([]domain.RetrievedChunk, error) {
	m.lastQuery = q
	return m.chunks, m.err
}

func (m *mockRetrievalService) Citations(_ context.Context, q domain.RetrieveQuery) ([]domain.Citation, error) {
	m.lastQuery = q
	return m.citations, m.err
}

func (m *mockRetrievalService) BuildContext(_ context.Context, q domain.RetrieveQuery) (string, error) {
	m.lastQuery = q
	return m.context, m.err
}

func (m *mockRetrievalService) VendorContext(_ context.Context, _ string) (*domain.VendorContext, error) {
	return nil, m.err
}

type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) ListLatest(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetByURL(_ context.Context, _, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) History(_ context.Context, _, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

type mockWorkers struct {
	mu      sync.Mutex
	started bool
}

func (m *mockWorkers) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func (m *mockWorkers) Wait() {}

func acmeVendorService() *mockVendorService {
	return &mockVendorService{vendors: []domain.Vendor{
		{ID: "v-acme", Name: "Acme", Domain: "acme.com", Type: domain.VendorTypePayments, IsActive: true},
	}}
}

// withServices installs services for one test and restores the previous
// ones afterwards.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	prev := &Services{
		Vendor:    vendorService,
		Crawl:     crawlService,
		Document:  documentService,
		Retrieval: retrievalService,
		Scheduler: schedulerService,
		Workers:   crawlWorkers,
	}
	prevBootstrap := bootstrap
	bootstrap = nil
	SetServices(s)
	t.Cleanup(func() {
		SetServices(prev)
		bootstrap = prevBootstrap
	})
}

// executeCommand runs rootCmd with args and returns its combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so state does not leak
// between executions of the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
