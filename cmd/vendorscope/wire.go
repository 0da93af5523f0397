package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/vendorscope/internal/adapters/driven/ai"
	"github.com/custodia-labs/vendorscope/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/vendorscope/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/vendorscope/internal/adapters/driving/cli"
	"github.com/custodia-labs/vendorscope/internal/connectors/web"
	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driven"
	"github.com/custodia-labs/vendorscope/internal/core/services"
	"github.com/custodia-labs/vendorscope/internal/logger"
	htmlnorm "github.com/custodia-labs/vendorscope/internal/normalisers/html"
	"github.com/custodia-labs/vendorscope/internal/postprocessors"
)

// stores groups the persistence ports of the selected backend.
type stores struct {
	vendors   driven.VendorStore
	documents driven.DocumentStore
	jobs      driven.CrawlJobStore
	scheduler driven.SchedulerStore
	closers   []func() error
}

func (s *stores) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// wire builds every service from the current settings.
func wire(ctx context.Context, settingsService *services.SettingsService) (*cli.Services, error) {
	if err := settingsService.Validate(); err != nil {
		return nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	st, err := openStores(ctx, settings)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		logger.Warn("embeddings disabled: %v", err)
	}
	if embedder == nil {
		logger.Warn("no embedding provider configured; crawling and retrieval are unavailable")
	} else {
		st.closers = append(st.closers, embedder.Close)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		_ = st.close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	indexer := services.NewIndexer(embedder, settings.Embedding)
	crawlers := web.NewFactory(settings.Crawler, settings.Relevance, htmlnorm.New())
	orchestrator := services.NewCrawlOrchestrator(
		st.vendors, st.documents, st.jobs, crawlers, pipeline, indexer, settings.Refresh)
	queue := services.NewJobQueue(st.jobs, st.vendors, orchestrator, settings.Jobs)

	logger.Debug("wired %s storage with %s embeddings", settings.Storage.Backend, settings.Embedding.Model)

	return &cli.Services{
		Vendor:    services.NewVendorService(st.vendors),
		Crawl:     queue,
		Document:  services.NewDocumentService(st.documents),
		Retrieval: services.NewRetriever(st.documents, st.vendors, indexer, settings.Retrieval),
		Scheduler: services.NewScheduler(settings.Scheduler, st.scheduler, st.vendors, queue),
		Workers:   queue,
		Close:     st.close,
	}, nil
}

// openStores opens the configured backend. The scheduler's task state
// always lives in the local sqlite database.
func openStores(ctx context.Context, settings *domain.AppSettings) (*stores, error) {
	local, err := sqlite.NewStore("")
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	st := &stores{
		vendors:   local.VendorStore(),
		documents: local.DocumentStore(),
		jobs:      local.CrawlJobStore(),
		scheduler: local.SchedulerStore(),
		closers:   []func() error{local.Close},
	}
	if settings.Storage.Backend != domain.StoragePostgres {
		return st, nil
	}

	pg, err := postgres.Open(ctx, settings.Storage.PostgresDSN, settings.Embedding.Dimensions)
	if err != nil {
		_ = st.close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	st.vendors = pg.VendorStore()
	st.documents = pg.DocumentStore()
	st.jobs = pg.CrawlJobStore()
	st.closers = append(st.closers, pg.Close)
	return st, nil
}
