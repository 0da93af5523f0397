package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/vendorscope/internal/logger"
	"github.com/custodia-labs/vendorscope/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the crawl workers, the refresh scheduler and the metrics endpoint",
	Long: `Runs until interrupted:
  - crawl workers that claim queued jobs
  - the scheduler, which queues a crawl for every active vendor whose
    refresh is due
  - an HTTP listener serving /metrics (Prometheus) and /healthz

Jobs left running by a previous process are marked failed on start.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "listen address for /metrics and /healthz")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireService(crawlWorkers != nil, "crawl worker"); err != nil {
		return err
	}
	if !verbose {
		logger.SetLevel(serveLogLevel)
	}

	g, ctx := errgroup.WithContext(commandContext(cmd))

	if err := crawlWorkers.Start(ctx); err != nil {
		return err
	}
	g.Go(func() error {
		crawlWorkers.Wait()
		return nil
	})

	if schedulerService != nil {
		g.Go(func() error {
			err := schedulerService.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			return schedulerService.Stop()
		})
	}

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           newServeMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("serving metrics on %s", serveAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	cmd.Printf("vendorscope serving (metrics on %s). Press Ctrl+C to stop.\n", serveAddr)
	return g.Wait()
}

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
