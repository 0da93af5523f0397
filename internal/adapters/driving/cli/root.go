// Package cli implements the vendorscope command line with cobra.
//
// Services are package-level and injected by the entrypoint, either
// directly through SetServices or lazily through a Bootstrap that runs
// before any command that needs them.
package cli

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
	"github.com/custodia-labs/vendorscope/internal/core/ports/driving"
	"github.com/custodia-labs/vendorscope/internal/logger"
)

// skipBootstrap marks commands that run without the store and services.
const skipBootstrap = "vendorscope/skip-bootstrap"

var version = "dev"

var (
	verbose  bool
	jsonLogs bool
)

var (
	vendorService    driving.VendorService
	crawlService     driving.CrawlService
	documentService  driving.DocumentService
	retrievalService driving.RetrievalService
	settingsService  SettingsManager
	schedulerService driving.Scheduler
	crawlWorkers     Workers

	bootstrap Bootstrap
	closer    func() error
)

// SettingsManager reads and writes individual configuration keys.
type SettingsManager interface {
	Keys() []string
	GetValue(key string) (string, bool)
	SetValue(key, raw string) error
	Get() (*domain.AppSettings, error)
	Validate() error
}

// Workers runs the crawl job workers for the serve command.
type Workers interface {
	Start(ctx context.Context) error
	Wait()
}

// Services is the set of wired services the commands operate on.
type Services struct {
	Vendor    driving.VendorService
	Crawl     driving.CrawlService
	Document  driving.DocumentService
	Retrieval driving.RetrievalService
	Scheduler driving.Scheduler
	Workers   Workers

	// Close releases the stores. It may be nil.
	Close func() error
}

// Bootstrap builds the services on first use.
type Bootstrap func(ctx context.Context) (*Services, error)

// SetServices installs already wired services.
func SetServices(s *Services) {
	vendorService = s.Vendor
	crawlService = s.Crawl
	documentService = s.Document
	retrievalService = s.Retrieval
	schedulerService = s.Scheduler
	crawlWorkers = s.Workers
	closer = s.Close
}

// SetBootstrap installs the function that wires services for commands
// that need them.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetSettingsService installs the configuration service. It is available
// to every command, including those that skip bootstrap.
func SetSettingsService(s SettingsManager) {
	settingsService = s
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "vendorscope",
	Short: "Vendor trust-page crawler and evidence retrieval",
	Long: `vendorscope discovers and periodically re-crawls the public trust pages
of software vendors (security, privacy, compliance, status), keeps a
versioned history of every page, and retrieves cited evidence for
due-diligence questions.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// shutdown signals by the caller.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetJSON(jsonLogs)

	if bootstrap == nil || !needsServices(cmd) {
		return nil
	}
	services, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

func teardown() error {
	if closer == nil {
		return nil
	}
	err := closer()
	closer = nil
	return err
}

func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[skipBootstrap]; ok {
			return false
		}
	}
	return true
}

func noBootstrap() map[string]string {
	return map[string]string{skipBootstrap: "true"}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// requireService returns a "not configured" error for a nil service.
func requireService(ok bool, name string) error {
	if ok {
		return nil
	}
	return errors.New(name + " service not configured")
}

// serveLogLevel is the level used by long-running processes.
const serveLogLevel = logrus.InfoLevel
