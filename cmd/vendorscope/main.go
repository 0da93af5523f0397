// Command vendorscope crawls vendor trust pages and retrieves cited
// evidence from them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/vendorscope/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vendorscope/internal/adapters/driving/cli"
	"github.com/custodia-labs/vendorscope/internal/core/services"
	"github.com/custodia-labs/vendorscope/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Later files win, so a project .env overrides the user one.
	var envPaths []string
	if home, err := os.UserHomeDir(); err == nil {
		envPaths = append(envPaths, filepath.Join(home, ".vendorscope", ".env"))
	}
	envPaths = append(envPaths, ".env")
	if err := file.LoadEnv(envPaths...); err != nil {
		logger.Warn("loading .env: %v", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settings := services.NewSettingsService(configStore)

	cli.SetVersion(version)
	cli.SetSettingsService(settings)
	cli.SetBootstrap(func(ctx context.Context) (*cli.Services, error) {
		return wire(ctx, settings)
	})

	return cli.ExecuteContext(ctx)
}
