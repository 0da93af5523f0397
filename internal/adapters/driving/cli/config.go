package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write configuration",
	Long: `Reads and writes keys of ~/.vendorscope/config.toml.

Secrets are never stored in the file: set OPENAI_API_KEY and DATABASE_URL
in the environment or in a .env file.`,
	Annotations: noBootstrap(),
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the stored value of a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a key",
	Long: `Sets a key. Lists are comma separated, durations use Go syntax such as
1s or 45m, and booleans are true or false.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every key with its stored value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}

	value, ok := settingsService.GetValue(args[0])
	if !ok {
		cmd.Printf("%s is not set (default applies)\n", args[0])
		return nil
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}

	if err := settingsService.SetValue(args[0], args[1]); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("failed to save config: %w", err)
	}
	cmd.Printf("%s = %s\n", args[0], args[1])

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings"); err != nil {
		return err
	}

	for _, key := range settingsService.Keys() {
		value, ok := settingsService.GetValue(key)
		if !ok {
			value = "(default)"
		}
		cmd.Printf("  %-36s %s\n", key, value)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Println()
	cmd.Printf("  Embedding: %s, model %s, %d dimensions\n",
		settings.Embedding.Provider.Description(), settings.Embedding.Model, settings.Embedding.Dimensions)
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API key:   %s\n", maskAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Storage:   %s\n", settings.Storage.Backend)
	return nil
}

// maskAPIKey shows only the first and last four characters of a key.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
