package file

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/vendorscope/internal/logger"
)

// Environment variables holding secrets. They are never written to the
// TOML file.
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvDatabaseURL  = "DATABASE_URL"
)

// LoadEnv loads each existing .env file into the process environment,
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Overload(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		logger.Debug("loaded environment from %s", p)
	}
	return nil
}
