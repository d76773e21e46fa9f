package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig       = "SHORTS_GO_CONFIG"
	EnvClientID     = "SHORTS_GO_CLIENT_ID"
	EnvClientSecret = "SHORTS_GO_CLIENT_SECRET"
	EnvDataDir      = "SHORTS_GO_DATA_DIR"
)

// EnvOverrides holds values read from environment variables.
type EnvOverrides struct {
	ConfigPath   string // SHORTS_GO_CONFIG
	ClientID     string // SHORTS_GO_CLIENT_ID
	ClientSecret string // SHORTS_GO_CLIENT_SECRET
	DataDir      string // SHORTS_GO_DATA_DIR
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are never overridden, and a missing file is not an
// error.
func LoadDotEnv(path string, logger *slog.Logger) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("loading %s: %w", path, err)
	}

	logger.Debug("loaded environment file", slog.String("path", path))

	return nil
}

// ReadEnvOverrides reads the override variables. It does not modify any
// Config; Resolve applies the fields.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		DataDir:      os.Getenv(EnvDataDir),
	}

	logger.Debug("environment overrides",
		slog.String("config_path", env.ConfigPath),
		slog.Bool("client_id", env.ClientID != ""),
		slog.Bool("client_secret", env.ClientSecret != ""),
		slog.String("data_dir", env.DataDir),
	)

	return env
}
