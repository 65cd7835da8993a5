package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the environment-level settings of the storefront client.
type Config struct {
	// APIBaseURL is the root of the remote storefront API.
	APIBaseURL string `env:"SHOPFRONT_API_URL" envDefault:"http://localhost:5000/api"`
	// Mode selects forced-logout behavior: "strict" hard-resets the host,
	// "relaxed" only emits a notification. Strict mode also enables the
	// restore-time profile verification.
	Mode string `env:"SHOPFRONT_MODE" envDefault:"strict"`
	// StorageDir is where the durable session state lives. Defaults to the
	// user config directory.
	StorageDir string `env:"SHOPFRONT_STORAGE_DIR"`
	LogLevel   string `env:"SHOPFRONT_LOG_LEVEL" envDefault:"info"`
	// LogFile, when set, sends logs to a rotated file instead of stdout.
	LogFile string `env:"SHOPFRONT_LOG_FILE"`
}

// Load reads configuration from the environment, with an optional .env file
// merged in first.
func Load() (*Config, error) {
	// A missing .env is fine; the process environment wins either way.
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.StorageDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.StorageDir = filepath.Join(base, "shopfront")
	}

	return &cfg, nil
}

// Strict reports whether the deployment mode is strict.
func (c *Config) Strict() bool {
	return c.Mode != "relaxed"
}
