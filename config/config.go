// Package config loads process configuration from the environment.
//
// A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is constructed once at startup and passed by pointer to every
// store constructor.
type Config struct {
	// Secret is the hex-encoded 32-byte store key. It is validated when a
	// store is opened, not here, so commands that do not touch the store
	// (such as secret generation) still run without it.
	Secret string `env:"SECRET"`

	DataDir string `env:"DATA_DIR" envDefault:"data"`
	Backend string `env:"STORE_BACKEND" envDefault:"file"`

	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port string `env:"PORT" envDefault:"8080"`

	// AllowedOrigins lists the CORS origins accepted by the server; "*"
	// allows any.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the optional env files (default ".env") and parses the
// environment into a Config.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}
