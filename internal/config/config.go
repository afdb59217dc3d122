// Package config loads wrokdesk settings: defaults, then the YAML file at
// ~/.wrokdesk/config.yaml, then WROKDESK_* environment variables. Command
// line flags are applied last by the commands package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the CLI and server read
type Config struct {
	Database    string    `yaml:"database"`
	Worker      string    `yaml:"worker"`
	Addr        string    `yaml:"addr"`
	CORSOrigins []string  `yaml:"cors_origins"`
	Log         LogConfig `yaml:"log"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in settings. Database is left empty and
// resolved to the home directory by the db package.
func Default() Config {
	return Config{
		Addr:        ":8080",
		CORSOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.wrokdesk/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".wrokdesk", "config.yaml"), nil
}

// Load reads the config file at path over the defaults and applies the
// environment. A missing file is not an error. An empty path means
// DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, fmt.Errorf("failed to locate config: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Database = getEnv("WROKDESK_DB", c.Database)
	c.Worker = getEnv("WROKDESK_WORKER", c.Worker)
	c.Addr = getEnv("WROKDESK_ADDR", c.Addr)
	c.CORSOrigins = getEnvList("WROKDESK_CORS_ORIGINS", c.CORSOrigins)
	c.Log.Level = getEnv("WROKDESK_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("WROKDESK_LOG_FORMAT", c.Log.Format)
}

// Validate checks the values that have a fixed set of choices
func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
