package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/wrokdesk/desk.db
worker: dana
addr: 127.0.0.1:9090
cors_origins: [https://portal.example.com]
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/wrokdesk/desk.db", cfg.Database)
	assert.Equal(t, "dana", cfg.Worker)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, []string{"https://portal.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "worker: dana\nlog:\n  level: info\n")
	t.Setenv("WROKDESK_WORKER", "lee")
	t.Setenv("WROKDESK_LOG_LEVEL", "error")
	t.Setenv("WROKDESK_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("WROKDESK_DB", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lee", cfg.Worker)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.Database)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "invalid log level")

	_, err = Load(writeConfig(t, "log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "invalid log format")

	_, err = Load(writeConfig(t, "worker: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config")
}
