package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadAppConfig_MissingPath(t *testing.T) {
	cfg, err := LoadAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, &AppConfig{}, cfg)
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	require.NoError(t, err)
	assert.Equal(t, &AppConfig{}, cfg)
}

func TestLoadAppConfig_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	writeFile(t, path, `
name = nightly
log_level = debug
durable = true
db_path = /var/lib/jobberd/schedules.db
`)

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Durable)
	assert.Equal(t, "/var/lib/jobberd/schedules.db", cfg.DBPath)
}

func TestLoadAppConfig_InvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	writeFile(t, path, `log_level = shout`)

	_, err := LoadAppConfig(path)
	require.Error(t, err)
}

func TestLoadAppConfig_InvalidMetricsAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	writeFile(t, path, `metrics_address = not-an-address`)

	_, err := LoadAppConfig(path)
	require.Error(t, err)
}
