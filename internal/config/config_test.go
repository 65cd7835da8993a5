package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("SHOPFRONT_STORAGE_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, "strict", cfg.Mode)
	assert.True(t, cfg.Strict())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOPFRONT_API_URL", "https://shop.example.com/api")
	t.Setenv("SHOPFRONT_MODE", "relaxed")
	t.Setenv("SHOPFRONT_STORAGE_DIR", dir)
	t.Setenv("SHOPFRONT_LOG_LEVEL", "debug")
	t.Setenv("SHOPFRONT_LOG_FILE", filepath.Join(dir, "client.log"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "relaxed", cfg.Mode)
	assert.False(t, cfg.Strict())
	assert.Equal(t, dir, cfg.StorageDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "client.log"), cfg.LogFile)
}

func TestStorageDirDefaulted(t *testing.T) {
	t.Setenv("SHOPFRONT_STORAGE_DIR", "")
	// os.UserConfigDir needs a home-ish variable on every platform.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shopfront", filepath.Base(cfg.StorageDir))
}

func TestStrictIsTheFallbackMode(t *testing.T) {
	t.Setenv("SHOPFRONT_STORAGE_DIR", t.TempDir())
	t.Setenv("SHOPFRONT_MODE", "something-else")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Strict())
}
