package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("AUTH_BURST", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 10, cfg.AuthBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRY", "30m")
	t.Setenv("AUTH_RATE", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWTExpiry)
	assert.Equal(t, 5.0, cfg.AuthRate)
}

func TestLoadClient_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "es-MX", cfg.Locale)
	assert.Equal(t, "rebano-v1.4", cfg.Cache.Version)
	assert.Equal(t, DefaultManifest, cfg.Cache.Manifest)
}

func TestLoadClient_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebano.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://rancho.example/api
locale: en-US
strict: true
cache:
  version: rebano-v2
  manifest:
    - /
    - /index.html
`), 0o600))
	t.Setenv("REBANO_LOCALE", "es-MX")

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rancho.example/api", cfg.APIURL)
	assert.Equal(t, "es-MX", cfg.Locale)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "rebano-v2", cfg.Cache.Version)
	assert.Equal(t, []string{"/", "/index.html"}, cfg.Cache.Manifest)
	assert.Equal(t, "MXN", cfg.Currency)
}

func TestLoadClient_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebano.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unterminated"), 0o600))
	_, err := LoadClient(path)
	assert.Error(t, err)
}
