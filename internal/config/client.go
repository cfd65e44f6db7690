package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Client is the configuration of the rebano command-line client.
type Client struct {
	APIURL         string  `yaml:"api_url"`
	AuthURL        string  `yaml:"auth_url"`
	CredentialFile string  `yaml:"credential_file"`
	Locale         string  `yaml:"locale"`
	Currency       string  `yaml:"currency"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Strict         bool    `yaml:"strict"`
	Cache          Cache   `yaml:"cache"`
}

// Cache configures the content cache.
type Cache struct {
	Dir            string   `yaml:"dir"`
	Version        string   `yaml:"version"`
	Origin         string   `yaml:"origin"`
	Manifest       []string `yaml:"manifest"`
	WaitForClients bool     `yaml:"wait_for_clients"`
}

// DefaultManifest is the browser shell and its CDN dependencies.
var DefaultManifest = []string{
	"/",
	"/index.html",
	"./js/app.js",
	"./js/animals.js",
	"./js/sales.js",
	"./js/feeds.js",
	"./js/inventory.js",
	"./js/purchases.js",
	"./js/reports.js",
	"https://cdn.jsdelivr.net/npm/bootstrap@5.1.3/dist/css/bootstrap.min.css",
	"https://cdn.jsdelivr.net/npm/bootstrap@5.1.3/dist/js/bootstrap.bundle.min.js",
	"https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.0.0/css/all.min.css",
}

// DefaultClient returns the built-in client settings.
func DefaultClient() Client {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = "."
	}
	return Client{
		APIURL:         "http://localhost:8080/api",
		AuthURL:        "http://localhost:8080/auth",
		CredentialFile: filepath.Join(configDir, "rebano", "credentials.json"),
		Locale:         "es-MX",
		Currency:       "MXN",
		RatePerSecond:  10,
		Cache: Cache{
			Dir:      filepath.Join(cacheDir, "rebano"),
			Version:  "rebano-v1.4",
			Origin:   "http://localhost:8080",
			Manifest: DefaultManifest,
		},
	}
}

// LoadClient reads the YAML file at path over the defaults and then applies
// REBANO_* environment overrides. A missing file is not an error.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Client{}, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Client{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	cfg.APIURL = getEnv("REBANO_API_URL", cfg.APIURL)
	cfg.AuthURL = getEnv("REBANO_AUTH_URL", cfg.AuthURL)
	cfg.CredentialFile = getEnv("REBANO_CREDENTIALS", cfg.CredentialFile)
	cfg.Locale = getEnv("REBANO_LOCALE", cfg.Locale)
	cfg.Currency = getEnv("REBANO_CURRENCY", cfg.Currency)
	cfg.RatePerSecond = getFloat("REBANO_RATE", cfg.RatePerSecond)
	cfg.Cache.Dir = getEnv("REBANO_CACHE_DIR", cfg.Cache.Dir)
	cfg.Cache.Version = getEnv("REBANO_CACHE_VERSION", cfg.Cache.Version)
	cfg.Cache.Origin = getEnv("REBANO_ORIGIN", cfg.Cache.Origin)

	if cfg.Cache.Version == "" {
		return Client{}, errors.New("cache version must not be empty")
	}
	return cfg, nil
}
