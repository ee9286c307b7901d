package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:           "8081",
		LogLevel:       "info",
		LogFormat:      "text",
		DataSource:     "socrata",
		DatasetURL:     DefaultDatasetURL,
		Municipality:   "SANTIAGO DE CALI",
		FetchTimeout:   60 * time.Second,
		FetchAttempts:  4,
		FetchBaseDelay: time.Second,
		FetchMaxDelay:  30 * time.Second,
		CacheSize:      256,
		CacheTTL:       30 * time.Minute,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
}

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a\n"), 0o644))

	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid socrata config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid file config",
			mutate: func(c *Config) {
				c.DataSource = "file"
				c.DatasetFile = csvPath
			},
		},
		{
			name: "valid sheets config",
			mutate: func(c *Config) {
				c.DataSource = "sheets"
				c.GoogleSpreadsheetID = "sheet-id"
				c.GoogleSheetRange = "Datos!A:W"
			},
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data source",
			mutate:      func(c *Config) { c.DataSource = "postgres" },
			wantErr:     true,
			errorString: "invalid data source 'postgres'",
		},
		{
			name:        "invalid dataset URL scheme",
			mutate:      func(c *Config) { c.DatasetURL = "ftp://example.org/data.csv" },
			wantErr:     true,
			errorString: "invalid dataset URL scheme 'ftp'",
		},
		{
			name:        "file source missing path",
			mutate:      func(c *Config) { c.DataSource = "file" },
			wantErr:     true,
			errorString: "dataset file path cannot be empty when using file source",
		},
		{
			name: "file source path does not exist",
			mutate: func(c *Config) {
				c.DataSource = "file"
				c.DatasetFile = filepath.Join(dir, "missing.csv")
			},
			wantErr:     true,
			errorString: "dataset file does not exist",
		},
		{
			name:        "sheets source missing spreadsheet",
			mutate:      func(c *Config) { c.DataSource = "sheets" },
			wantErr:     true,
			errorString: "Google Spreadsheet ID is required when using sheets source",
		},
		{
			name:        "empty municipality",
			mutate:      func(c *Config) { c.Municipality = "  " },
			wantErr:     true,
			errorString: "municipality cannot be empty",
		},
		{
			name:        "too many fetch attempts",
			mutate:      func(c *Config) { c.FetchAttempts = 11 },
			wantErr:     true,
			errorString: "invalid fetch attempts 11: must be between 1 and 10",
		},
		{
			name:        "max delay below base delay",
			mutate:      func(c *Config) { c.FetchMaxDelay = 500 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid fetch max delay",
		},
		{
			name:        "zero cache size",
			mutate:      func(c *Config) { c.CacheSize = 0 },
			wantErr:     true,
			errorString: "invalid cache size 0: must be at least 1",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateTrustedProxies(t *testing.T) {
	cfg := validConfig()
	cfg.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1"}
	assert.NoError(t, cfg.Validate())

	cfg.TrustedProxies = []string{"10.0.0.0/8", "load-balancer"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trusted proxy 'load-balancer'")
}

func TestLoad_TrustedProxiesFromEnvironment(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
}

func TestConfig_ValidateCombinesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.CacheSize = 0
	cfg.RateLimitBurst = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed:")
	assert.Contains(t, err.Error(), "invalid port 0")
	assert.Contains(t, err.Error(), "invalid cache size 0")
	assert.Contains(t, err.Error(), "invalid rate limit burst 0")
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATA_SOURCE", "DATASET_URL", "MUNICIPALITY", "FETCH_ATTEMPTS", "CACHE_TTL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "socrata", cfg.DataSource)
	assert.Equal(t, DefaultDatasetURL, cfg.DatasetURL)
	assert.Equal(t, "SANTIAGO DE CALI", cfg.Municipality)
	assert.Equal(t, 4, cfg.FetchAttempts)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.WarmOnStart)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_SOURCE", "file")
	t.Setenv("MUNICIPALITY", "PALMIRA")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "file", cfg.DataSource)
	assert.Equal(t, "PALMIRA", cfg.Municipality)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("FETCH_ATTEMPTS", "many")
	_, err := Load()
	assert.Error(t, err)
}
