package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultDatasetURL is the public CSV export of the land formalization dataset.
const DefaultDatasetURL = "https://www.datos.gov.co/resource/qzze-veut.csv?$limit=150000"

type Config struct {
	// HTTP Server
	Port string `envconfig:"PORT" default:"8081"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Data source
	DataSource   string `envconfig:"DATA_SOURCE" default:"socrata"`
	DatasetURL   string `envconfig:"DATASET_URL"`
	DatasetFile  string `envconfig:"DATASET_FILE"`
	Municipality string `envconfig:"MUNICIPALITY" default:"SANTIAGO DE CALI"`

	// Google Sheets mirror
	GoogleSpreadsheetID      string `envconfig:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetRange         string `envconfig:"GOOGLE_SHEET_RANGE" default:"Datos!A:W"`
	GoogleServiceAccountFile string `envconfig:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `envconfig:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	// Fetch policy
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"60s"`
	FetchAttempts  int           `envconfig:"FETCH_ATTEMPTS" default:"4"`
	FetchBaseDelay time.Duration `envconfig:"FETCH_BASE_DELAY" default:"1s"`
	FetchMaxDelay  time.Duration `envconfig:"FETCH_MAX_DELAY" default:"30s"`
	WarmOnStart    bool          `envconfig:"WARM_ON_START" default:"true"`

	// Aggregate memoization
	CacheSize int           `envconfig:"CACHE_SIZE" default:"256"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"30m"`

	// Rate limiting
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// Reverse proxies allowed to set X-Forwarded-For (IPs or CIDRs, comma separated)
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if cfg.DatasetURL == "" {
		cfg.DatasetURL = DefaultDatasetURL
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	// Validate data source
	validSources := []string{"socrata", "file", "sheets"}
	if !slices.Contains(validSources, c.DataSource) {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource, validSources))
	}

	switch c.DataSource {
	case "socrata":
		if parsedURL, err := url.Parse(c.DatasetURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid dataset URL '%s': %v", c.DatasetURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid dataset URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	case "file":
		if c.DatasetFile == "" {
			errors = append(errors, "dataset file path cannot be empty when using file source")
		} else if _, err := os.Stat(c.DatasetFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("dataset file does not exist: %s", c.DatasetFile))
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleSheetRange == "" {
			errors = append(errors, "Google sheet range is required when using sheets source")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if strings.TrimSpace(c.Municipality) == "" {
		errors = append(errors, "municipality cannot be empty")
	}

	// Validate fetch policy
	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	}
	if c.FetchAttempts < 1 || c.FetchAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid fetch attempts %d: must be between 1 and 10", c.FetchAttempts))
	}
	if c.FetchBaseDelay <= 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch base delay %v: must be positive", c.FetchBaseDelay))
	}
	if c.FetchMaxDelay < c.FetchBaseDelay {
		errors = append(errors, fmt.Sprintf("invalid fetch max delay %v: must be at least the base delay %v", c.FetchMaxDelay, c.FetchBaseDelay))
	}

	// Validate caches
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	// Validate rate limiting
	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	for _, p := range c.TrustedProxies {
		p = strings.TrimSpace(p)
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be an IP address or CIDR block", p))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
