package source

import (
	"context"
	"fmt"
	"time"

	"formalizacion/internal/config"
	"formalizacion/internal/log"
)

// Kind selects a source adapter.
type Kind string

const (
	KindSocrata Kind = "socrata"
	KindFile    Kind = "file"
	KindSheets  Kind = "sheets"
)

// String implements fmt.Stringer
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindSocrata, KindFile, KindSheets:
		return true
	default:
		return false
	}
}

// Config holds what every adapter may need.
type Config struct {
	Kind    Kind
	URL     string
	Path    string
	Timeout time.Duration
	Sheets  SheetsConfig
}

// FromAppConfig converts the application config to source config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	kind := Kind(appConfig.DataSource)
	if !kind.IsValid() {
		return Config{}, fmt.Errorf("invalid data source in config: %s", appConfig.DataSource)
	}
	return Config{
		Kind:    kind,
		URL:     appConfig.DatasetURL,
		Path:    appConfig.DatasetFile,
		Timeout: appConfig.FetchTimeout,
		Sheets: SheetsConfig{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			Range:           appConfig.GoogleSheetRange,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
		},
	}, nil
}

// New builds the adapter selected by cfg.Kind.
func New(ctx context.Context, cfg Config, logger *log.Logger) (Source, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSource)

	switch cfg.Kind {
	case KindSocrata:
		if cfg.URL == "" {
			cfg.URL = config.DefaultDatasetURL
		}
		logger.Info("Initialized HTTP source", "url", cfg.URL, "timeout", cfg.Timeout)
		return NewHTTP(cfg.URL, cfg.Timeout), nil
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file source requires a path")
		}
		logger.Info("Initialized file source", "path", cfg.Path)
		return NewFile(cfg.Path), nil
	case KindSheets:
		src, err := NewSheets(ctx, cfg.Sheets, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets source: %w", err)
		}
		logger.Info("Initialized Google Sheets source", "range", cfg.Sheets.Range)
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", cfg.Kind)
	}
}
