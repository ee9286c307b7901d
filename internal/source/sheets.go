package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"formalizacion/internal/log"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsConfig locates a Google Sheets mirror of the dataset.
type SheetsConfig struct {
	SpreadsheetID   string
	Range           string // A1 notation covering the 23 columns, header included
	CredentialsFile string
	CredentialsJSON string
}

// SheetsSource reads the dataset from a spreadsheet and re-encodes it as CSV.
type SheetsSource struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
}

// NewSheets creates a Sheets service from service account credentials,
// falling back to Application Default Credentials when none are configured.
func NewSheets(ctx context.Context, cfg SheetsConfig, logger *log.Logger) (*SheetsSource, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewSheetsWithService(svc, cfg.SpreadsheetID, cfg.Range), nil
}

// NewSheetsWithService wraps an existing service.
func NewSheetsWithService(svc *gsheet.Service, spreadsheetID, rng string) *SheetsSource {
	return &SheetsSource{svc: svc, spreadsheetID: spreadsheetID, rng: rng}
}

func newSheetsService(ctx context.Context, cfg SheetsConfig, logger *log.Logger) (*gsheet.Service, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsReadonlyScope)}

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.InfoContext(ctx, "Read service account credentials", "path", cfg.CredentialsFile)
		opts = append(opts, goption.WithCredentialsJSON(credentialsJSON))
	default:
		logger.InfoContext(ctx, "No service account configured, using application default credentials")
	}

	return gsheet.NewService(ctx, opts...)
}

func (s *SheetsSource) Name() string { return "sheets" }

func (s *SheetsSource) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &HTTPError{
				StatusCode: gerr.Code,
				Status:     gerr.Message,
				URL:        fmt.Sprintf("sheets:%s/%s", s.spreadsheetID, s.rng),
			}
		}
		return nil, fetchError(s.Name(), err)
	}

	body, err := valuesToCSV(resp.Values)
	if err != nil {
		return nil, fetchError(s.Name(), err)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// valuesToCSV encodes a values matrix. The API omits trailing empty cells, so
// every row is padded to the width of the header row.
func valuesToCSV(values [][]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if len(values) == 0 {
		return buf.Bytes(), nil
	}
	width := len(values[0])
	w := csv.NewWriter(&buf)
	for _, row := range values {
		record := make([]string, max(width, len(row)))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
