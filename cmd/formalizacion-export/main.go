// Command formalizacion-export writes the dashboard for one selection to disk:
// an xlsx workbook plus the time series and category charts as PNG files.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"formalizacion/internal/chart"
	"formalizacion/internal/cli"
	"formalizacion/internal/export"
	"formalizacion/internal/log"
	"formalizacion/internal/services"
)

func main() {
	var (
		start       = flag.String("start", "", "first date, YYYY-MM-DD or YYYY-MM (default: first record)")
		end         = flag.String("end", "", "last date, YYYY-MM-DD or YYYY-MM (default: last record)")
		granularity = flag.String("granularity", "day", "day, month, quarter, semester or year")
		category    = flag.String("category", "none", "none, gender, disability, formalization_subject or family_number")
		outDir      = flag.String("out", ".", "output directory")
		timeout     = flag.Duration("timeout", 5*time.Minute, "overall time limit")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger("info", "text")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentExport)

	q, err := services.ParseQuery(url.Values{
		"start":       {*start},
		"end":         {*end},
		"granularity": {*granularity},
		"category":    {*category},
	})
	if err != nil {
		logger.Error("Invalid selection", log.FieldError, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	app, err := cli.BuildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}

	view, err := app.Service.Dashboard(ctx, q)
	if err != nil {
		logger.Error("Failed to compute dashboard", log.FieldError, err)
		os.Exit(1)
	}

	written, err := writeAll(*outDir, view)
	if err != nil {
		logger.Error("Export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export complete",
		append(log.NewFields().
			WithOperation(log.OpExport).
			WithSelection(view.Range.Start.String(), view.Range.End.String(), string(view.Granularity), string(view.Category)).
			ToSlice(), log.FieldRows, view.Rows, "files", written)...)
}

// writeAll renders every artifact of view into dir and returns the paths written.
func writeAll(dir string, view services.View) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	base := fmt.Sprintf("formalizacion_%s_%s", view.Range.Start, view.Range.End)

	var written []string
	write := func(name string, render func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(base+".xlsx", func(b *bytes.Buffer) error {
		return export.Write(b, view)
	}); err != nil {
		return written, err
	}
	if err := write(base+"_serie.png", func(b *bytes.Buffer) error {
		return chart.TimeSeriesPNG(b, chart.TimeSeriesTitle(view.Granularity), view.Granularity, view.Series)
	}); err != nil {
		return written, err
	}
	if view.ShowCategories() {
		if err := write(base+"_categorias.png", func(b *bytes.Buffer) error {
			return chart.CategoriesPNG(b, chart.CategoriesTitle(view.Category), view.Counts)
		}); err != nil {
			return written, err
		}
	}
	return written, nil
}
