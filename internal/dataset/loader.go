package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"formalizacion/internal/core"
	"formalizacion/internal/log"
	"formalizacion/internal/metrics"
	"formalizacion/internal/source"
)

// DefaultMunicipality is the municipality the dashboard reports on.
const DefaultMunicipality = "SANTIAGO DE CALI"

// Loader fetches the export from a source and cleans it.
type Loader struct {
	src          source.Source
	municipality string
	retry        RetryPolicy
	logger       *log.Logger
	metrics      *metrics.Metrics
	sleep        sleepFunc
}

// Option configures a Loader.
type Option func(*Loader)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(l *Loader) { l.retry = p }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger.WithComponent(log.ComponentDataset) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// NewLoader creates a loader for municipality, reading from src.
func NewLoader(src source.Source, municipality string, opts ...Option) *Loader {
	if municipality == "" {
		municipality = DefaultMunicipality
	}
	l := &Loader{
		src:          src,
		municipality: municipality,
		retry:        DefaultRetryPolicy(),
		logger:       log.Discard().WithComponent(log.ComponentDataset),
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Municipality returns the configured municipality name.
func (l *Loader) Municipality() string {
	return l.municipality
}

// Load fetches and cleans the dataset. Every call goes back to the source;
// memoization is the Cell's job.
func (l *Loader) Load(ctx context.Context) (core.Table, error) {
	start := time.Now()
	name := l.src.Name()
	l.logger.InfoContext(ctx, "Loading dataset",
		log.FieldOperation, log.OpLoad,
		log.FieldSource, name,
		"municipality", l.municipality)

	body, err := l.fetch(ctx)
	if err != nil {
		l.fail(ctx, log.OpFetch, start, err)
		return core.Table{}, err
	}

	table, report, err := Parse(bytes.NewReader(body), l.municipality)
	if err != nil {
		l.fail(ctx, log.OpClean, start, err)
		return core.Table{}, err
	}

	for _, imp := range report.Imputations {
		l.logger.InfoContext(ctx, "Imputed missing values",
			log.FieldOperation, log.OpClean,
			log.FieldColumn, imp.Column,
			log.FieldMode, imp.Mode,
			log.FieldReplaced, imp.Replaced)
	}

	elapsed := time.Since(start)
	l.metrics.ObserveLoad(name, elapsed, table.Len(), nil)
	l.logger.InfoContext(ctx, "Dataset loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldSource, name,
		log.FieldRows, report.RowsRead,
		log.FieldRowsKept, report.RowsKept,
		log.FieldDuration, elapsed.Milliseconds())
	return table, nil
}

func (l *Loader) fail(ctx context.Context, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	l.metrics.ObserveLoad(l.src.Name(), elapsed, 0, err)
	l.logger.ErrorContext(ctx, "Dataset load failed",
		log.FieldOperation, op,
		log.FieldSource, l.src.Name(),
		log.FieldError, err,
		log.FieldDuration, elapsed.Milliseconds())
}

// fetch reads the whole body inside each attempt so a connection dropped
// mid-transfer is retried like any other transient failure.
func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	err := l.retry.run(ctx, l.sleep, func(ctx context.Context, attempt int) error {
		rc, err := l.src.Open(ctx)
		if err == nil {
			body, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				err = fmt.Errorf("%w: read body: %w", core.ErrFetch, err)
			}
		}
		l.metrics.ObserveFetchAttempt(l.src.Name(), err)
		return err
	}, func(attempt int, delay time.Duration, err error) {
		l.logger.WarnContext(ctx, "Fetch failed, retrying",
			log.FieldOperation, log.OpFetch,
			log.FieldSource, l.src.Name(),
			log.FieldAttempt, attempt,
			"retry_in", delay,
			log.FieldError, err)
	})
	if err != nil && !errors.Is(err, core.ErrFetch) {
		err = fmt.Errorf("%w: %w", core.ErrFetch, err)
	}
	return body, err
}
