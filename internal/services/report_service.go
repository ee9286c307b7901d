package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"formalizacion/internal/cache"
	"formalizacion/internal/core"
	"formalizacion/internal/dataset"
	"formalizacion/internal/log"
	"formalizacion/internal/metrics"
)

// Query is the dashboard selector state. Zero values mean "default":
// the full data range, daily buckets and no category breakdown.
type Query struct {
	Start       core.Date
	End         core.Date
	Granularity core.Granularity
	Category    core.Category
}

// View is everything the dashboard renders for one Query.
type View struct {
	Municipality string
	Bounds       core.DateRange
	Range        core.DateRange
	Granularity  core.Granularity
	Category     core.Category
	Series       []core.Bucket
	Counts       []core.CategoryCount
	Rows         int
}

// Selection returns the effective selectors behind v.
func (v View) Selection() Query {
	return Query{Start: v.Range.Start, End: v.Range.End, Granularity: v.Granularity, Category: v.Category}
}

// ShowCategories reports whether the category chart is requested.
func (v View) ShowCategories() bool {
	return v.Category != core.CategoryNone
}

// Options tune the service; zero values fall back to defaults.
type Options struct {
	Municipality string
	CacheSize    int
	CacheTTL     time.Duration
	Logger       *log.Logger
	Metrics      *metrics.Metrics
}

// ReportService answers dashboard queries over the memoized base table.
// Filtered tables and aggregates are cached by content fingerprint plus
// parameters, so a cache hit always equals a recomputation.
type ReportService struct {
	cell         *dataset.Cell
	municipality string
	logger       *log.Logger

	filtered *cache.LRUCache[core.Table]
	series   *cache.LRUCache[[]core.Bucket]
	counts   *cache.LRUCache[[]core.CategoryCount]
}

func NewReportService(cell *dataset.Cell, opts Options) *ReportService {
	if opts.Municipality == "" {
		opts.Municipality = dataset.DefaultMunicipality
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	observe := opts.Metrics.ObserveCacheLookup

	return &ReportService{
		cell:         cell,
		municipality: opts.Municipality,
		logger:       opts.Logger.WithComponent(log.ComponentReport),
		filtered:     cache.NewLRUCache[core.Table]("filtered", opts.CacheSize, opts.CacheTTL).WithObserver(observe),
		series:       cache.NewLRUCache[[]core.Bucket]("series", opts.CacheSize, opts.CacheTTL).WithObserver(observe),
		counts:       cache.NewLRUCache[[]core.CategoryCount]("categories", opts.CacheSize, opts.CacheTTL).WithObserver(observe),
	}
}

// Caches exposes the memoization caches for periodic cleanup.
func (s *ReportService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.filtered, s.series, s.counts}
}

// Municipality returns the municipality being reported on.
func (s *ReportService) Municipality() string {
	return s.municipality
}

// Ready reports whether the base table has been loaded.
func (s *ReportService) Ready() bool {
	return s.cell.Loaded()
}

// LastLoadError returns why the most recent load failed, if it did.
func (s *ReportService) LastLoadError() error {
	return s.cell.LastError()
}

// Dataset returns the cleaned base table, loading it on first use.
func (s *ReportService) Dataset(ctx context.Context) (core.Table, error) {
	return s.cell.Get(ctx)
}

// Bounds returns the first and last dates present in the base table.
func (s *ReportService) Bounds(ctx context.Context) (core.DateRange, error) {
	t, err := s.Dataset(ctx)
	if err != nil {
		return core.DateRange{}, err
	}
	b, ok := t.Bounds()
	if !ok {
		return core.DateRange{}, fmt.Errorf("%w: base table is empty", core.ErrEmptyResult)
	}
	return b, nil
}

// Filtered returns the base table restricted to r.
func (s *ReportService) Filtered(ctx context.Context, r core.DateRange) (core.Table, error) {
	if err := r.Validate(); err != nil {
		return core.Table{}, err
	}
	base, err := s.Dataset(ctx)
	if err != nil {
		return core.Table{}, err
	}
	key := fmt.Sprintf("%016x|%s|%s", base.Fingerprint(), r.Start, r.End)
	return s.filtered.GetOrCompute(key, func() (core.Table, error) {
		t, err := core.Filter(base, r)
		if err == nil {
			s.logger.DebugContext(ctx, "Filtered base table",
				log.FieldOperation, log.OpFilter,
				log.FieldStart, r.Start.String(),
				log.FieldEnd, r.End.String(),
				log.FieldRowsKept, t.Len())
		}
		return t, err
	})
}

// TimeSeries counts the records in r per period of width g.
func (s *ReportService) TimeSeries(ctx context.Context, r core.DateRange, g core.Granularity) ([]core.Bucket, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("unknown granularity %q", g)
	}
	t, err := s.Filtered(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.seriesOf(t, g), nil
}

// Categories counts the records in r per value of c, most frequent first.
func (s *ReportService) Categories(ctx context.Context, r core.DateRange, c core.Category) ([]core.CategoryCount, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("unknown category %q", c)
	}
	t, err := s.Filtered(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.countsOf(t, c), nil
}

func (s *ReportService) seriesOf(t core.Table, g core.Granularity) []core.Bucket {
	key := fmt.Sprintf("%016x|%s", t.Fingerprint(), g)
	out, _ := s.series.GetOrCompute(key, func() ([]core.Bucket, error) {
		return core.AggregateByPeriod(t, g), nil
	})
	return slices.Clone(out)
}

func (s *ReportService) countsOf(t core.Table, c core.Category) []core.CategoryCount {
	key := fmt.Sprintf("%016x|%s", t.Fingerprint(), c)
	out, _ := s.counts.GetOrCompute(key, func() ([]core.CategoryCount, error) {
		return core.AggregateByCategory(t, c), nil
	})
	return slices.Clone(out)
}

// Resolve fills the defaults of q and narrows its range to the data bounds.
// A range lying entirely outside the data is kept as is and yields no rows.
func (s *ReportService) Resolve(ctx context.Context, q Query) (Query, core.DateRange, error) {
	bounds, err := s.Bounds(ctx)
	if err != nil {
		return q, core.DateRange{}, err
	}
	if q.Granularity == "" {
		q.Granularity = core.Day
	}
	if q.Category == "" {
		q.Category = core.CategoryNone
	}
	if !q.Granularity.IsValid() {
		return q, bounds, fmt.Errorf("unknown granularity %q", q.Granularity)
	}
	if !q.Category.IsValid() {
		return q, bounds, fmt.Errorf("unknown category %q", q.Category)
	}

	if q.Start.IsZero() {
		q.Start = bounds.Start
	}
	if q.End.IsZero() {
		q.End = bounds.End
	}
	requested := core.DateRange{Start: q.Start, End: q.End}
	if err := requested.Validate(); err != nil {
		return q, bounds, err
	}

	clamped := requested
	if clamped.Start.Before(bounds.Start.Time) {
		clamped.Start = bounds.Start
	}
	if clamped.End.After(bounds.End.Time) {
		clamped.End = bounds.End
	}
	if clamped.Validate() == nil {
		q.Start, q.End = clamped.Start, clamped.End
	}
	return q, bounds, nil
}

// Dashboard computes the whole page state for q.
func (s *ReportService) Dashboard(ctx context.Context, q Query) (View, error) {
	q, bounds, err := s.Resolve(ctx, q)
	if err != nil {
		return View{}, err
	}
	r := core.DateRange{Start: q.Start, End: q.End}

	t, err := s.Filtered(ctx, r)
	if err != nil {
		return View{}, err
	}

	view := View{
		Municipality: s.municipality,
		Bounds:       bounds,
		Range:        r,
		Granularity:  q.Granularity,
		Category:     q.Category,
		Series:       s.seriesOf(t, q.Granularity),
		Counts:       s.countsOf(t, q.Category),
		Rows:         t.Len(),
	}
	s.logger.DebugContext(ctx, "Dashboard computed",
		append(log.NewFields().
			WithOperation(log.OpAggregate).
			WithSelection(r.Start.String(), r.End.String(), string(q.Granularity), string(q.Category)).
			ToSlice(), log.FieldRows, view.Rows)...)
	return view, nil
}
