package services

import (
	"context"
	"sync/atomic"
	"testing"

	"formalizacion/internal/core"
	"formalizacion/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	table core.Table
	err   error
	calls atomic.Int32
}

func (l *stubLoader) Load(ctx context.Context) (core.Table, error) {
	l.calls.Add(1)
	return l.table, l.err
}

func record(y, m, d int, gender string) core.Record {
	return core.Record{
		Date:     core.NewDate(y, m, d),
		Year:     y,
		Month:    m,
		Quarter:  core.QuarterLabel(m),
		Semester: core.SemesterLabel(m),
		Gender:   gender,
	}
}

func newTestService(t *testing.T) (*ReportService, *stubLoader) {
	t.Helper()
	loader := &stubLoader{table: core.NewTable([]core.Record{
		record(2020, 1, 15, "MUJER"),
		record(2020, 1, 20, "HOMBRE"),
		record(2020, 4, 10, "MUJER"),
		record(2021, 1, 1, "MUJER"),
	})}
	return NewReportService(dataset.NewCell(loader), Options{}), loader
}

func TestReportService_DashboardDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.Dashboard(context.Background(), Query{})
	require.NoError(t, err)

	assert.Equal(t, dataset.DefaultMunicipality, view.Municipality)
	assert.Equal(t, core.Day, view.Granularity)
	assert.Equal(t, core.CategoryNone, view.Category)
	assert.False(t, view.ShowCategories())
	assert.Equal(t, core.NewDate(2020, 1, 15), view.Range.Start)
	assert.Equal(t, core.NewDate(2021, 1, 1), view.Range.End)
	assert.Equal(t, view.Bounds, view.Range)
	assert.Equal(t, 4, view.Rows)
	assert.Len(t, view.Series, 4)
	assert.Nil(t, view.Counts)
}

func TestReportService_DashboardSelection(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.Dashboard(context.Background(), Query{
		Start:       core.NewDate(2020, 1, 1),
		End:         core.NewDate(2020, 12, 31),
		Granularity: core.Quarter,
		Category:    core.CategoryGender,
	})
	require.NoError(t, err)

	assert.Equal(t, core.NewDate(2020, 1, 15), view.Range.Start, "start clamped to data")
	assert.Equal(t, core.NewDate(2020, 12, 31), view.Range.End)
	assert.Equal(t, 3, view.Rows)
	assert.Equal(t, []core.Bucket{
		{Start: core.NewDate(2020, 1, 1), Count: 2},
		{Start: core.NewDate(2020, 4, 1), Count: 1},
	}, view.Series)
	assert.Equal(t, []core.CategoryCount{
		{Value: "MUJER", Count: 2},
		{Value: "HOMBRE", Count: 1},
	}, view.Counts)
	assert.True(t, view.ShowCategories())
}

func TestReportService_InvertedRange(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Dashboard(context.Background(), Query{
		Start: core.NewDate(2021, 1, 1),
		End:   core.NewDate(2020, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidRange)
	assert.True(t, core.IsUserError(err))
}

func TestReportService_RangeOutsideData(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.Dashboard(context.Background(), Query{
		Start:       core.NewDate(2030, 1, 1),
		End:         core.NewDate(2030, 6, 30),
		Granularity: core.Month,
		Category:    core.CategoryGender,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Rows)
	assert.Empty(t, view.Series)
	assert.Empty(t, view.Counts)
}

func TestReportService_LoadErrorPropagates(t *testing.T) {
	loader := &stubLoader{err: core.ErrEmptyResult}
	svc := NewReportService(dataset.NewCell(loader), Options{})

	_, err := svc.Dashboard(context.Background(), Query{})
	assert.ErrorIs(t, err, core.ErrEmptyResult)
	assert.False(t, svc.Ready())
	assert.ErrorIs(t, svc.LastLoadError(), core.ErrEmptyResult)
}

func TestReportService_MemoizationIsTransparent(t *testing.T) {
	svc, loader := newTestService(t)
	ctx := context.Background()
	r := core.DateRange{Start: core.NewDate(2020, 1, 1), End: core.NewDate(2021, 12, 31)}

	first, err := svc.TimeSeries(ctx, r, core.Year)
	require.NoError(t, err)
	second, err := svc.TimeSeries(ctx, r, core.Year)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []core.Bucket{
		{Start: core.NewDate(2020, 1, 1), Count: 3},
		{Start: core.NewDate(2021, 1, 1), Count: 1},
	}, first)

	first[0].Count = 99
	third, err := svc.TimeSeries(ctx, r, core.Year)
	require.NoError(t, err)
	assert.Equal(t, 3, third[0].Count, "cached series must not be shared with callers")

	counts, err := svc.Categories(ctx, r, core.CategoryGender)
	require.NoError(t, err)
	assert.Equal(t, 4, core.CountsTotal(counts))
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, 1, svc.filtered.Size())
	assert.Equal(t, 1, svc.series.Size())
}

func TestReportService_RejectsUnknownSelectors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	r := core.DateRange{Start: core.NewDate(2020, 1, 1), End: core.NewDate(2021, 12, 31)}

	_, err := svc.TimeSeries(ctx, r, "week")
	assert.Error(t, err)
	_, err = svc.Categories(ctx, r, "age")
	assert.Error(t, err)
	_, err = svc.Dashboard(ctx, Query{Granularity: "week"})
	assert.Error(t, err)
}

func TestReportService_Bounds(t *testing.T) {
	svc, _ := newTestService(t)
	assert.False(t, svc.Ready())

	b, err := svc.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2020, 1, 15), b.Start)
	assert.Equal(t, core.NewDate(2021, 1, 1), b.End)
	assert.True(t, svc.Ready())
	assert.Len(t, svc.Caches(), 3)
}
