package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"formalizacion/internal/core"
	"formalizacion/internal/services"
)

func sampleView(c core.Category) services.View {
	return services.View{
		Municipality: "SANTIAGO DE CALI",
		Bounds:       core.DateRange{Start: core.NewDate(2020, 1, 1), End: core.NewDate(2020, 12, 31)},
		Range:        core.DateRange{Start: core.NewDate(2020, 1, 1), End: core.NewDate(2020, 6, 30)},
		Granularity:  core.Month,
		Category:     c,
		Series: []core.Bucket{
			{Start: core.NewDate(2020, 1, 1), Count: 4},
			{Start: core.NewDate(2020, 3, 1), Count: 2},
		},
		Counts: []core.CategoryCount{{Value: "MUJER", Count: 4}, {Value: "HOMBRE", Count: 2}},
		Rows:   6,
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleView(core.CategoryGender)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, SeriesSheet, CategoriesSheet}, f.GetSheetList())

	v, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "SANTIAGO DE CALI", v)

	v, err = f.GetCellValue(SummarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "6", v)

	rows, err := f.GetRows(SeriesSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Fecha", "Registros"},
		{"2020-01-01", "4"},
		{"2020-03-01", "2"},
		{"Total", "6"},
	}, rows)

	rows, err = f.GetRows(CategoriesSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Género", "Registros"},
		{"MUJER", "4"},
		{"HOMBRE", "2"},
	}, rows)
}

func TestWorkbook_NoCategory(t *testing.T) {
	view := sampleView(core.CategoryNone)
	view.Counts = nil

	f, err := Workbook(view)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, SeriesSheet}, f.GetSheetList())
}

func TestWorkbook_EmptySeries(t *testing.T) {
	view := sampleView(core.CategoryNone)
	view.Series = nil
	view.Rows = 0

	f, err := Workbook(view)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SeriesSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Fecha", "Registros"}, {"Total", "0"}}, rows)
}
