package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"formalizacion/internal/core"
	"formalizacion/internal/services"
)

// Sheet names of the exported workbook.
const (
	SummarySheet    = "Resumen"
	SeriesSheet     = "Serie temporal"
	CategoriesSheet = "Categorías"
)

// ContentType is the MIME type of an xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook lays out a dashboard view as a spreadsheet: a summary sheet with the
// selection, the time series and, when a category is selected, its breakdown.
func Workbook(view services.View) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummary(f, header, view); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSeries(f, header, view); err != nil {
		f.Close()
		return nil, err
	}
	if view.ShowCategories() {
		if err := writeCategories(f, header, view); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write renders the workbook for view into w.
func Write(w io.Writer, view services.View) error {
	f, err := Workbook(view)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, header int, view services.View) error {
	rows := [][]any{
		{"Municipio", view.Municipality},
		{"Desde", view.Range.Start.String()},
		{"Hasta", view.Range.End.String()},
		{"Primer registro", view.Bounds.Start.String()},
		{"Último registro", view.Bounds.End.String()},
		{"Granularidad", view.Granularity.Label()},
		{"Categoría", view.Category.Label()},
		{"Registros", view.Rows},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), header); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 24)
}

func writeSeries(f *excelize.File, header int, view services.View) error {
	if _, err := f.NewSheet(SeriesSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", SeriesSheet, err)
	}
	if err := f.SetSheetRow(SeriesSheet, "A1", &[]any{"Fecha", "Registros"}); err != nil {
		return err
	}
	for i, b := range view.Series {
		if err := f.SetSheetRow(SeriesSheet, fmt.Sprintf("A%d", i+2), &[]any{b.Start.String(), b.Count}); err != nil {
			return fmt.Errorf("write series row %d: %w", i+2, err)
		}
	}
	total := len(view.Series) + 2
	if err := f.SetSheetRow(SeriesSheet, fmt.Sprintf("A%d", total), &[]any{"Total", core.SeriesTotal(view.Series)}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SeriesSheet, "A1", "B1", header); err != nil {
		return err
	}
	return f.SetColWidth(SeriesSheet, "A", "B", 16)
}

func writeCategories(f *excelize.File, header int, view services.View) error {
	if _, err := f.NewSheet(CategoriesSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", CategoriesSheet, err)
	}
	if err := f.SetSheetRow(CategoriesSheet, "A1", &[]any{view.Category.Label(), "Registros"}); err != nil {
		return err
	}
	for i, c := range view.Counts {
		if err := f.SetSheetRow(CategoriesSheet, fmt.Sprintf("A%d", i+2), &[]any{c.Value, c.Count}); err != nil {
			return fmt.Errorf("write category row %d: %w", i+2, err)
		}
	}
	if err := f.SetCellStyle(CategoriesSheet, "A1", "B1", header); err != nil {
		return err
	}
	return f.SetColWidth(CategoriesSheet, "A", "A", 32)
}
