package dataset

import (
	"fmt"
	"io"

	"formalizacion/internal/core"
)

// Report summarizes one cleaning run.
type Report struct {
	RowsRead    int
	RowsKept    int
	Imputations []Imputation
}

// Parse turns the raw export into the cleaned municipality table:
// decode, keep the municipality, project, impute, parse dates.
func Parse(r io.Reader, municipality string) (core.Table, Report, error) {
	var report Report

	rows, err := decode(r)
	if err != nil {
		return core.Table{}, report, err
	}
	report.RowsRead = len(rows)

	kept := selectMunicipality(rows, municipality)
	if len(kept) == 0 {
		return core.Table{}, report, fmt.Errorf("%w: %q matched none of %d rows", core.ErrEmptyResult, municipality, len(rows))
	}
	report.RowsKept = len(kept)

	if err := checkPeriods(kept); err != nil {
		return core.Table{}, report, err
	}

	for _, col := range imputedColumns {
		imp, err := impute(kept, col)
		if err != nil {
			return core.Table{}, report, err
		}
		report.Imputations = append(report.Imputations, imp)
	}

	records, err := parseDates(kept)
	if err != nil {
		return core.Table{}, report, err
	}
	return core.NewTable(records), report, nil
}
