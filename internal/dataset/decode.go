package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"formalizacion/internal/core"

	"github.com/gocarina/gocsv"
)

// decode reads the header and every data row, requiring exactly
// columnCount fields on each line.
func decode(r io.Reader) ([]rawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columnCount

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input, expected a %d-column header", core.ErrSchema, columnCount)
		}
		return nil, fmt.Errorf("%w: header: %w", core.ErrSchema, err)
	}

	var rows []rawRow
	if err := gocsv.UnmarshalCSVWithoutHeaders(cr, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", core.ErrSchema, err)
	}
	return rows, nil
}
