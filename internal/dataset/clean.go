package dataset

import (
	"cmp"
	"fmt"
	"strings"
	"time"
	"unicode"

	"formalizacion/internal/core"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NoDataMarker is how the export spells a missing categorical value.
const NoDataMarker = "SIN INFORMACIÓN"

var noDataKey = foldKey(NoDataMarker)

// Imputation describes one mode replacement applied during cleaning.
type Imputation struct {
	Column   string
	Mode     string
	Replaced int
}

// pending is a projected row whose date has not been parsed yet.
type pending struct {
	record core.Record
	date   string
	line   int
}

type imputedColumn struct {
	name  string
	field func(*core.Record) *string
}

// Imputed in this order, each over the municipality table.
var imputedColumns = []imputedColumn{
	{name: "sujeto_de_formalizacion", field: func(r *core.Record) *string { return &r.FormalizationSubject }},
	{name: "discapacidad", field: func(r *core.Record) *string { return &r.Disability }},
}

// Accepted spellings of the fecha column, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	core.DateLayout,
	"2006/01/02",
	"02/01/2006",
}

// foldKey strips accents, case and surrounding blanks.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, runes.Map(unicode.ToUpper))
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func isNoData(v string) bool {
	return foldKey(v) == noDataKey
}

// selectMunicipality keeps the rows whose municipality name matches exactly.
func selectMunicipality(rows []rawRow, municipality string) []pending {
	var out []pending
	for i, row := range rows {
		if row.MunicipalityName != municipality {
			continue
		}
		out = append(out, pending{
			record: core.Record{
				Year:                 row.Year,
				Month:                row.Month,
				Semester:             strings.TrimSpace(row.Semester),
				Quarter:              strings.TrimSpace(row.Quarter),
				Gender:               row.Gender,
				Disability:           row.Disability,
				FormalizationSubject: row.FormalizationSubject,
				FamilyNumber:         row.FamilyNumber,
				OripName:             row.OripName,
			},
			date: row.Date,
			line: i + 2,
		})
	}
	return out
}

func checkPeriods(rows []pending) error {
	for _, p := range rows {
		if p.record.Year < 1 {
			return fmt.Errorf("%w: line %d: invalid año %d", core.ErrSchema, p.line, p.record.Year)
		}
		if p.record.Month < 1 || p.record.Month > 12 {
			return fmt.Errorf("%w: line %d: invalid mes %d", core.ErrSchema, p.line, p.record.Month)
		}
	}
	return nil
}

// mode returns the most frequent value that is not the no-data marker.
// Ties go to the lexicographically smallest value.
func mode(values []string) (string, bool) {
	counts := make(map[string]int)
	for _, v := range values {
		if !isNoData(v) {
			counts[v]++
		}
	}
	best, bestCount := "", 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && cmp.Less(v, best)) {
			best, bestCount = v, n
		}
	}
	return best, bestCount > 0
}

// impute replaces every no-data marker in col with the column mode.
func impute(rows []pending, col imputedColumn) (Imputation, error) {
	values := make([]string, len(rows))
	for i := range rows {
		values[i] = *col.field(&rows[i].record)
	}
	m, ok := mode(values)
	if !ok {
		return Imputation{}, fmt.Errorf("%w: column %s has no value other than %q", core.ErrNoMode, col.name, NoDataMarker)
	}

	result := Imputation{Column: col.name, Mode: m}
	for i := range rows {
		if v := col.field(&rows[i].record); isNoData(*v) {
			*v = m
			result.Replaced++
		}
	}
	return result, nil
}

func parseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("no known layout matches %q", s)
}

func parseDates(rows []pending) ([]core.Record, error) {
	out := make([]core.Record, len(rows))
	for i, p := range rows {
		d, err := parseDate(p.date)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", core.ErrDateParse, p.line, err)
		}
		out[i] = p.record
		out[i].Date = d
	}
	return out, nil
}
