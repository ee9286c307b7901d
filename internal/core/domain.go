package core

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DateLayout is the canonical textual form of a Date.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date with no time-of-day semantics, stored at UTC midnight.
	Date struct {
		time.Time
	}

	// Record is one row of the cleaned formalization table.
	Record struct {
		Date                 Date
		Year                 int
		Month                int // 1-12
		Semester             string
		Quarter              string
		Gender               string
		Disability           string
		FormalizationSubject string
		FamilyNumber         string
		OripName             string // registry office, carried through but never charted
	}

	// DateRange is an inclusive interval of calendar dates.
	DateRange struct {
		Start Date
		End   Date
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date, keeping t's wall clock fields.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON renders the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// key is a compact ordinal usable as a map key.
func (d Date) key() int {
	return d.Year()*10000 + d.Month()*100 + d.Day()
}

// Contains reports whether d lies within r, both ends inclusive.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// Validate checks that the range is well formed.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return wrapf(ErrInvalidRange, "range bounds must be set")
	}
	if r.Start.After(r.End.Time) {
		return wrapf(ErrInvalidRange, "start %s is after end %s", r.Start, r.End)
	}
	return nil
}

// Table is an immutable, ordered collection of records.
// Every pipeline stage returns a new Table; none mutates its input.
type Table struct {
	records     []Record
	fingerprint uint64
}

// NewTable copies records into a new table and fingerprints its content.
func NewTable(records []Record) Table {
	rs := make([]Record, len(records))
	copy(rs, records)
	return Table{records: rs, fingerprint: fingerprint(rs)}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.records)
}

// At returns the i-th record.
func (t Table) At(i int) Record {
	return t.records[i]
}

// Records returns a copy of the rows.
func (t Table) Records() []Record {
	return append([]Record(nil), t.records...)
}

// Fingerprint identifies the table content; equal content yields equal fingerprints.
func (t Table) Fingerprint() uint64 {
	return t.fingerprint
}

// Bounds returns the smallest and largest dates present. ok is false for an empty table.
func (t Table) Bounds() (r DateRange, ok bool) {
	if len(t.records) == 0 {
		return DateRange{}, false
	}
	r.Start, r.End = t.records[0].Date, t.records[0].Date
	for _, rec := range t.records[1:] {
		if rec.Date.Before(r.Start.Time) {
			r.Start = rec.Date
		}
		if rec.Date.After(r.End.Time) {
			r.End = rec.Date
		}
	}
	return r, true
}

func fingerprint(records []Record) uint64 {
	h := xxhash.New()
	var buf []byte
	for _, r := range records {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(r.Date.key()), 10)
		buf = append(buf, 0x1f)
		buf = strconv.AppendInt(buf, int64(r.Year), 10)
		buf = append(buf, 0x1f)
		buf = strconv.AppendInt(buf, int64(r.Month), 10)
		for _, s := range []string{r.Semester, r.Quarter, r.Gender, r.Disability, r.FormalizationSubject, r.FamilyNumber, r.OripName} {
			buf = append(buf, 0x1f)
			buf = append(buf, s...)
		}
		buf = append(buf, 0x1e)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
