package core

import (
	"cmp"
	"slices"
)

// Bucket is one point of the time series: the representative start date of a
// period and the number of records that fall in it.
type Bucket struct {
	Start Date `json:"date"`
	Count int  `json:"count"`
}

// CategoryCount is the number of records sharing one categorical value.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Filter returns the records dated within r, both ends inclusive.
// An inverted range is rejected with ErrInvalidRange rather than swapped.
func Filter(t Table, r DateRange) (Table, error) {
	if err := r.Validate(); err != nil {
		return Table{}, err
	}
	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	if len(out) == len(t.records) {
		return t, nil
	}
	return Table{records: out, fingerprint: fingerprint(out)}, nil
}

// PeriodStart returns the representative start date of the bucket r falls in.
// Month, quarter, semester and year buckets are keyed on the record's own
// year/month/period columns; an unrecognized period code falls back to the month.
func PeriodStart(r Record, g Granularity) Date {
	switch g {
	case Month:
		return NewDate(r.Year, r.Month, 1)
	case Quarter:
		m, ok := quarterMonths[r.Quarter]
		if !ok {
			m = (r.Month-1)/3*3 + 1
		}
		return NewDate(r.Year, m, 1)
	case Semester:
		m, ok := semesterMonths[r.Semester]
		if !ok {
			m = 1
			if r.Month > 6 {
				m = 7
			}
		}
		return NewDate(r.Year, m, 1)
	case Year:
		return NewDate(r.Year, 1, 1)
	default:
		return r.Date
	}
}

// AggregateByPeriod counts records per period, ascending by period start.
// Only periods holding at least one record appear; gaps are not zero-filled.
func AggregateByPeriod(t Table, g Granularity) []Bucket {
	if len(t.records) == 0 {
		return nil
	}
	index := make(map[int]int)
	var out []Bucket
	for _, rec := range t.records {
		start := PeriodStart(rec, g)
		i, ok := index[start.key()]
		if !ok {
			i = len(out)
			index[start.key()] = i
			out = append(out, Bucket{Start: start})
		}
		out[i].Count++
	}
	slices.SortFunc(out, func(a, b Bucket) int {
		return cmp.Compare(a.Start.key(), b.Start.key())
	})
	return out
}

// AggregateByCategory counts records per distinct value of c, by descending
// count. Ties keep the order in which values first appear in t.
func AggregateByCategory(t Table, c Category) []CategoryCount {
	if c == CategoryNone || len(t.records) == 0 {
		return nil
	}
	index := make(map[string]int)
	var out []CategoryCount
	for _, rec := range t.records {
		v := c.Value(rec)
		i, ok := index[v]
		if !ok {
			i = len(out)
			index[v] = i
			out = append(out, CategoryCount{Value: v})
		}
		out[i].Count++
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

// SeriesTotal sums the bucket counts.
func SeriesTotal(buckets []Bucket) int {
	n := 0
	for _, b := range buckets {
		n += b.Count
	}
	return n
}

// CountsTotal sums the category counts.
func CountsTotal(counts []CategoryCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}
