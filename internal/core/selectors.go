package core

import (
	"fmt"
	"strings"
)

// Granularity is the temporal bucket width of the time series.
type Granularity string

const (
	Day      Granularity = "day"
	Month    Granularity = "month"
	Quarter  Granularity = "quarter"
	Semester Granularity = "semester"
	Year     Granularity = "year"
)

// Granularities lists every granularity in selector order.
var Granularities = []Granularity{Day, Month, Quarter, Semester, Year}

var granularityLabels = map[Granularity]string{
	Day:      "Día",
	Month:    "Mes",
	Quarter:  "Trimestre",
	Semester: "Semestre",
	Year:     "Año",
}

// Label returns the user-facing name.
func (g Granularity) Label() string {
	return granularityLabels[g]
}

// IsValid returns true if the granularity is known
func (g Granularity) IsValid() bool {
	_, ok := granularityLabels[g]
	return ok
}

// ParseGranularity accepts either the code ("month") or the label ("Mes"), case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	s = strings.TrimSpace(s)
	for _, g := range Granularities {
		if strings.EqualFold(s, string(g)) || strings.EqualFold(s, g.Label()) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Category is a categorical column exposed for the breakdown chart.
type Category string

const (
	CategoryNone                 Category = "none"
	CategoryGender               Category = "gender"
	CategoryDisability           Category = "disability"
	CategoryFormalizationSubject Category = "formalization_subject"
	CategoryFamilyNumber         Category = "family_number"
)

// Categories lists every selector option, CategoryNone first.
var Categories = []Category{
	CategoryNone,
	CategoryGender,
	CategoryDisability,
	CategoryFormalizationSubject,
	CategoryFamilyNumber,
}

var categoryLabels = map[Category]string{
	CategoryNone:                 "Ninguna",
	CategoryGender:               "Género",
	CategoryDisability:           "Discapacidad",
	CategoryFormalizationSubject: "Sujeto de formalización",
	CategoryFamilyNumber:         "Número de familia",
}

// Label returns the user-facing name.
func (c Category) Label() string {
	return categoryLabels[c]
}

// IsValid returns true if the category is known
func (c Category) IsValid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Value extracts the column value of r. CategoryNone has no column and yields "".
func (c Category) Value(r Record) string {
	switch c {
	case CategoryGender:
		return r.Gender
	case CategoryDisability:
		return r.Disability
	case CategoryFormalizationSubject:
		return r.FormalizationSubject
	case CategoryFamilyNumber:
		return r.FamilyNumber
	default:
		return ""
	}
}

// ParseCategory accepts either the code or the label, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.Label()) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Coded period labels as published in the dataset.
var (
	quarterMonths  = map[string]int{"I Trim": 1, "II Trim": 4, "III Trim": 7, "IV Trim": 10}
	semesterMonths = map[string]int{"I Sem": 1, "II Sem": 7}
)

// QuarterLabel returns the dataset's quarter code for a month.
func QuarterLabel(month int) string {
	return [...]string{"I Trim", "II Trim", "III Trim", "IV Trim"}[(month-1)/3]
}

// SemesterLabel returns the dataset's semester code for a month.
func SemesterLabel(month int) string {
	if month <= 6 {
		return "I Sem"
	}
	return "II Sem"
}
