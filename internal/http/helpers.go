package http

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"formalizacion/internal/core"
	"formalizacion/internal/services"
)

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// formatInt renders n with dot thousands separators, as used in Colombia.
func formatInt(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// percent renders part/total as a percentage with one decimal and a comma.
func percent(part, total int) string {
	if total == 0 {
		return "0,0 %"
	}
	s := strconv.FormatFloat(float64(part)*100/float64(total), 'f', 1, 64)
	return strings.Replace(s, ".", ",", 1) + " %"
}

var templateFuncs = template.FuncMap{
	"formatInt": formatInt,
	"percent":   percent,
	"periodLabel": func(b core.Bucket, g core.Granularity) string {
		switch g {
		case core.Month:
			return b.Start.Format("2006-01")
		case core.Quarter:
			return b.Start.Format("2006") + " " + core.QuarterLabel(b.Start.Month())
		case core.Semester:
			return b.Start.Format("2006") + " " + core.SemesterLabel(b.Start.Month())
		case core.Year:
			return b.Start.Format("2006")
		default:
			return b.Start.String()
		}
	},
}

// option is one entry of a selector.
type option struct {
	Value    string
	Label    string
	Selected bool
}

// pageData is what the dashboard templates render.
type pageData struct {
	View          services.View
	Total         int
	Granularities []option
	Categories    []option
	ChartURL      template.URL
	CategoryURL   template.URL
	ExportURL     template.URL
	Error         string
	RequestID     string
}

func newPageData(view services.View) pageData {
	sel := view.Selection().Values().Encode()

	data := pageData{
		View:        view,
		Total:       core.CountsTotal(view.Counts),
		ChartURL:    template.URL("/charts/timeseries.png?" + sel),
		CategoryURL: template.URL("/charts/categories.png?" + sel),
		ExportURL:   template.URL("/export.xlsx?" + sel),
	}
	for _, g := range core.Granularities {
		data.Granularities = append(data.Granularities, option{Value: string(g), Label: g.Label(), Selected: g == view.Granularity})
	}
	for _, c := range core.Categories {
		data.Categories = append(data.Categories, option{Value: string(c), Label: c.Label(), Selected: c == view.Category})
	}
	return data
}
