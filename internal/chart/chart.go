package chart

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"formalizacion/internal/core"
)

// Size in pixels of a rendered chart.
const (
	DefaultWidth  = 960
	DefaultHeight = 420
)

// MaxBars is the number of categories drawn before the rest are folded into OtherLabel.
const MaxBars = 12

// OtherLabel names the bar that folds the least frequent categories.
const OtherLabel = "Otros"

const maxLabelRunes = 18

var (
	seriesColor = drawing.ColorFromHex("1f6f8b")
	barColor    = drawing.ColorFromHex("e3a33b")
	gridColor   = drawing.ColorFromHex("d9d9d9")
)

var axisFormats = map[core.Granularity]string{
	core.Day:      "2006-01-02",
	core.Month:    "2006-01",
	core.Quarter:  "2006-01",
	core.Semester: "2006-01",
	core.Year:     "2006",
}

// TimeSeriesPNG draws the bucket counts as a line with point markers.
// An empty series renders a flat placeholder so callers always get an image.
func TimeSeriesPNG(w io.Writer, title string, g core.Granularity, buckets []core.Bucket) error {
	xs := make([]time.Time, 0, len(buckets)+1)
	ys := make([]float64, 0, len(buckets)+1)
	maxCount := 0
	for _, b := range buckets {
		xs = append(xs, b.Start.Time)
		ys = append(ys, float64(b.Count))
		maxCount = max(maxCount, b.Count)
	}

	switch len(xs) {
	case 0:
		now := time.Now().UTC().Truncate(24 * time.Hour)
		xs = []time.Time{now, now.Add(24 * time.Hour)}
		ys = []float64{0, 0}
		title = title + " (sin datos)"
	case 1:
		// a single point has no x extent
		xs = append(xs, xs[0].Add(24*time.Hour))
		ys = append(ys, ys[0])
	}

	format, ok := axisFormats[g]
	if !ok {
		format = axisFormats[core.Day]
	}

	ch := gochart.Chart{
		Title:      title,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 24, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           g.Label(),
			ValueFormatter: gochart.TimeValueFormatterWithFormat(format),
		},
		YAxis: gochart.YAxis{
			Name:           "Registros",
			Range:          &gochart.ContinuousRange{Min: 0, Max: yMax(maxCount)},
			ValueFormatter: gochart.IntValueFormatter,
			GridMajorStyle: gochart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Registros",
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: seriesColor,
					StrokeWidth: 2,
					DotColor:    seriesColor,
					DotWidth:    3,
				},
			},
		},
	}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render time series: %w", err)
	}
	return nil
}

// CategoriesPNG draws one bar per category value, in the given order.
// Beyond MaxBars the remaining counts are summed into a single OtherLabel bar.
func CategoriesPNG(w io.Writer, title string, counts []core.CategoryCount) error {
	bars := Bars(counts)
	maxCount := 0.0
	for i, b := range bars {
		maxCount = math.Max(maxCount, b.Value)
		bars[i].Label = CountLabel(b)
	}
	if len(bars) == 0 {
		bars = []gochart.Value{{Label: "sin datos", Value: 0}}
		title = title + " (sin datos)"
	}

	bc := gochart.BarChart{
		Title:      title,
		Width:      max(DefaultWidth, len(bars)*72+120),
		Height:     DefaultHeight,
		BarWidth:   48,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: 0, Max: yMax(int(maxCount))},
			ValueFormatter: gochart.IntValueFormatter,
		},
		Bars: bars,
	}
	if err := bc.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render categories: %w", err)
	}
	return nil
}

// TimeSeriesTitle names the series chart for granularity g.
func TimeSeriesTitle(g core.Granularity) string {
	return fmt.Sprintf("Procesos de formalización por %s", g.Label())
}

// CategoriesTitle names the distribution chart for category c.
func CategoriesTitle(c core.Category) string {
	return fmt.Sprintf("Distribución de procesos por %s", strings.ToLower(c.Label()))
}

// CountLabel puts the bar's count under its name so every bar shows its value.
func CountLabel(v gochart.Value) string {
	return fmt.Sprintf("%s (%d)", v.Label, int(v.Value))
}

// Bars converts category counts to chart values, folding the tail past MaxBars.
func Bars(counts []core.CategoryCount) []gochart.Value {
	style := gochart.Style{FillColor: barColor, StrokeColor: barColor, StrokeWidth: 1}
	out := make([]gochart.Value, 0, min(len(counts), MaxBars+1))
	rest := 0
	for i, c := range counts {
		if i >= MaxBars {
			rest += c.Count
			continue
		}
		out = append(out, gochart.Value{Label: shorten(c.Value), Value: float64(c.Count), Style: style})
	}
	if rest > 0 {
		out = append(out, gochart.Value{Label: OtherLabel, Value: float64(rest), Style: style})
	}
	return out
}

func yMax(maxCount int) float64 {
	if maxCount <= 0 {
		return 1
	}
	return math.Ceil(float64(maxCount) * 1.1)
}

func shorten(s string) string {
	if s == "" {
		return "(vacío)"
	}
	r := []rune(s)
	if len(r) <= maxLabelRunes {
		return s
	}
	return string(r[:maxLabelRunes-1]) + "…"
}
