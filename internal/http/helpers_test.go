package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formalizacion/internal/core"
	"formalizacion/internal/services"
)

func TestFormatInt(t *testing.T) {
	tests := map[int]string{
		0:        "0",
		7:        "7",
		999:      "999",
		1000:     "1.000",
		123456:   "123.456",
		1234567:  "1.234.567",
		-1234567: "-1.234.567",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatInt(in), in)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "0,0 %", percent(3, 0))
	assert.Equal(t, "75,0 %", percent(3, 4))
	assert.Equal(t, "33,3 %", percent(1, 3))
	assert.Equal(t, "100,0 %", percent(5, 5))
}

func TestIsHTMX(t *testing.T) {
	r := httptest.NewRequest("GET", "/ui/dashboard", nil)
	assert.False(t, isHTMX(r))
	r.Header.Set("HX-Request", "true")
	assert.True(t, isHTMX(r))
}

func TestPeriodLabel(t *testing.T) {
	label := templateFuncs["periodLabel"].(func(core.Bucket, core.Granularity) string)
	b := core.Bucket{Start: core.NewDate(2020, 7, 1), Count: 1}

	assert.Equal(t, "2020-07-01", label(b, core.Day))
	assert.Equal(t, "2020-07", label(b, core.Month))
	assert.Equal(t, "2020 III Trim", label(b, core.Quarter))
	assert.Equal(t, "2020 II Sem", label(b, core.Semester))
	assert.Equal(t, "2020", label(b, core.Year))
}

func TestNewPageData(t *testing.T) {
	view := services.View{
		Municipality: "SANTIAGO DE CALI",
		Range:        core.DateRange{Start: core.NewDate(2020, 1, 1), End: core.NewDate(2020, 6, 30)},
		Granularity:  core.Quarter,
		Category:     core.CategoryDisability,
		Counts:       []core.CategoryCount{{Value: "NO", Count: 9}, {Value: "SI", Count: 1}},
	}

	data := newPageData(view)
	assert.Equal(t, 10, data.Total)
	require.Len(t, data.Granularities, len(core.Granularities))
	require.Len(t, data.Categories, len(core.Categories))

	selected := 0
	for _, o := range data.Granularities {
		if o.Selected {
			selected++
			assert.Equal(t, "quarter", o.Value)
		}
	}
	assert.Equal(t, 1, selected)

	for _, u := range []string{string(data.ChartURL), string(data.CategoryURL), string(data.ExportURL)} {
		assert.True(t, strings.Contains(u, "start=2020-01-01"), u)
		assert.True(t, strings.Contains(u, "end=2020-06-30"), u)
		assert.True(t, strings.Contains(u, "category=disability"), u)
	}
}
