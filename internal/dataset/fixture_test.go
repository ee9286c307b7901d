package dataset

import (
	"encoding/csv"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var header = []string{
	"region", "codigo_dep", "nombre_dep", "codigo_mun", "nombre_mun",
	"codigo_orip", "nombre_orip", "pdet", "fecha", "a_o", "mes",
	"semestre", "trimestre", "genero", "etnia", "edad",
	"discapacidad", "orientacion_sexual", "campesino",
	"cabeza_de_hogar", "victima_de_conflicto_armado",
	"sujeto_de_formalizacion", "numero_familia",
}

// row describes the columns the tests care about; the rest get filler.
type row struct {
	municipality string
	date         string
	year, month  int
	gender       string
	disability   string
	subject      string
	family       string
}

func (r row) fields() []string {
	if r.municipality == "" {
		r.municipality = DefaultMunicipality
	}
	if r.gender == "" {
		r.gender = "MUJER"
	}
	if r.disability == "" {
		r.disability = "NO"
	}
	if r.subject == "" {
		r.subject = "POSEEDOR"
	}
	if r.family == "" {
		r.family = "1"
	}
	// Out-of-range months still need a full row so the loader can reject them.
	sem, trim := "?", "?"
	if r.month >= 1 && r.month <= 12 {
		sem = "I Sem"
		if r.month > 6 {
			sem = "II Sem"
		}
		trim = [...]string{"I Trim", "II Trim", "III Trim", "IV Trim"}[(r.month-1)/3]
	}
	return []string{
		"PACIFICO", "76", "VALLE DEL CAUCA", "76001", r.municipality,
		"370", "CALI", "NO", r.date, strconv.Itoa(r.year), strconv.Itoa(r.month),
		sem, trim, r.gender, "NINGUNO", "30", r.disability, "NO REPORTA",
		"NO", "SI", "NO", r.subject, r.family,
	}
}

func buildCSV(t *testing.T, rows ...row) string {
	t.Helper()
	var b strings.Builder
	w := csv.NewWriter(&b)
	require.NoError(t, w.Write(header))
	for _, r := range rows {
		require.NoError(t, w.Write(r.fields()))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return b.String()
}

func sampleRows() []row {
	return []row{
		{date: "2020-01-15T00:00:00.000", year: 2020, month: 1, disability: "A"},
		{date: "2020-01-20T00:00:00.000", year: 2020, month: 1, disability: "A"},
		{date: "2020-04-10T00:00:00.000", year: 2020, month: 4, disability: NoDataMarker},
		{date: "2021-01-01T00:00:00.000", year: 2021, month: 1, disability: "B"},
		{municipality: "PALMIRA", date: "2020-02-02T00:00:00.000", year: 2020, month: 2, disability: "B"},
	}
}
