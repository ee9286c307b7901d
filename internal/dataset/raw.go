package dataset

// columnCount is the width of the published export. Columns are matched by
// position; header names are ignored.
const columnCount = 23

// rawRow mirrors one line of the export in column order.
type rawRow struct {
	Region               string `csv:"region"`
	DepartmentCode       string `csv:"codigo_dep"`
	DepartmentName       string `csv:"nombre_dep"`
	MunicipalityCode     string `csv:"codigo_mun"`
	MunicipalityName     string `csv:"nombre_mun"`
	OripCode             string `csv:"codigo_ORIP"`
	OripName             string `csv:"nombre_ORIP"`
	PDET                 string `csv:"PDET"`
	Date                 string `csv:"fecha"`
	Year                 int    `csv:"año"`
	Month                int    `csv:"mes"`
	Semester             string `csv:"semestre"`
	Quarter              string `csv:"trimestre"`
	Gender               string `csv:"genero"`
	Ethnicity            string `csv:"etnia"`
	Age                  string `csv:"edad"`
	Disability           string `csv:"discapacidad"`
	SexualOrientation    string `csv:"orientacion_sexual"`
	Peasant              string `csv:"campesino"`
	HeadOfHousehold      string `csv:"cabeza_de_hogar"`
	ConflictVictim       string `csv:"victima_de_conflicto_armado"`
	FormalizationSubject string `csv:"sujeto_de_formalizacion"`
	FamilyNumber         string `csv:"numero_familia"`
}
