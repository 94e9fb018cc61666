package prompts

// #region column-docs

// ColumnDoc documents one dataset column for the translator prompt.
type ColumnDoc struct {
	Name        string
	Description string
	Note        string
}

// Columns is the documented subset of the admissions table.
var Columns = []ColumnDoc{
	{"DIAG_PRINC", "ICD-10 code of the main admission diagnosis (e.g. A46, C168, J128)",
		"codes, not text: filter chapters with substr(DIAG_PRINC, 1, 3) BETWEEN 'J00' AND 'J99'"},
	{"MORTE", "1 when the patient died during the admission, 0 otherwise",
		"count deaths with MORTE = 1"},
	{"CID_MORTE", "ICD-10 code of the cause of death, often missing",
		"never use CID_MORTE > 0 to count deaths"},
	{"CIDADE_RESIDENCIA_PACIENTE", "name of the patient's city of residence",
		"preferred city filter: CIDADE_RESIDENCIA_PACIENTE = 'Porto Alegre'"},
	{"MUNIC_RES", "IBGE code of the city of residence (431490 Porto Alegre, 430300 Santa Maria)",
		"prefer the city name column"},
	{"UF_RESIDENCIA_PACIENTE", "state abbreviation of residence (RS, SC, ...)", ""},
	{"IDADE", "age in years at admission (0 for newborns)", ""},
	{"SEXO", "patient sex: 1 male, 3 female",
		"there is no SEXO = 2"},
	{"UTI_MES_TO", "days spent in the ICU, 0 when none", ""},
	{"DT_INTER", "admission date as YYYYMMDD", "compare numerically, not with LIKE"},
	{"DT_SAIDA", "discharge date as YYYYMMDD", ""},
	{"VAL_TOT", "total amount paid for the admission, in reais", ""},
}

// #endregion

// #region rules

var queryRules = []string{
	"Total deaths: SELECT COUNT(*) FROM {table} WHERE MORTE = 1",
	"Deaths in a city: SELECT COUNT(*) FROM {table} WHERE CIDADE_RESIDENCIA_PACIENTE = 'Name' AND MORTE = 1",
	"Deaths in a state: SELECT COUNT(*) FROM {table} WHERE UF_RESIDENCIA_PACIENTE = 'UF' AND MORTE = 1",
	"Column count: SELECT COUNT(*) FROM pragma_table_info('{table}')",
	"Row count: SELECT COUNT(*) FROM {table}",
}

// hints add column suggestions when the question mentions a topic.
var hints = []struct {
	words []string
	hint  string
}{
	{[]string{"death", "deaths", "died", "mortes", "morte", "obitos", "obito", "morreram"}, "MORTE = 1 counts deaths; CID_MORTE is only the cause"},
	{[]string{"city", "cities", "cidade", "cidades", "porto", "santa", "caxias"}, "CIDADE_RESIDENCIA_PACIENTE holds the city name"},
	{[]string{"age", "idade", "years", "anos"}, "IDADE is the age in years"},
	{[]string{"sex", "male", "female", "men", "women", "sexo", "masculino", "feminino", "homens", "mulheres"}, "SEXO is 1 for male and 3 for female"},
	{[]string{"state", "states", "estado", "estados", "uf"}, "UF_RESIDENCIA_PACIENTE holds the state abbreviation"},
	{[]string{"icu", "uti", "intensive"}, "UTI_MES_TO is ICU days, 0 when none"},
	{[]string{"cost", "costs", "value", "paid", "custo", "valor"}, "VAL_TOT is the amount paid in reais"},
}

// #endregion
