package handler

import "strings"

// #region intents

// Intent names a fixed question the handler answers without the translator.
type Intent string

const (
	IntentColumns    Intent = "columns"
	IntentRecords    Intent = "records"
	IntentDeaths     Intent = "deaths"
	IntentStates     Intent = "states"
	IntentCities     Intent = "cities"
	IntentAvgAge     Intent = "avg_age"
	IntentSchema     Intent = "schema"
	IntentCityDeaths Intent = "city_deaths"
	IntentSexDeaths  Intent = "sex_deaths"
	IntentListCities Intent = "list_cities"
)

type resultKind int

const (
	kindNumber resultKind = iota
	kindDecimal
	kindText
	kindList
)

// Spec is the canonical query and response template for an intent.
// Query uses {table}, {city} and {sex}; Template uses {value}, {city} and {sex}.
type Spec struct {
	Query    string
	Template string
	kind     resultKind
}

var specs = map[Intent]Spec{
	IntentColumns: {
		Query:    "SELECT COUNT(*) FROM pragma_table_info('{table}');",
		Template: "The table {table} has {value} columns.",
	},
	IntentRecords: {
		Query:    "SELECT COUNT(*) FROM {table};",
		Template: "The table {table} has {value} records.",
	},
	IntentDeaths: {
		Query:    "SELECT COUNT(*) FROM {table} WHERE MORTE = 1;",
		Template: "There were {value} deaths recorded in the data.",
	},
	IntentStates: {
		Query:    "SELECT COUNT(DISTINCT UF_RESIDENCIA_PACIENTE) FROM {table};",
		Template: "There are {value} distinct states in the data.",
	},
	IntentCities: {
		Query:    "SELECT COUNT(DISTINCT CIDADE_RESIDENCIA_PACIENTE) FROM {table};",
		Template: "There are {value} distinct cities in the data.",
	},
	IntentAvgAge: {
		Query:    "SELECT AVG(IDADE) FROM {table};",
		Template: "The average patient age is {value} years.",
		kind:     kindDecimal,
	},
	IntentSchema: {
		Query:    "SELECT sql FROM sqlite_master WHERE type='table' AND name='{table}';",
		Template: "Structure of table {table}:\n{value}",
		kind:     kindText,
	},
	IntentCityDeaths: {
		Query:    "SELECT COUNT(*) FROM {table} WHERE CIDADE_RESIDENCIA_PACIENTE = '{city}' AND MORTE = 1;",
		Template: "There were {value} deaths of residents of {city}.",
	},
	IntentSexDeaths: {
		Query:    "SELECT COUNT(*) FROM {table} WHERE SEXO = {sex} AND MORTE = 1;",
		Template: "There were {value} deaths among {sex} patients.",
	},
	IntentListCities: {
		Query:    "SELECT DISTINCT CIDADE_RESIDENCIA_PACIENTE FROM {table} ORDER BY CIDADE_RESIDENCIA_PACIENTE LIMIT 20;",
		Template: "Some of the cities in the data: {value}",
		kind:     kindList,
	},
}

// Lookup returns the spec for intent.
func Lookup(intent Intent) (Spec, bool) {
	s, ok := specs[intent]
	return s, ok
}

// Intents returns every known intent.
func Intents() []Intent {
	return []Intent{
		IntentColumns, IntentRecords, IntentDeaths, IntentStates, IntentCities,
		IntentAvgAge, IntentSchema, IntentCityDeaths, IntentSexDeaths, IntentListCities,
	}
}

// #endregion

// #region parameters

// SEXO codes. The dataset has no code 2.
const (
	SexMale   = "1"
	SexFemale = "3"
)

var sexLabels = map[string]string{SexMale: "male", SexFemale: "female"}

func (i Intent) param() string {
	switch i {
	case IntentCityDeaths:
		return "city"
	case IntentSexDeaths:
		return "sex"
	}
	return ""
}

// quoteLiteral escapes s for use inside a single-quoted SQL string.
func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// #endregion
