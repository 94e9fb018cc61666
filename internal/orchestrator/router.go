package orchestrator

// #region imports
import (
	"regexp"
	"sort"
	"strings"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/handler"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// #endregion

// #region rule

// Rule maps a family of phrasings to a handler intent. Match returns the
// bound parameter (city name, SEXO code) when the intent takes one.
type Rule struct {
	Name            string
	Match           func(text string) (string, bool)
	Intent          handler.Intent
	FilterSensitive bool
}

// Route is the router's decision for a request.
type Route struct {
	Rule   string
	Intent handler.Intent
	Value  string
}

// filterWords signal extra filtering that the canonical queries cannot express.
var filterWords = []string{
	"for", "in", "with", "of", "from", "by", "to", "among", "during", "at",
	"por", "em", "com", "de", "do", "da", "dos", "das", "no", "na", "pelo", "pela", "entre", "durante",
}

// #endregion

// #region phrases

var columnCountPhrases = []string{
	"how many columns", "number of columns", "count columns", "columns does",
	"column count", "quantas colunas", "colunas tem", "numero de colunas",
}

var recordCountPhrases = []string{
	"how many records", "how many rows", "number of records", "number of rows",
	"count records", "count rows", "record count", "quantos registros", "quantas linhas", "numero de registros",
}

func containsAny(phrases ...string) func(string) (string, bool) {
	return func(text string) (string, bool) {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return "", true
			}
		}
		return "", false
	}
}

var deathHead = `(?:how many deaths|number of deaths|total deaths|deaths|how many people died|how many died|` +
	`quantas mortes|numero de mortes|total de mortes|quantos obitos|mortes|obitos)` +
	`(?: were there| occurred| happened| houve| ocorreram)?`

var sexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^` + deathHead + ` (?:among|of|for|in|entre|de|do|por) (?:the )?(men|males|male patients|male|women|females|female patients|female|homens|mulheres|pacientes do sexo masculino|pacientes do sexo feminino|sexo masculino|sexo feminino|masculino|feminino)$`),
	regexp.MustCompile(`^how many (men|males|male patients|women|females|female patients) died$`),
	regexp.MustCompile(`^quant[oa]s (homens|mulheres) morreram$`),
}

var averageAgePattern = regexp.MustCompile(
	`^(?:what is |what's |qual e |qual )?(?:the |a )?(?:average|mean|idade media|media de idade|media da idade|media idade)` +
		`(?: patient)?(?: age)?(?: of (?:the |all )?patients| dos pacientes)?$`)

func matchRegexp(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		return "", re.MatchString(text)
	}
}

func sexCode(word string) string {
	switch {
	case strings.HasPrefix(word, "wom"), strings.HasPrefix(word, "fem"),
		strings.HasPrefix(word, "mulher"), strings.Contains(word, "feminino"):
		return handler.SexFemale
	}
	return handler.SexMale
}

func matchSexDeaths(text string) (string, bool) {
	for _, re := range sexPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return sexCode(m[1]), true
		}
	}
	return "", false
}

// cityDeathsMatcher binds the city as given in cities, so names read from
// the data keep their accents.
func cityDeathsMatcher(cities []string) func(string) (string, bool) {
	quoted := make([]string, 0, len(cities))
	names := make(map[string]string, len(cities))
	for _, c := range cities {
		folded := textnorm.Fold(c)
		if folded == "" {
			continue
		}
		if _, dup := names[folded]; dup {
			continue
		}
		names[folded] = c
		quoted = append(quoted, regexp.QuoteMeta(folded))
	}
	// longest first so "rio grande" does not shadow "rio grande do sul"
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	re := regexp.MustCompile(`^` + deathHead +
		` (?:in|em|of|for|among residents of|de residentes de|de) (?:the city of |a cidade de |cidade de )?(` +
		strings.Join(quoted, "|") + `)(?: city)?$`)
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return names[m[1]], true
	}
}

// DefaultCities are the residence cities the city-scoped death rule recognizes.
var DefaultCities = []string{
	"porto alegre", "santa maria", "caxias do sul", "pelotas", "canoas",
	"uruguaiana", "passo fundo", "rio grande", "novo hamburgo", "gravatai",
	"viamao", "sao leopoldo",
}

// #endregion

// #region router

// Router matches request text against an ordered rule table.
// Immutable after construction.
type Router struct {
	rules []Rule
}

// NewRouter builds the rule table. A nil cities list uses DefaultCities.
// The city and sex death rules come before the plain death count.
func NewRouter(cities []string) *Router {
	if cities == nil {
		cities = DefaultCities
	}
	return &Router{rules: []Rule{
		{
			Name:   "column_count",
			Match:  containsAny(columnCountPhrases...),
			Intent: handler.IntentColumns,
		},
		{
			Name:   "record_count",
			Match:  containsAny(recordCountPhrases...),
			Intent: handler.IntentRecords,
		},
		{
			Name:   "city_deaths",
			Match:  cityDeathsMatcher(cities),
			Intent: handler.IntentCityDeaths,
		},
		{
			Name:   "sex_deaths",
			Match:  matchSexDeaths,
			Intent: handler.IntentSexDeaths,
		},
		{
			Name: "death_count",
			Match: containsAny("how many deaths", "how many people died", "how many died", "number of deaths",
				"total deaths", "death count", "mortality count", "quantas mortes", "quantos morreram",
				"numero de mortes", "total de mortes", "quantos obitos"),
			Intent:          handler.IntentDeaths,
			FilterSensitive: true,
		},
		{
			Name:            "state_count",
			Match:           containsAny("how many states", "how many distinct states", "how many different states", "quantos estados", "estados diferentes"),
			Intent:          handler.IntentStates,
			FilterSensitive: true,
		},
		{
			Name:            "list_cities",
			Match:           containsAny("which cities", "list the cities", "list cities", "quais cidades", "cidades distintas"),
			Intent:          handler.IntentListCities,
			FilterSensitive: true,
		},
		{
			Name:            "city_count",
			Match:           containsAny("how many cities", "how many distinct cities", "how many different cities", "quantas cidades", "cidades diferentes"),
			Intent:          handler.IntentCities,
			FilterSensitive: true,
		},
		{
			Name:   "average_age",
			Match:  matchRegexp(averageAgePattern),
			Intent: handler.IntentAvgAge,
		},
		{
			Name:   "schema",
			Match:  containsAny("schema", "table structure", "structure of the table", "estrutura"),
			Intent: handler.IntentSchema,
		},
	}}
}

// Rules returns the rule table in match order.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Match returns the first rule accepting text. A filter-sensitive rule is
// skipped when text contains a filter word as a whole token.
func (r *Router) Match(text string) (Route, bool) {
	return r.match(text, true)
}

// MatchLenient ignores filter sensitivity. Used for the single fallback
// pass after a translator failure.
func (r *Router) MatchLenient(text string) (Route, bool) {
	return r.match(text, false)
}

func (r *Router) match(text string, strict bool) (Route, bool) {
	folded := strings.TrimRight(textnorm.Fold(text), "?!.;:, ")
	filtered := strict && textnorm.HasWord(folded, filterWords...)
	for _, rule := range r.rules {
		value, ok := rule.Match(folded)
		if !ok {
			continue
		}
		if rule.FilterSensitive && filtered {
			continue
		}
		return Route{Rule: rule.Name, Intent: rule.Intent, Value: value}, true
	}
	return Route{}, false
}

// #endregion
