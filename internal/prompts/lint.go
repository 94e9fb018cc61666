package prompts

import (
	"regexp"
	"strings"
)

var (
	cidMortePositive = regexp.MustCompile(`CID_MORTE\s*>\s*0`)
	morteFlag        = regexp.MustCompile(`\bMORTE\s*=\s*1\b`)
	sexoTwo          = regexp.MustCompile(`\bSEXO\s*=\s*'?2'?\b`)
	morteGreater     = regexp.MustCompile(`\bMORTE\s*>\s*0`)
	municByName      = regexp.MustCompile(`MUNIC_RES\s*=\s*'[A-Z]`)
	dateLike         = regexp.MustCompile(`\b(DT_INTER|DT_SAIDA)\b[^;]*\bLIKE\b`)
)

// Lint reports known anti-patterns in a query against the admissions table.
func Lint(query string) []string {
	q := strings.ToUpper(query)
	var issues []string
	if cidMortePositive.MatchString(q) && !morteFlag.MatchString(q) {
		issues = append(issues, "CID_MORTE > 0 does not count deaths; use MORTE = 1")
	}
	if morteGreater.MatchString(q) {
		issues = append(issues, "use MORTE = 1 rather than MORTE > 0")
	}
	if sexoTwo.MatchString(q) {
		issues = append(issues, "SEXO = 2 does not exist; use 1 (male) or 3 (female)")
	}
	if municByName.MatchString(q) {
		issues = append(issues, "MUNIC_RES is an IBGE code; filter city names with CIDADE_RESIDENCIA_PACIENTE")
	}
	if dateLike.MatchString(q) {
		issues = append(issues, "dates are YYYYMMDD numbers; compare them numerically")
	}
	return issues
}
