package orchestrator

// #region imports
import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/handler"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// #endregion

// #region validator

// Validator holds the sanity bounds for translator answers.
type Validator struct {
	MaxColumns int
	MinRecords int
	Table      string
}

// DefaultValidator returns the bounds used when none are configured.
func DefaultValidator() Validator {
	return Validator{MaxColumns: 50, MinRecords: 100, Table: "dados_sus3"}
}

// Validate checks an answer with the default bounds.
func Validate(question, answer string, queries []string) Verdict {
	return DefaultValidator().Validate(question, answer, queries)
}

// #endregion

// #region keywords

// columnQuestions and recordQuestions name the count-of-structure and
// count-of-records phrasings. The bounds only apply to these.
var columnQuestions = append(append([]string(nil), columnCountPhrases...),
	"columns total", "total columns", "total de colunas", "how many fields", "number of fields", "quantos campos")

var recordQuestions = append(append([]string(nil), recordCountPhrases...),
	"records total", "total records", "total rows", "total de registros", "total de linhas")

var (
	firstNumber = regexp.MustCompile(`\b\d+\b`)
	whereClause = regexp.MustCompile(`(?i)\bWHERE\b`)
)

// #endregion

// #region validate

// Validate is pure: the same inputs always give the same verdict.
func (v Validator) Validate(question, answer string, queries []string) Verdict {
	q := strings.TrimRight(textnorm.Fold(question), "?!.;:, ")
	n, hasNumber := reportedNumber(answer)

	if _, ok := containsAny(columnQuestions...)(q); ok {
		if hasNumber && n > int64(v.MaxColumns) {
			return Verdict{
				Issue:      fmt.Sprintf("reported %d columns, more than %d", n, v.MaxColumns),
				Corrective: handler.IntentColumns,
			}
		}
		if query, bad := v.countsRowsForColumns(queries); bad {
			return Verdict{
				Issue:      "column question answered by counting rows: " + query,
				Corrective: handler.IntentColumns,
			}
		}
		return Verdict{Valid: true}
	}

	if _, ok := containsAny(recordQuestions...)(q); ok {
		if query, bad := countsColumnsForRecords(queries); bad {
			return Verdict{
				Issue:      "record question answered by counting columns: " + query,
				Corrective: handler.IntentRecords,
			}
		}
		// A filtered count may legitimately be small.
		if hasNumber && n < int64(v.MinRecords) && !filtered(queries) {
			return Verdict{
				Issue:      fmt.Sprintf("reported %d records, fewer than %d", n, v.MinRecords),
				Corrective: handler.IntentRecords,
			}
		}
	}

	return Verdict{Valid: true}
}

// reportedNumber reads the first integer in answer after dropping
// thousands separators.
func reportedNumber(answer string) (int64, bool) {
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(answer)
	m := firstNumber.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (v Validator) countsRowsForColumns(queries []string) (string, bool) {
	needle := strings.ToUpper("COUNT(*) FROM " + v.Table)
	for _, query := range queries {
		upper := strings.ToUpper(strings.Join(strings.Fields(query), " "))
		if strings.Contains(upper, needle) && !strings.Contains(upper, "PRAGMA_TABLE_INFO") {
			return query, true
		}
	}
	return "", false
}

func countsColumnsForRecords(queries []string) (string, bool) {
	for _, query := range queries {
		if strings.Contains(strings.ToUpper(query), "PRAGMA_TABLE_INFO") {
			return query, true
		}
	}
	return "", false
}

func filtered(queries []string) bool {
	for _, query := range queries {
		if whereClause.MatchString(query) {
			return true
		}
	}
	return false
}

// #endregion
