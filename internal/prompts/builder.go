// Package prompts builds the domain context the translator sees and lints
// the SQL it writes.
package prompts

import (
	"strings"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// Builder renders schema documentation around a request. It is pure.
type Builder struct {
	table string
}

// NewBuilder returns a builder for table (default dados_sus3).
func NewBuilder(table string) *Builder {
	if table == "" {
		table = "dados_sus3"
	}
	return &Builder{table: table}
}

// BuildContext decorates text with column documentation, query rules and
// topic hints.
func (b *Builder) BuildContext(text string) string {
	var sb strings.Builder
	sb.WriteString("You query a SQLite database of Brazilian public health system (SUS) hospital admissions.\n")
	sb.WriteString("The only table is " + b.table + ". One row is one admission.\n\nCOLUMNS:\n")
	for _, c := range Columns {
		sb.WriteString("- " + c.Name + ": " + c.Description)
		if c.Note != "" {
			sb.WriteString(" (" + c.Note + ")")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nCORRECT QUERIES:\n")
	for _, r := range queryRules {
		sb.WriteString("- " + strings.ReplaceAll(r, "{table}", b.table) + "\n")
	}

	if hs := Hints(text); len(hs) > 0 {
		sb.WriteString("\nHINTS FOR THIS QUESTION:\n")
		for _, h := range hs {
			sb.WriteString("- " + h + "\n")
		}
	}

	sb.WriteString("\nQUESTION: " + text)
	return sb.String()
}

// Hints returns the column suggestions matching text's topics.
func Hints(text string) []string {
	var out []string
	for _, h := range hints {
		if textnorm.HasWord(text, h.words...) {
			out = append(out, h.hint)
		}
	}
	return out
}
