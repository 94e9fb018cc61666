package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildContext(t *testing.T) {
	ctx := NewBuilder("").BuildContext("How many deaths in Porto Alegre?")
	assert.True(t, strings.HasSuffix(ctx, "QUESTION: How many deaths in Porto Alegre?"))
	assert.Contains(t, ctx, "The only table is dados_sus3.")
	assert.Contains(t, ctx, "SELECT COUNT(*) FROM dados_sus3 WHERE MORTE = 1")
	assert.Contains(t, ctx, "MORTE = 1 counts deaths")
	assert.Contains(t, ctx, "CIDADE_RESIDENCIA_PACIENTE holds the city name")
	assert.NotContains(t, ctx, "ICU days")

	custom := NewBuilder("admissions").BuildContext("columns?")
	assert.Contains(t, custom, "pragma_table_info('admissions')")
	assert.NotContains(t, custom, "HINTS FOR THIS QUESTION")
}

func TestBuildContext_Pure(t *testing.T) {
	b := NewBuilder("")
	assert.Equal(t, b.BuildContext("quantas mortes de mulheres"), b.BuildContext("quantas mortes de mulheres"))
}

func TestHints(t *testing.T) {
	assert.Equal(t, []string{"SEXO is 1 for male and 3 for female"}, Hints("Quantas mulheres?"))
	assert.Len(t, Hints("average ICU cost by state"), 3)
	assert.Empty(t, Hints("hello"))
}

func TestLint(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"SELECT COUNT(*) FROM dados_sus3 WHERE MORTE = 1", 0},
		{"SELECT COUNT(*) FROM dados_sus3 WHERE CID_MORTE > 0", 1},
		{"SELECT CID_MORTE, COUNT(*) FROM dados_sus3 WHERE MORTE = 1 AND CID_MORTE > 0 GROUP BY 1", 0},
		{"select count(*) from dados_sus3 where sexo = 2", 1},
		{"SELECT COUNT(*) FROM dados_sus3 WHERE SEXO = 3 AND MORTE > 0", 1},
		{"SELECT COUNT(*) FROM dados_sus3 WHERE MUNIC_RES = 'Porto Alegre'", 1},
		{"SELECT COUNT(*) FROM dados_sus3 WHERE DT_INTER LIKE '2017%'", 1},
		{"SELECT COUNT(*) FROM dados_sus3 WHERE MUNIC_RES = 431490", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Len(t, Lint(tt.query), tt.want)
		})
	}
}
