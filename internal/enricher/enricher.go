// Package enricher rewrites disease phrases in a request into an explicit
// ICD-10 code condition the translator cannot misread.
package enricher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// Marker is present in every enriched request.
const Marker = "satisfying condition:"

// Resolver is the subset of *resolver.Resolver the enricher needs.
type Resolver interface {
	Resolve(ctx context.Context, term string) (resolver.Entry, bool)
}

// #region phrase-pattern

var phrasePattern = regexp.MustCompile(
	`\b(cases|hospitalizations|admissions|deaths|diseases?|casos|internacoes|mortes|obitos|doencas?) ` +
		`(with|of|by|from|for|due to|de|por|com|do|da|dos|das|pelo|pela) ` +
		`([a-z0-9][a-z0-9 \-]*)`)

var baseNouns = map[string]string{
	"cases":            "cases",
	"hospitalizations": "hospitalizations",
	"admissions":       "hospitalizations",
	"deaths":           "deaths",
	"disease":          "cases",
	"diseases":         "cases",
	"casos":            "cases",
	"internacoes":      "hospitalizations",
	"mortes":           "deaths",
	"obitos":           "deaths",
	"doenca":           "cases",
	"doencas":          "cases",
}

// #endregion

// #region enricher

// Enricher is stateless apart from its resolver and safe for concurrent use.
type Enricher struct {
	resolver Resolver
	logger   *zap.Logger
}

// New returns an enricher backed by r.
func New(r Resolver, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{resolver: r, logger: logger.With(zap.String("component", "enrich"))}
}

// Enrich returns text with trailing punctuation removed and, when a disease
// phrase resolves, replaced by an explicit condition request. Text already
// carrying Marker is returned as is.
func (e *Enricher) Enrich(ctx context.Context, text string) string {
	if IsEnriched(text) {
		return text
	}
	clean := strings.TrimRight(text, "?!.;:, \t\n")

	m := phrasePattern.FindStringSubmatch(textnorm.Fold(clean))
	if m == nil {
		return clean
	}
	term := strings.TrimSpace(m[3])

	entry, ok := e.resolver.Resolve(ctx, term)
	if !ok {
		if words := strings.Fields(term); len(words) > 1 {
			last := words[len(words)-1]
			e.logger.Debug("term unresolved, retrying last word",
				zap.String("term", term),
				zap.String("retry", last))
			entry, ok = e.resolver.Resolve(ctx, last)
		}
	}
	if !ok {
		e.logger.Debug("term unresolved", zap.String("term", term))
		return clean
	}

	enriched := Build(baseNouns[m[1]], entry.Range)
	e.logger.Info("request enriched",
		zap.String("term", term),
		zap.String("range", entry.Range.String()),
		zap.String("tier", string(entry.Tier)),
		zap.String("enriched", enriched))
	return enriched
}

// Build renders the explicit condition request for base over r.
func Build(base string, r resolver.Range) string {
	return fmt.Sprintf("total count of %s %s substr(DIAG_PRINC, 1, 3) BETWEEN '%s' AND '%s'",
		base, Marker, r.Start, r.End)
}

// IsEnriched reports whether text carries the explicit condition marker.
func IsEnriched(text string) bool {
	return strings.Contains(strings.ToLower(text), Marker)
}

// #endregion
