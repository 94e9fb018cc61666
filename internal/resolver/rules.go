package resolver

import (
	"strings"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// #region general-terms

var generalKeywords = []string{
	"respiratory", "respiratoria", "respiratorias", "respiratorio",
	"cardiovascular", "cardiovasculares", "cardiac", "cardiaca", "cardiacas",
	"digestive", "digestiva", "digestivas",
	"renal", "renais",
	"neurological", "neurologica", "neurologicas",
	"endocrine", "endocrina", "endocrinas",
	"infectious", "infecciosa", "infecciosas",
	"mental", "mentais",
}

var generalPatterns = []string{
	"diseases", "disease", "problems", "system", "apparatus",
	"doencas", "doenca", "problemas", "sistema", "aparelho",
}

// IsGeneral reports whether term names a broad body system or disease
// family rather than a specific condition.
func IsGeneral(term string) bool {
	return textnorm.HasWord(term, generalKeywords...) || textnorm.HasWord(term, generalPatterns...)
}

// #endregion

// #region prefix-validation

type prefixRule struct {
	stems  []string
	letter string
}

var prefixRules = []prefixRule{
	{stems: []string{"respirat", "pulmon", "pulmao", "lung", "bronch", "bronqu"}, letter: "J"},
	{stems: []string{"cardiovascular", "cardiac", "cardiaca", "coracao", "heart"}, letter: "I"},
	{stems: []string{"diabet", "endocrin"}, letter: "E"},
}

// plausible rejects semantic candidates whose letter contradicts an obvious
// stem in the term. Terms without a known stem always pass.
func plausible(term string, r Range) (bool, string) {
	folded := textnorm.Fold(term)
	for _, rule := range prefixRules {
		for _, stem := range rule.stems {
			if !strings.Contains(folded, stem) {
				continue
			}
			if strings.HasPrefix(r.Start, rule.letter) || strings.HasPrefix(r.End, rule.letter) {
				return true, ""
			}
			return false, "term mentions " + stem + " but range is outside " + rule.letter
		}
	}
	return true, ""
}

// #endregion

// #region pattern-fallback

type fallbackPattern struct {
	stem string
	rng  Range
}

var fallbackPatterns = []fallbackPattern{
	{"respirat", respiratory},
	{"pulmao", respiratory},
	{"pulmonar", respiratory},
	{"lung", respiratory},
	{"cardiovascular", cardiovascular},
	{"cardiac", cardiovascular},
	{"coracao", cardiovascular},
	{"heart", cardiovascular},
	{"diabet", diabetes},
	{"cancer", neoplasm},
	{"tumor", neoplasm},
	{"renal", renal},
	{"kidney", renal},
	{"mental", mental},
	{"neurolog", neurological},
	{"digestiv", digestive},
}

func matchPattern(term string) (Range, bool) {
	folded := textnorm.Fold(term)
	for _, p := range fallbackPatterns {
		if hasWordPrefix(folded, p.stem) {
			return p.rng, true
		}
	}
	return Range{}, false
}

// #endregion
