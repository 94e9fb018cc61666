package resolver

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// #region vocabulary

// Vocabulary is the static term table of the exact tier. Keys are folded
// (lowercase, no diacritics). Immutable after construction.
type Vocabulary struct {
	ranges map[string]Range
	keys   []string // longest first, then lexical
}

// NewVocabulary folds the keys of entries and drops invalid ranges.
func NewVocabulary(entries map[string]Range) *Vocabulary {
	v := &Vocabulary{ranges: make(map[string]Range, len(entries))}
	for term, r := range entries {
		k := textnorm.Fold(term)
		if k == "" || !r.Valid() {
			continue
		}
		v.ranges[k] = r
	}
	v.keys = make([]string, 0, len(v.ranges))
	for k := range v.ranges {
		v.keys = append(v.keys, k)
	}
	sort.Slice(v.keys, func(i, j int) bool {
		if len(v.keys[i]) != len(v.keys[j]) {
			return len(v.keys[i]) > len(v.keys[j])
		}
		return v.keys[i] < v.keys[j]
	})
	return v
}

// DefaultVocabulary returns the built-in English and Portuguese table.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(builtinTerms)
}

// With returns a new vocabulary with extra entries layered on top.
func (v *Vocabulary) With(extra map[string]Range) *Vocabulary {
	merged := make(map[string]Range, len(v.ranges)+len(extra))
	for k, r := range v.ranges {
		merged[k] = r
	}
	for k, r := range extra {
		merged[k] = r
	}
	return NewVocabulary(merged)
}

// Lookup returns the range for an exact (folded) term.
func (v *Vocabulary) Lookup(term string) (Range, bool) {
	r, ok := v.ranges[textnorm.Fold(term)]
	return r, ok
}

// Terms returns the folded keys in matching order.
func (v *Vocabulary) Terms() []string {
	return append([]string(nil), v.keys...)
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.keys)
}

// #endregion

// #region vocabulary-file

type vocabularyFile struct {
	Terms map[string][]string `yaml:"terms"`
}

// LoadVocabularyFile reads extra terms from YAML:
//
//	terms:
//	  sepse: [A40, A41]
func LoadVocabularyFile(path string) (map[string]Range, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	out := make(map[string]Range, len(f.Terms))
	for term, codes := range f.Terms {
		if len(codes) != 2 {
			return nil, fmt.Errorf("vocabulary term %q: want [start, end], got %v", term, codes)
		}
		r := Range{Start: codes[0], End: codes[1]}
		if !r.Valid() {
			return nil, fmt.Errorf("vocabulary term %q: invalid range %s", term, r)
		}
		out[term] = r
	}
	return out, nil
}

// #endregion

// #region builtin-terms

var (
	respiratory    = Range{"J00", "J99"}
	cardiovascular = Range{"I00", "I99"}
	diabetes       = Range{"E10", "E14"}
	neoplasm       = Range{"C00", "D49"}
	renal          = Range{"N00", "N99"}
	neurological   = Range{"G00", "G99"}
	digestive      = Range{"K00", "K95"}
	mental         = Range{"F00", "F99"}
	infectious     = Range{"A00", "B99"}
)

var builtinTerms = map[string]Range{
	// respiratory
	"respiratory":           respiratory,
	"respiratory disease":   respiratory,
	"respiratory diseases":  respiratory,
	"respiratory system":    respiratory,
	"lung":                  respiratory,
	"lungs":                 respiratory,
	"pulmonary":             respiratory,
	"bronchial":             respiratory,
	"respiratorias":         respiratory,
	"respiratoria":          respiratory,
	"doenca respiratoria":   respiratory,
	"doencas respiratorias": respiratory,
	"aparelho respiratorio": respiratory,
	"sistema respiratorio":  respiratory,
	"pulmao":                respiratory,
	"pulmoes":               respiratory,
	"pulmonar":              respiratory,
	"pulmonares":            respiratory,
	"bronquio":              respiratory,
	"bronquios":             respiratory,
	"pneumonia":             {"J12", "J18"},
	"asthma":                {"J45", "J46"},
	"asma":                  {"J45", "J46"},
	"bronchitis":            {"J20", "J42"},
	"bronquite":             {"J20", "J42"},
	"copd":                  {"J44", "J44"},
	"dpoc":                  {"J44", "J44"},
	"influenza":             {"J09", "J11"},
	"flu":                   {"J09", "J11"},
	"gripe":                 {"J09", "J11"},

	// circulatory
	"cardiovascular":   cardiovascular,
	"cardiovasculares": cardiovascular,
	"cardiac":          cardiovascular,
	"heart":            cardiovascular,
	"heart disease":    cardiovascular,
	"cardiacas":        cardiovascular,
	"cardiaca":         cardiovascular,
	"cardiaco":         cardiovascular,
	"coracao":          cardiovascular,
	"infarction":       {"I21", "I22"},
	"heart attack":     {"I21", "I22"},
	"infarto":          {"I21", "I22"},
	"stroke":           {"I60", "I69"},
	"avc":              {"I60", "I69"},
	"hypertension":     {"I10", "I15"},
	"hipertensao":      {"I10", "I15"},

	// endocrine and neoplasms
	"diabetes":  diabetes,
	"diabetic":  diabetes,
	"diabetica": diabetes,
	"diabetico": diabetes,
	"endocrine": {"E00", "E90"},
	"cancer":    neoplasm,
	"tumor":     neoplasm,
	"neoplasm":  neoplasm,
	"neoplasia": neoplasm,
	"malignant": {"C00", "C97"},
	"maligno":   {"C00", "C97"},

	// other chapters
	"renal":           renal,
	"renais":          renal,
	"kidney":          renal,
	"kidneys":         renal,
	"rins":            renal,
	"neurological":    neurological,
	"neurologicas":    neurological,
	"neurologica":     neurological,
	"nervous":         neurological,
	"nervoso":         neurological,
	"digestive":       digestive,
	"digestivas":      digestive,
	"digestiva":       digestive,
	"mental":          mental,
	"mentais":         mental,
	"depression":      {"F32", "F33"},
	"depressao":       {"F32", "F33"},
	"dementia":        {"F00", "F03"},
	"demencia":        {"F00", "F03"},
	"musculoskeletal": {"M00", "M99"},
	"infectious":      infectious,
	"parasitic":       infectious,
	"infecciosas":     infectious,
	"infecciosa":      infectious,
}

// #endregion
