// Package resolver maps free-text disease terms to ICD-10 code ranges.
//
// Resolution runs through tiers in order and the first accepted candidate
// wins: the exact vocabulary table, chapter-level semantic search (general
// terms only), category-level semantic search, and a stem pattern table.
package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/embedding"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// #region resolver

// Resolver is read-only after New and safe for concurrent use.
type Resolver struct {
	vocab    *Vocabulary
	index    *Index
	provider embedding.Provider
	cfg      Config
	logger   *zap.Logger
}

// New builds a resolver. A nil index or provider disables the semantic
// tiers; a nil vocabulary uses the built-in table.
func New(vocab *Vocabulary, index *Index, provider embedding.Provider, cfg Config, logger *zap.Logger) *Resolver {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{vocab: vocab, index: index, provider: provider, cfg: cfg, logger: logger}
}

// Resolve returns the code range for term, or false when no tier accepts.
func (r *Resolver) Resolve(ctx context.Context, term string) (Entry, bool) {
	return r.resolve(ctx, term, nil)
}

// Explain resolves term and also returns every candidate considered.
func (r *Resolver) Explain(ctx context.Context, term string) (Entry, bool, []Attempt) {
	var attempts []Attempt
	e, ok := r.resolve(ctx, term, func(a Attempt) { attempts = append(attempts, a) })
	return e, ok, attempts
}

func (r *Resolver) resolve(ctx context.Context, term string, record func(Attempt)) (Entry, bool) {
	if record == nil {
		record = func(Attempt) {}
	}
	folded := textnorm.Fold(term)
	if folded == "" {
		return Entry{}, false
	}

	if rng, ok := r.exact(folded); ok {
		record(Attempt{Tier: TierExact, Range: rng, Score: 1, Accepted: true})
		return Entry{Term: term, Range: rng, Tier: TierExact, Score: 1}, true
	}

	if r.semanticEnabled() {
		if query, ok := r.embed(ctx, folded); ok {
			tiers := []func([]float32) (Range, float32, bool, string){r.category, r.chapter}
			order := []Tier{TierCategorySemantic, TierChapterSemantic}
			if IsGeneral(folded) {
				tiers[0], tiers[1] = tiers[1], tiers[0]
				order[0], order[1] = order[1], order[0]
			}
			for i, search := range tiers {
				rng, score, accepted, reason := search(query)
				if rng == (Range{}) {
					continue
				}
				if accepted && order[i] == TierCategorySemantic {
					if ok, why := plausible(folded, rng); !ok {
						accepted, reason = false, why
					}
				}
				record(Attempt{Tier: order[i], Range: rng, Score: score, Accepted: accepted, Reason: reason})
				if accepted {
					return Entry{Term: term, Range: rng, Tier: order[i], Score: score}, true
				}
			}
		}
	}

	if rng, ok := matchPattern(folded); ok {
		record(Attempt{Tier: TierPatternFallback, Range: rng, Score: 1, Accepted: true})
		return Entry{Term: term, Range: rng, Tier: TierPatternFallback, Score: 1}, true
	}
	return Entry{}, false
}

// #endregion

// #region exact-tier

func (r *Resolver) exact(folded string) (Range, bool) {
	if rng, ok := r.vocab.ranges[folded]; ok {
		return rng, true
	}

	for _, key := range r.vocab.keys {
		if containsTerm(folded, key) {
			return r.vocab.ranges[key], true
		}
	}
	if len(folded) >= 4 && !isPatternWord(folded) {
		for _, key := range r.vocab.keys {
			if hasWordPrefix(key, folded) {
				return r.vocab.ranges[key], true
			}
		}
	}

	for _, w := range textnorm.Words(folded) {
		if len(w) <= 3 || isPatternWord(w) {
			continue
		}
		if rng, ok := r.vocab.ranges[w]; ok {
			return rng, true
		}
		for _, key := range r.vocab.keys {
			if hasWordPrefix(key, w) {
				return r.vocab.ranges[key], true
			}
		}
	}
	return Range{}, false
}

// containsTerm reports whether key occurs in text starting at a word
// boundary. Keys shorter than four characters must match whole words.
func containsTerm(text, key string) bool {
	if len(key) < 4 {
		return textnorm.HasWord(text, key)
	}
	return hasWordPrefix(text, key)
}

// hasWordPrefix reports whether needle occurs in haystack at the start of a
// word, so "asthma" matches "asthmatic" but "asma" does not match "plasma".
func hasWordPrefix(haystack, needle string) bool {
	for i := 0; ; {
		j := strings.Index(haystack[i:], needle)
		if j < 0 {
			return false
		}
		at := i + j
		if at == 0 || haystack[at-1] == ' ' || haystack[at-1] == '-' {
			return true
		}
		i = at + 1
	}
}

func isPatternWord(w string) bool {
	for _, p := range generalPatterns {
		if w == p {
			return true
		}
	}
	return false
}

// #endregion

// #region semantic-tiers

func (r *Resolver) semanticEnabled() bool {
	return r.index != nil && r.provider != nil
}

func (r *Resolver) embed(ctx context.Context, folded string) ([]float32, bool) {
	vec, err := r.provider.Embed(ctx, folded)
	if err != nil {
		r.logger.Warn("term embedding failed, skipping semantic tiers",
			zap.String("term", folded),
			zap.String("provider", r.provider.Name()),
			zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (r *Resolver) chapter(query []float32) (Range, float32, bool, string) {
	rng, score, ok := r.index.nearestChapter(query)
	if !ok {
		return Range{}, 0, false, ""
	}
	if score*r.cfg.ChapterBonus < r.cfg.ChapterThreshold {
		return rng, score, false, "below chapter threshold"
	}
	return rng, score, true, ""
}

func (r *Resolver) category(query []float32) (Range, float32, bool, string) {
	rng, score, ok := r.index.nearestCategory(query)
	if !ok {
		return Range{}, 0, false, ""
	}
	if score < r.cfg.CategoryThreshold {
		return rng, score, false, "below category threshold"
	}
	return rng, score, true, ""
}

// #endregion
