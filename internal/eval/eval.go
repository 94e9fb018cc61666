// Package eval measures resolver accuracy over a labelled term corpus and
// compares threshold settings.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
)

// #region corpus

// Resolver is the part of *resolver.Resolver the harness drives.
type Resolver interface {
	Resolve(ctx context.Context, term string) (resolver.Entry, bool)
}

// VocabularyCases labels every vocabulary term with its own range and the
// exact tier.
func VocabularyCases(v *resolver.Vocabulary) []Case {
	terms := v.Terms()
	cases := make([]Case, 0, len(terms))
	for _, term := range terms {
		r, _ := v.Lookup(term)
		cases = append(cases, Case{Term: term, Start: r.Start, End: r.End, Tier: string(resolver.TierExact)})
	}
	return cases
}

// LoadCases reads a JSON array of cases.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases %s: %w", path, err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", path, err)
	}
	for i, c := range cases {
		if c.Term == "" || !c.Want().Valid() {
			return nil, fmt.Errorf("case %d (%q): invalid term or range", i, c.Term)
		}
	}
	return cases, nil
}

// #endregion corpus

// #region eval-harness
// EvalHarness scores a resolver against labelled cases.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run resolves every case and reports accuracy metrics. Coverage and the
// per-tier counts are informational.
func (h *EvalHarness) Run(ctx context.Context, r Resolver, cases []Case) EvalResult {
	var (
		hits, resolved, exactTotal, exactHits int
		byTier                                = map[resolver.Tier]int{}
		failures                              []Failure
	)
	for _, c := range cases {
		e, ok := r.Resolve(ctx, c.Term)
		if ok {
			resolved++
			byTier[e.Tier]++
		}
		hit := ok && e.Range == c.Want() && (c.Tier == "" || resolver.Tier(c.Tier) == e.Tier)
		if c.Tier == string(resolver.TierExact) {
			exactTotal++
			if hit {
				exactHits++
			}
		}
		if hit {
			hits++
			continue
		}
		failures = append(failures, Failure{Case: c, Got: e.Range, GotTier: e.Tier, Resolved: ok})
	}

	accuracy := ratio(hits, len(cases))
	exactAccuracy := ratio(exactHits, exactTotal)
	metrics := []EvalMetric{
		{Name: "accuracy", Value: accuracy, Pass: accuracy >= h.config.MinAccuracy},
		{Name: "exact_accuracy", Value: exactAccuracy, Pass: exactTotal == 0 || exactAccuracy >= h.config.MinExactAccuracy},
		{Name: "coverage", Value: ratio(resolved, len(cases)), Pass: true},
	}
	for _, tier := range []resolver.Tier{resolver.TierExact, resolver.TierChapterSemantic, resolver.TierCategorySemantic, resolver.TierPatternFallback} {
		metrics = append(metrics, EvalMetric{Name: "tier_" + string(tier), Value: float32(byTier[tier]), Pass: true})
	}

	passed := true
	var failReasons []string
	for _, m := range metrics {
		if !m.Pass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("%s %.3f below bound", m.Name, m.Value))
		}
	}

	reason := fmt.Sprintf("all checks passed (%d/%d)", hits, len(cases))
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{Passed: passed, Metrics: metrics, Reason: reason, Failures: failures}
}

// Sweep runs the harness once per configuration and returns the points
// ordered by accuracy, best first. Ties keep grid order.
func (h *EvalHarness) Sweep(ctx context.Context, build func(resolver.Config) Resolver, cases []Case, grid []resolver.Config) []SweepPoint {
	points := make([]SweepPoint, 0, len(grid))
	for _, cfg := range grid {
		res := h.Run(ctx, build(cfg), cases)
		points = append(points, SweepPoint{Config: cfg, Accuracy: res.Metrics[0].Value, Passed: res.Passed})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Accuracy > points[j].Accuracy })
	return points
}

// Grid returns every combination of the given thresholds and bonuses.
func Grid(chapter, category, bonus []float32) []resolver.Config {
	out := make([]resolver.Config, 0, len(chapter)*len(category)*len(bonus))
	for _, ch := range chapter {
		for _, ca := range category {
			for _, b := range bonus {
				out = append(out, resolver.Config{ChapterThreshold: ch, CategoryThreshold: ca, ChapterBonus: b})
			}
		}
	}
	return out
}

// #endregion eval-harness

// #region helpers
func ratio(n, total int) float32 {
	if total == 0 {
		return 1
	}
	return float32(n) / float32(total)
}

// #endregion helpers
