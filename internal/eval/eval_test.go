package eval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
)

// #region helpers
type tableResolver map[string]resolver.Entry

func (t tableResolver) Resolve(_ context.Context, term string) (resolver.Entry, bool) {
	e, ok := t[term]
	return e, ok
}

func metric(t *testing.T, res EvalResult, name string) EvalMetric {
	t.Helper()
	for _, m := range res.Metrics {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("metric %s missing", name)
	return EvalMetric{}
}

// #endregion helpers

func TestRun_VocabularyResolvesExactly(t *testing.T) {
	vocab := resolver.DefaultVocabulary()
	r := resolver.New(vocab, nil, nil, resolver.DefaultConfig(), nil)
	h := NewEvalHarness(DefaultEvalConfig())

	res := h.Run(context.Background(), r, VocabularyCases(vocab))

	require.True(t, res.Passed, res.Reason)
	assert.Empty(t, res.Failures)
	assert.Equal(t, float32(1), metric(t, res, "exact_accuracy").Value)
	assert.Equal(t, float32(vocab.Len()), metric(t, res, "tier_exact").Value)
}

func TestRun_CountsFailures(t *testing.T) {
	r := tableResolver{
		"asma":  {Range: resolver.Range{Start: "J45", End: "J46"}, Tier: resolver.TierExact},
		"gripe": {Range: resolver.Range{Start: "J09", End: "J11"}, Tier: resolver.TierPatternFallback},
	}
	cases := []Case{
		{Term: "asma", Start: "J45", End: "J46", Tier: "exact"},
		{Term: "gripe", Start: "J09", End: "J11", Tier: "exact"}, // wrong tier
		{Term: "zzyzx", Start: "A00", End: "B99"},                 // unresolved
		{Term: "gripe", Start: "J09", End: "J11"},
	}
	h := NewEvalHarness(EvalConfig{MinAccuracy: 0.9, MinExactAccuracy: 1})

	res := h.Run(context.Background(), r, cases)

	assert.False(t, res.Passed)
	assert.InDelta(t, 0.5, metric(t, res, "accuracy").Value, 1e-6)
	assert.InDelta(t, 0.5, metric(t, res, "exact_accuracy").Value, 1e-6)
	assert.InDelta(t, 0.75, metric(t, res, "coverage").Value, 1e-6)
	assert.Contains(t, res.Reason, "2 checks")

	require.Len(t, res.Failures, 2)
	assert.True(t, res.Failures[0].Resolved)
	assert.Equal(t, resolver.TierPatternFallback, res.Failures[0].GotTier)
	assert.False(t, res.Failures[1].Resolved)
}

func TestRun_EmptyCorpusPasses(t *testing.T) {
	res := NewEvalHarness(DefaultEvalConfig()).Run(context.Background(), tableResolver{}, nil)
	assert.True(t, res.Passed)
}

func TestSweep_OrdersByAccuracy(t *testing.T) {
	good := tableResolver{"asma": {Range: resolver.Range{Start: "J45", End: "J46"}, Tier: resolver.TierExact}}
	cases := []Case{{Term: "asma", Start: "J45", End: "J46"}}
	grid := Grid([]float32{0.3, 0.5}, []float32{0.8}, []float32{2})
	require.Len(t, grid, 2)

	build := func(cfg resolver.Config) Resolver {
		if cfg.ChapterThreshold == 0.5 {
			return good
		}
		return tableResolver{}
	}
	points := NewEvalHarness(DefaultEvalConfig()).Sweep(context.Background(), build, cases, grid)

	require.Len(t, points, 2)
	assert.Equal(t, float32(0.5), points[0].Config.ChapterThreshold)
	assert.Equal(t, float32(1), points[0].Accuracy)
	assert.True(t, points[0].Passed)
	assert.False(t, points[1].Passed)
}

func TestLoadCases(t *testing.T) {
	cases, err := LoadCases(filepath.Join("testdata", "cases.json"))
	require.NoError(t, err)
	require.Len(t, cases, 4)
	assert.Equal(t, resolver.Range{Start: "J45", End: "J46"}, cases[0].Want())
	assert.Equal(t, "exact", cases[0].Tier)

	_, err = LoadCases(filepath.Join("testdata", "invalid_cases.json"))
	assert.Error(t, err)

	_, err = LoadCases(filepath.Join("testdata", "missing.json"))
	assert.Error(t, err)
}
