package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/config"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore/datastoretest"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/orchestrator"
)

func seededConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "sus_data.db")

	s, err := datastore.Open(dataPath)
	require.NoError(t, err)
	require.NoError(t, datastoretest.Seed(s))
	require.NoError(t, s.Close())

	cfg := config.Default()
	cfg.Database.Path = dataPath
	cfg.Audit.Path = filepath.Join(dir, "audit.db")
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimensions = 64
	cfg.Translator.Provider = "none"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_AnswersFromHandler(t *testing.T) {
	cfg := seededConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	res := a.Orchestrator.Process(ctx, "how many deaths in Porto Alegre?")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, orchestrator.FallbackMethod("city_deaths"), res.Method)
	assert.Contains(t, res.ExecutedQueries[0], "'Porto Alegre'")

	entry, err := a.Audit.Get(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, string(res.Method), entry.Method)

	stats, err := a.Memory.MethodStats(ctx, entry.CreatedAt)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Count)
}

func TestNew_ResolverUsesSemanticIndex(t *testing.T) {
	cfg := seededConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Index)
	chapters, categories := a.Index.Size()
	assert.Positive(t, chapters)
	assert.Positive(t, categories)

	e, ok := a.Resolver.Resolve(ctx, "asma")
	require.True(t, ok)
	assert.Equal(t, "J45", e.Range.Start)
}

func TestNew_WithoutTranslator(t *testing.T) {
	cfg := seededConfig(t)
	cfg.Audit.Enabled = false
	cfg.Embedding.Cache = false
	cfg.Embedding.Provider = "none"
	ctx := context.Background()

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.State)
	assert.Nil(t, a.Index)

	res := a.Orchestrator.Process(ctx, "which hospital had the longest stays")
	assert.False(t, res.Success)
	assert.Equal(t, orchestrator.KindTranslator, res.Kind)
}

func TestNew_MissingVocabularyFile(t *testing.T) {
	cfg := seededConfig(t)
	cfg.Resolver.VocabularyFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestCities_PrefersDataSpelling(t *testing.T) {
	cfg := seededConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	cities := a.cities(context.Background())
	assert.Contains(t, cities, "Caxias do Sul")
	assert.NotContains(t, cities, "caxias do sul")
	assert.Contains(t, cities, "uruguaiana")
}
