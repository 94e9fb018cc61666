package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region stubs
type countingProvider struct {
	inner Provider
	calls atomic.Int32
	fail  string
}

func (c *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if text == c.fail {
		return nil, errors.New("backend down")
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingProvider) Name() string { return c.inner.Name() }

// #endregion stubs

// #region similarity-tests
func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestArgMax(t *testing.T) {
	corpus := [][]float32{{0, 1}, {1, 0}, {1, 0}}
	idx, score := ArgMax([]float32{1, 0.1}, corpus)
	assert.Equal(t, 1, idx, "ties keep the lowest index")
	assert.Greater(t, score, float32(0.9))

	idx, score = ArgMax([]float32{1, 0}, nil)
	assert.Equal(t, -1, idx)
	assert.Zero(t, score)
}

// #endregion similarity-tests

// #region hash-tests
func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider(128)
	ctx := context.Background()
	a, err := p.Embed(ctx, "Diseases of the respiratory system")
	require.NoError(t, err)
	b, err := NewHashProvider(128).Embed(ctx, "Diseases of the respiratory system")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
	assert.Equal(t, "hash:128", p.Name())
}

func TestHashProvider_RelatedTextsAreCloser(t *testing.T) {
	p := NewHashProvider(256)
	ctx := context.Background()
	term, _ := p.Embed(ctx, "respiratory")
	resp, _ := p.Embed(ctx, "Diseases of the respiratory system codes J00-J99")
	circ, _ := p.Embed(ctx, "Diseases of the circulatory system codes I00-I99")
	assert.Greater(t, Cosine(term, resp), Cosine(term, circ))
}

func TestHashProvider_AccentInsensitive(t *testing.T) {
	p := NewHashProvider(64)
	ctx := context.Background()
	a, _ := p.Embed(ctx, "doenças respiratórias")
	b, _ := p.Embed(ctx, "DOENCAS RESPIRATORIAS")
	assert.Equal(t, a, b)
}

func TestHashProvider_EmptyAndCanceled(t *testing.T) {
	p := NewHashProvider(0)
	v, err := p.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, v, 256)
	assert.Zero(t, Cosine(v, v))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

// #endregion hash-tests

// #region ollama-tests
func TestOllamaProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embeddinggemma", req.Model)
		if req.Prompt == "empty" {
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{})
			return
		}
		if req.Prompt == "boom" {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	ctx := context.Background()

	vec, err := p.Embed(ctx, "asthma")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)

	_, err = p.Embed(ctx, "empty")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)

	_, err = p.Embed(ctx, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, "ollama:embeddinggemma", p.Name())
	srv.Client().CloseIdleConnections()
	p.client.CloseIdleConnections()
}

// #endregion ollama-tests

// #region cache-tests
func TestCachedProvider(t *testing.T) {
	store, err := state.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	inner := &countingProvider{inner: NewHashProvider(32)}
	ctx := context.Background()

	c := NewCachedProvider(inner, store, "fp1", nil)
	first, err := c.Embed(ctx, "pneumonia")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "pneumonia")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.calls.Load(), "second call served from cache")

	// a new fingerprint invalidates the entry
	c2 := NewCachedProvider(inner, store, "fp2", nil)
	_, err = c2.Embed(ctx, "pneumonia")
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
	assert.Equal(t, "hash:32", c2.Name())
}

func TestCachedProvider_InnerError(t *testing.T) {
	store, err := state.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	c := NewCachedProvider(&countingProvider{inner: NewHashProvider(8), fail: "x"}, store, "fp", nil)
	_, err = c.Embed(context.Background(), "x")
	require.Error(t, err)
	n, _ := store.CountEmbeddings(context.Background())
	assert.Zero(t, n)
}

// #endregion cache-tests

// #region batch-tests
func TestEmbedAll_Order(t *testing.T) {
	p := NewHashProvider(16)
	texts := []string{"asthma", "stroke", "diabetes", "cancer", "renal"}
	vecs, err := EmbedAll(context.Background(), p, texts, 3)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		want, _ := p.Embed(context.Background(), text)
		assert.Equal(t, want, vecs[i], text)
	}
}

func TestEmbedAll_Error(t *testing.T) {
	p := &countingProvider{inner: NewHashProvider(16), fail: "bad"}
	_, err := EmbedAll(context.Background(), p, []string{"a", "bad", "c"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

// #endregion batch-tests
