package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/state"
)

// #region cache

// Cache is durable embedding storage (state.Store implements it).
type Cache interface {
	GetEmbedding(ctx context.Context, model, fingerprint, text string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, rec state.EmbeddingRecord) error
}

// CachedProvider serves embeddings from Cache and fills it on miss. Cache
// failures are logged and fall through to the wrapped provider.
type CachedProvider struct {
	inner       Provider
	cache       Cache
	fingerprint string
	logger      *zap.Logger
}

// NewCachedProvider wraps inner. fingerprint scopes the entries so a
// catalog or vocabulary change invalidates them.
func NewCachedProvider(inner Provider, cache Cache, fingerprint string, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{inner: inner, cache: cache, fingerprint: fingerprint, logger: logger}
}

// Embed returns the cached vector or computes and stores it.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.inner.Name()
	vec, ok, err := c.cache.GetEmbedding(ctx, model, c.fingerprint, text)
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.String("model", model), zap.Error(err))
	}
	if ok {
		return vec, nil
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	rec := state.EmbeddingRecord{Model: model, Fingerprint: c.fingerprint, Text: text, Vector: vec}
	if err := c.cache.PutEmbedding(ctx, rec); err != nil {
		c.logger.Warn("embedding cache write failed", zap.String("model", model), zap.Error(err))
	}
	return vec, nil
}

// Name returns the wrapped provider's name.
func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

// #endregion
