package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// #region embed-all

// EmbedAll embeds texts with at most limit concurrent calls. Results keep
// the input order; the first error cancels the remaining calls.
func EmbedAll(ctx context.Context, p Provider, texts []string, limit int) ([][]float32, error) {
	if limit < 1 {
		limit = 1
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := p.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed %q: %w", text, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion
