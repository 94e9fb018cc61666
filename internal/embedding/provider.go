// Package embedding turns text into vectors for the semantic resolver tiers.
package embedding

import (
	"context"
	"errors"
	"math"
)

// #region provider

// Provider embeds a single text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// ErrEmptyEmbedding is returned when a backend answers with no vector.
var ErrEmptyEmbedding = errors.New("empty embedding")

// #endregion

// #region similarity

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector has zero magnitude.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// ArgMax returns the index and similarity of the corpus vector closest to
// query. Ties keep the lowest index. Returns -1 for an empty corpus.
func ArgMax(query []float32, corpus [][]float32) (int, float32) {
	best, bestScore := -1, float32(math.Inf(-1))
	for i, v := range corpus {
		if s := Cosine(query, v); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}

// #endregion
