package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
)

// #region hash-provider

// HashProvider is a deterministic, offline embedder: folded words and
// their character trigrams are hashed into a fixed number of signed
// buckets. It needs no model and yields identical vectors across runs.
type HashProvider struct {
	dims int
}

// NewHashProvider returns a HashProvider with dims buckets (default 256).
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = 256
	}
	return &HashProvider{dims: dims}
}

// hashStopwords carry no topical signal.
var hashStopwords = map[string]bool{
	"the": true, "of": true, "and": true, "or": true, "a": true, "an": true,
	"codes": true, "code": true, "certain": true, "other": true, "not": true,
	"de": true, "do": true, "da": true, "dos": true, "das": true, "e": true,
	"com": true, "por": true, "em": true, "o": true,
}

// Embed returns an L2-normalised vector for text.
func (h *HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, h.dims)
	for _, w := range textnorm.Words(text) {
		if hashStopwords[w] {
			continue
		}
		h.add(vec, "w:"+w, 1)
		padded := "^" + w + "$"
		r := []rune(padded)
		for i := 0; i+3 <= len(r); i++ {
			h.add(vec, "t:"+string(r[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (h *HashProvider) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// Name identifies the provider and its dimensionality.
func (h *HashProvider) Name() string {
	return fmt.Sprintf("hash:%d", h.dims)
}

// #endregion
