package resolver

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/catalog"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/embedding"
)

// #region index

// Index holds precomputed catalog embeddings. Read-only after construction,
// safe for concurrent use.
type Index struct {
	chapters     []catalog.Chapter
	chapterVecs  [][]float32
	categories   []catalog.Category
	categoryVecs [][]float32
}

// NewIndex pairs catalog entries with their vectors.
func NewIndex(chapters []catalog.Chapter, chapterVecs [][]float32, categories []catalog.Category, categoryVecs [][]float32) (*Index, error) {
	if len(chapters) != len(chapterVecs) {
		return nil, fmt.Errorf("index: %d chapters but %d vectors", len(chapters), len(chapterVecs))
	}
	if len(categories) != len(categoryVecs) {
		return nil, fmt.Errorf("index: %d categories but %d vectors", len(categories), len(categoryVecs))
	}
	return &Index{
		chapters:     chapters,
		chapterVecs:  chapterVecs,
		categories:   categories,
		categoryVecs: categoryVecs,
	}, nil
}

// BuildIndex embeds every chapter and category of cat through p.
func BuildIndex(ctx context.Context, p embedding.Provider, cat catalog.Catalog, concurrency int) (*Index, error) {
	chapterTexts := make([]string, len(cat.Chapters))
	for i, c := range cat.Chapters {
		chapterTexts[i] = c.Text()
	}
	categoryTexts := make([]string, len(cat.Categories))
	for i, c := range cat.Categories {
		categoryTexts[i] = c.Text()
	}

	chapterVecs, err := embedding.EmbedAll(ctx, p, chapterTexts, concurrency)
	if err != nil {
		return nil, fmt.Errorf("embed chapters: %w", err)
	}
	categoryVecs, err := embedding.EmbedAll(ctx, p, categoryTexts, concurrency)
	if err != nil {
		return nil, fmt.Errorf("embed categories: %w", err)
	}
	return NewIndex(cat.Chapters, chapterVecs, cat.Categories, categoryVecs)
}

// Size returns the number of chapters and categories indexed.
func (ix *Index) Size() (chapters, categories int) {
	return len(ix.chapters), len(ix.categories)
}

func (ix *Index) nearestChapter(query []float32) (Range, float32, bool) {
	i, score := embedding.ArgMax(query, ix.chapterVecs)
	if i < 0 {
		return Range{}, 0, false
	}
	c := ix.chapters[i]
	return Range{Start: c.Start, End: c.End}, score, true
}

func (ix *Index) nearestCategory(query []float32) (Range, float32, bool) {
	i, score := embedding.ArgMax(query, ix.categoryVecs)
	if i < 0 {
		return Range{}, 0, false
	}
	code := ix.categories[i].Code
	return Range{Start: code, End: code}, score, true
}

// #endregion
