package resolver

import (
	"fmt"
	"regexp"
)

// #region range

// Range is an inclusive interval of three-character ICD-10 category codes.
type Range struct {
	Start string
	End   string
}

var codePattern = regexp.MustCompile(`^[A-Z][0-9]{2}$`)

// Valid reports whether both ends are well-formed and ordered.
func (r Range) Valid() bool {
	return codePattern.MatchString(r.Start) && codePattern.MatchString(r.End) && r.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// #endregion

// #region tier

// Tier names the strategy that produced a resolution.
type Tier string

const (
	TierExact            Tier = "exact"
	TierChapterSemantic  Tier = "chapter_semantic"
	TierCategorySemantic Tier = "category_semantic"
	TierPatternFallback  Tier = "pattern_fallback"
)

// #endregion

// #region entry

// Entry is an accepted resolution.
type Entry struct {
	Term  string
	Range Range
	Tier  Tier
	Score float32 // raw cosine similarity for semantic tiers, 1 otherwise
}

// Attempt records one tier's candidate for Explain.
type Attempt struct {
	Tier     Tier
	Range    Range
	Score    float32
	Accepted bool
	Reason   string
}

// #endregion

// #region config

// Config holds the semantic tier thresholds.
type Config struct {
	ChapterThreshold  float32 // compared against raw similarity * ChapterBonus
	CategoryThreshold float32 // compared against raw similarity
	ChapterBonus      float32
}

// DefaultConfig returns the thresholds the resolver was tuned with.
func DefaultConfig() Config {
	return Config{
		ChapterThreshold:  0.5,
		CategoryThreshold: 0.8,
		ChapterBonus:      2.0,
	}
}

// #endregion
