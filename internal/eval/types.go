package eval

import "github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"

// #region eval-config
// EvalConfig holds the accuracy bounds a resolver configuration must meet.
type EvalConfig struct {
	MinAccuracy      float32 // over every case
	MinExactAccuracy float32 // over cases that name a vocabulary term
}

// DefaultEvalConfig requires every vocabulary term to resolve exactly and
// four in five cases overall.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinAccuracy:      0.8,
		MinExactAccuracy: 1.0,
	}
}

// #endregion eval-config

// #region case
// Case is one labelled term. Tier is optional; when set the resolution
// must also come from that tier.
type Case struct {
	Term  string `json:"term"`
	Start string `json:"start"`
	End   string `json:"end"`
	Tier  string `json:"tier,omitempty"`
}

// Want returns the expected range.
func (c Case) Want() resolver.Range {
	return resolver.Range{Start: c.Start, End: c.End}
}

// #endregion case

// #region eval-metric
// EvalMetric captures a single check result.
type EvalMetric struct {
	Name  string
	Value float32
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// Failure is a case the resolver got wrong.
type Failure struct {
	Case     Case
	Got      resolver.Range
	GotTier  resolver.Tier
	Resolved bool
}

// EvalResult is the output of one harness run.
type EvalResult struct {
	Passed   bool
	Metrics  []EvalMetric
	Reason   string
	Failures []Failure
}

// SweepPoint is the accuracy of one resolver configuration.
type SweepPoint struct {
	Config   resolver.Config
	Accuracy float32
	Passed   bool
}

// #endregion eval-result
