package replay

// #region imports
import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/enricher"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/translator"
)

// #endregion imports

// #region types
// Interaction is one recorded request. Translation and TranslatorErr are
// what the translator returned when the request was first served.
type Interaction struct {
	ID            string
	Text          string
	Translation   translator.Translation
	TranslatorErr error
}

// ReplayConfig holds the orchestrator settings for a replay run.
type ReplayConfig struct {
	Table     string
	Validator orchestrator.Validator
	Cities    []string // nil uses the router defaults
}

// DefaultReplayConfig mirrors the controller defaults.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Table:     "dados_sus3",
		Validator: orchestrator.DefaultValidator(),
	}
}

// ReplayResult is the outcome of one replayed interaction.
type ReplayResult struct {
	ID              string
	Method          orchestrator.Method
	Success         bool
	Response        string
	ExecutedQueries []string
	Kind            orchestrator.ErrorKind
	TranslatorCalls int
}

// ReplaySummary counts results per terminal method family.
type ReplaySummary struct {
	Total    int
	Agent    int
	Fallback int
	Failed   int
	Errors   int
}

// #endregion types

// #region recorded-translator
type recordedTranslator struct {
	tr    translator.Translation
	err   error
	calls int
}

func (r *recordedTranslator) Translate(_ context.Context, _ string) (translator.Translation, error) {
	r.calls++
	return r.tr, r.err
}

// #endregion recorded-translator

// #region replay
// Replay runs each interaction through a fresh orchestrator over store,
// with the translator replaying its recorded reply. Nothing is written to
// the audit log or outcome memory.
func Replay(ctx context.Context, store orchestrator.DataStore, interactions []Interaction, config ReplayConfig, logger *zap.Logger) ([]ReplayResult, error) {
	enr := enricher.New(resolver.New(nil, nil, nil, resolver.DefaultConfig(), nil), logger)
	router := orchestrator.NewRouter(config.Cities)
	validator := config.Validator
	results := make([]ReplayResult, 0, len(interactions))

	for _, inter := range interactions {
		rec := &recordedTranslator{tr: inter.Translation, err: inter.TranslatorErr}
		orch, err := orchestrator.New(orchestrator.Deps{
			Enricher:   enr,
			Store:      store,
			Translator: rec,
			Router:     router,
			Validator:  &validator,
			Table:      config.Table,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", inter.ID, err)
		}

		res := orch.Process(ctx, inter.Text)
		results = append(results, ReplayResult{
			ID:              inter.ID,
			Method:          res.Method,
			Success:         res.Success,
			Response:        res.Response,
			ExecutedQueries: res.ExecutedQueries,
			Kind:            res.Kind,
			TranslatorCalls: rec.calls,
		})
	}

	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Method == orchestrator.MethodAgent:
			s.Agent++
		case r.Method == orchestrator.MethodFailed:
			s.Failed++
		case r.Method == orchestrator.MethodError:
			s.Errors++
		default:
			s.Fallback++
		}
	}
	return s
}

// #endregion replay
