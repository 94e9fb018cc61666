// Package app wires configuration into a ready orchestrator.
package app

// #region imports
import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/catalog"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/codec"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/config"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/embedding"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/enricher"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/prompts"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/state"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/textnorm"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/translator"
)

// #endregion

// #region app-struct

// App owns every long-lived resource of a controller process.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Store        *datastore.Store
	State        *state.Store // nil when auditing and caching are off
	Audit        *logging.AuditLog
	Memory       *orchestrator.OutcomeMemory
	Resolver     *resolver.Resolver
	Index        *resolver.Index
	Embedder     embedding.Provider // nil when the semantic tiers are off
	Orchestrator *orchestrator.Orchestrator

	codec   *codec.CodecClient
	closers []func() error
}

// #endregion

// #region new

// New opens the data store, the state database and any remote clients,
// builds the semantic index and returns a wired App. Callers must Close it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logging.OrNop(logger)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Store, err = datastore.Open(cfg.Database.Path,
		datastore.WithTable(cfg.Database.Table), datastore.WithReadOnly())
	if err != nil {
		return nil, fmt.Errorf("open data store: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)

	if cfg.Audit.Enabled || cfg.Embedding.Cache {
		a.State, err = state.NewStore(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("open state db: %w", err)
		}
		a.closers = append(a.closers, a.State.Close)
	}
	if cfg.Audit.Enabled {
		if a.Audit, err = logging.NewAuditLog(a.State.DB()); err != nil {
			return nil, err
		}
		if a.Memory, err = orchestrator.NewOutcomeMemory(a.State.DB()); err != nil {
			return nil, err
		}
	}

	cat, vocab, err := LoadSources(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := a.Provider(ctx, Fingerprint(cat, vocab))
	if err != nil {
		return nil, err
	}
	if provider != nil {
		a.Index, err = resolver.BuildIndex(ctx, provider, cat, cfg.Embedding.Concurrency)
		if err != nil {
			// the exact and pattern tiers still work
			a.Logger.Warn("semantic index unavailable", zap.String("provider", provider.Name()), zap.Error(err))
			a.Index, provider = nil, nil
		}
	}
	a.Embedder = provider
	a.Resolver = resolver.New(vocab, a.Index, provider, resolverConfig(cfg), a.Logger.With(zap.String("component", "resolve")))

	completer, err := a.Completer(ctx)
	if err != nil {
		return nil, err
	}
	var tr orchestrator.Translator
	if completer != nil {
		tr = translator.NewAgent(completer, a.Store, prompts.NewBuilder(cfg.Database.Table),
			translator.WithMaxIterations(cfg.Translator.MaxIterations),
			translator.WithLinter(prompts.Lint),
			translator.WithLogger(a.Logger))
	}

	deps := orchestrator.Deps{
		Enricher:   enricher.New(a.Resolver, a.Logger),
		Store:      a.Store,
		Translator: tr,
		Router:     orchestrator.NewRouter(a.cities(ctx)),
		Validator: &orchestrator.Validator{
			MaxColumns: cfg.Validator.MaxColumns,
			MinRecords: cfg.Validator.MinRecords,
			Table:      cfg.Database.Table,
		},
		Memory: a.Memory,
		Table:  cfg.Database.Table,
		Logger: a.Logger,
	}
	if a.Audit != nil {
		deps.Audit = a.Audit
	}
	a.Orchestrator, err = orchestrator.New(deps)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// #endregion

// #region providers

// Provider builds the configured embedding backend, wrapped in the durable
// cache when enabled. "none" returns nil, which disables the semantic tiers.
func (a *App) Provider(ctx context.Context, fingerprint string) (embedding.Provider, error) {
	cfg := a.Config.Embedding
	var p embedding.Provider
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "hash":
		return embedding.NewHashProvider(cfg.Dimensions), nil
	case "ollama":
		p = embedding.NewOllamaProvider(cfg.Endpoint, cfg.Model)
	case "genai":
		g, err := embedding.NewGenAIProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		p = g
	case "codec":
		c, err := a.codecClient()
		if err != nil {
			return nil, err
		}
		p = c
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if cfg.Cache && a.State != nil {
		p = embedding.NewCachedProvider(p, a.State, fingerprint, a.Logger.With(zap.String("component", "embed")))
	}
	return p, nil
}

// Completer builds the configured LLM backend; "none" returns nil.
func (a *App) Completer(ctx context.Context) (translator.Completer, error) {
	cfg := a.Config.Translator
	s := translator.Sampling{Temperature: cfg.Temperature, TopP: cfg.TopP, MaxTokens: cfg.NumPredict}
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "ollama":
		return translator.NewOllamaCompleter(cfg.Endpoint, cfg.Model, s), nil
	case "genai":
		return translator.NewGenAICompleter(ctx, cfg.APIKey, cfg.Model, s)
	case "codec":
		c, err := a.codecClient()
		if err != nil {
			return nil, err
		}
		return translator.NewCodecCompleter(c, cfg.Model, s), nil
	}
	return nil, fmt.Errorf("unknown translator provider %q", cfg.Provider)
}

func (a *App) codecClient() (*codec.CodecClient, error) {
	if a.codec != nil {
		return a.codec, nil
	}
	c, err := codec.NewCodecClient(a.Config.Codec.Addr)
	if err != nil {
		return nil, err
	}
	a.codec = c
	a.closers = append(a.closers, c.Close)
	return c, nil
}

// #endregion

// #region helpers

func resolverConfig(cfg *config.Config) resolver.Config {
	return resolver.Config{
		ChapterThreshold:  cfg.Resolver.ChapterThreshold,
		CategoryThreshold: cfg.Resolver.CategoryThreshold,
		ChapterBonus:      cfg.Resolver.ChapterBonus,
	}
}

// LoadSources reads the ICD-10 catalog and the term vocabulary named by cfg.
// Their Fingerprint scopes cached embeddings.
func LoadSources(cfg *config.Config) (catalog.Catalog, *resolver.Vocabulary, error) {
	cat, err := catalog.Load(cfg.Resolver.ChaptersCSV, cfg.Resolver.CategoriesCSV)
	if err != nil {
		return catalog.Catalog{}, nil, err
	}
	vocab := resolver.DefaultVocabulary()
	if path := cfg.Resolver.VocabularyFile; path != "" {
		extra, err := resolver.LoadVocabularyFile(path)
		if err != nil {
			return catalog.Catalog{}, nil, err
		}
		vocab = vocab.With(extra)
	}
	return cat, vocab, nil
}

// Fingerprint identifies cat and vocab for the embedding cache.
func Fingerprint(cat catalog.Catalog, vocab *resolver.Vocabulary) string {
	return cat.Fingerprint(vocab.Terms()...)
}

// cities merges the residence cities found in the data with the defaults.
// A failed lookup only costs the extra names.
func (a *App) cities(ctx context.Context) []string {
	var out []string
	seen := make(map[string]bool)
	rows, err := a.Store.Execute(ctx, fmt.Sprintf(
		"SELECT DISTINCT CIDADE_RESIDENCIA_PACIENTE FROM %s WHERE CIDADE_RESIDENCIA_PACIENTE IS NOT NULL LIMIT 500;",
		a.Config.Database.Table))
	if err != nil {
		a.Logger.Debug("city list unavailable", zap.Error(err))
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name, ok := row[0].(string)
		if !ok {
			continue
		}
		folded := textnorm.Fold(name)
		if folded != "" && !seen[folded] {
			seen[folded] = true
			out = append(out, name)
		}
	}
	// data names first so their accented spelling wins
	for _, c := range orchestrator.DefaultCities {
		if !seen[textnorm.Fold(c)] {
			out = append(out, c)
		}
	}
	return out
}

// #endregion
