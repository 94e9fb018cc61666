package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/app"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/state"
)

// #region main

type options struct {
	configPath string
	prune      bool
	timeout    time.Duration
}

func main() {
	app.Execute(newRootCmd())
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "bootstrap-index",
		Short: "Precompute ICD-10 catalog embeddings into the durable cache",
		Args:  app.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().StringVar(&o.configPath, "config", "", "config file")
	cmd.Flags().BoolVar(&o.prune, "prune", true, "delete cache rows from other models or catalog versions")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 30*time.Minute, "overall embedding timeout")
	return cmd
}

func run(ctx context.Context, w io.Writer, o *options) error {
	cfg, logger, err := app.Bootstrap(o.configPath, "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Embedding.Provider == "none" {
		return &app.UsageError{Err: errors.New("embedding.provider is none; nothing to index")}
	}

	cat, vocab, err := app.LoadSources(cfg)
	if err != nil {
		return err
	}
	fingerprint := app.Fingerprint(cat, vocab)

	fmt.Fprintln(w, "=== Index Bootstrap Tool ===")
	fmt.Fprintf(w, "  Cache: %s | Provider: %s | Model: %s\n", cfg.Audit.Path, cfg.Embedding.Provider, cfg.Embedding.Model)
	fmt.Fprintf(w, "  Chapters: %d | Categories: %d | Fingerprint: %s\n", len(cat.Chapters), len(cat.Categories), fingerprint)

	st, err := state.NewStore(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("open cache db: %w", err)
	}
	cfg.Embedding.Cache = true
	a := &app.App{Config: cfg, Logger: logger, State: st}
	defer a.Close()
	defer st.Close()

	provider, err := a.Provider(ctx, fingerprint)
	if err != nil {
		return err
	}

	before, err := st.CountEmbeddings(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	start := time.Now()
	ix, err := resolver.BuildIndex(ctx, provider, cat, cfg.Embedding.Concurrency)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	chapters, categories := ix.Size()
	logger.Info("index built",
		zap.Int("chapters", chapters),
		zap.Int("categories", categories),
		zap.Duration("elapsed", time.Since(start)))

	// hash vectors are never cached, so pruning would only drop other models' rows
	if o.prune && cfg.Embedding.Provider != "hash" {
		n, err := st.PruneEmbeddings(ctx, provider.Name(), fingerprint)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Pruned %d stale rows.\n", n)
	}

	after, err := st.CountEmbeddings(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Indexed %d chapters and %d categories in %s.\n", chapters, categories, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(w, "Cache rows: %d -> %d\n", before, after)
	if cfg.Embedding.Provider == "hash" {
		fmt.Fprintln(w, "Note: hash embeddings are computed locally and are not cached.")
	}
	return nil
}

// #endregion main
