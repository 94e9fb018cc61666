package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/app"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/config"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/replay"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/state"
)

// #region main

type options struct {
	configPath  string
	dbPath      string
	last        int
	outPath     string
	description string
	requests    []string
}

func main() {
	app.Execute(newRootCmd())
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "fixture-export",
		Short: "Export audited requests into a replay fixture",
		Args:  app.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.outPath == "" {
				return &app.UsageError{Err: errors.New("--out is required")}
			}
			return run(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().StringVar(&o.configPath, "config", "", "config file")
	cmd.Flags().StringVar(&o.dbPath, "db", "", "audit database (default: audit.path from config)")
	cmd.Flags().IntVar(&o.last, "last", 10, "number of most recent requests to export")
	cmd.Flags().StringSliceVar(&o.requests, "request", nil, "export these request ids instead of the most recent")
	cmd.Flags().StringVar(&o.outPath, "out", "", "output fixture JSON path")
	cmd.Flags().StringVar(&o.description, "description", "", "fixture description")
	return cmd
}

func run(ctx context.Context, w io.Writer, o *options) error {
	path := o.dbPath
	if path == "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		path = cfg.Audit.Path
	}

	store, err := state.NewStore(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()
	audit, err := logging.NewAuditLog(store.DB())
	if err != nil {
		return err
	}

	entries, err := collect(ctx, audit, o)
	if err != nil {
		return err
	}

	desc := o.description
	if desc == "" {
		desc = fmt.Sprintf("%d requests exported from %s", len(entries), path)
	}
	f, err := replay.FromAudit(desc, entries)
	if err != nil {
		return err
	}
	if err := replay.WriteFixture(o.outPath, f); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d interactions to %s\n", len(f.Interactions), o.outPath)
	return nil
}

// #endregion main

// #region collect

// collect returns the requested entries oldest first.
func collect(ctx context.Context, audit *logging.AuditLog, o *options) ([]logging.AuditEntry, error) {
	if len(o.requests) > 0 {
		entries := make([]logging.AuditEntry, 0, len(o.requests))
		for _, id := range o.requests {
			e, err := audit.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		return entries, nil
	}

	if o.last < 1 {
		return nil, &app.UsageError{Err: fmt.Errorf("--last must be positive, got %d", o.last)}
	}
	entries, err := audit.Recent(ctx, o.last)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// #endregion collect
