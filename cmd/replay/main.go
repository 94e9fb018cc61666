package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/app"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/replay"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/state"
)

// #region main

// errDrift reports a replay that diverged from its expectations.
var errDrift = errors.New("replay drift")

type options struct {
	configPath  string
	fixturePath string
	auditDB     string
	last        int
}

func main() {
	app.Execute(newRootCmd())
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded requests through the orchestrator and report drift",
		Long: "replay --fixture path/to/fixture.json\n" +
			"replay --audit path/to/susquery_audit.db [--last N]",
		Args: app.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (o.fixturePath == "") == (o.auditDB == "") {
				return &app.UsageError{Err: errors.New("exactly one of --fixture or --audit is required")}
			}
			return run(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().StringVar(&o.configPath, "config", "", "config file (data store location)")
	cmd.Flags().StringVar(&o.fixturePath, "fixture", "", "path to fixture JSON (fixture mode)")
	cmd.Flags().StringVar(&o.auditDB, "audit", "", "path to the audit database (audit mode)")
	cmd.Flags().IntVar(&o.last, "last", 50, "audit mode: number of recent requests to replay")
	return cmd
}

func run(ctx context.Context, w io.Writer, o *options) error {
	cfg, logger, err := app.Bootstrap(o.configPath, "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := datastore.Open(cfg.Database.Path, datastore.WithTable(cfg.Database.Table), datastore.WithReadOnly())
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer store.Close()

	var f *replay.Fixture
	if o.fixturePath != "" {
		if f, err = replay.LoadFixture(o.fixturePath); err != nil {
			return &app.UsageError{Err: err}
		}
	} else {
		if f, err = fixtureFromAudit(ctx, o.auditDB, o.last); err != nil {
			return err
		}
		f.Config.Table = cfg.Database.Table
	}
	return runFixture(ctx, w, store, f, logger)
}

// #endregion main

// #region fixture-mode

func runFixture(ctx context.Context, w io.Writer, store *datastore.Store, f *replay.Fixture, logger *zap.Logger) error {
	results, err := replay.Replay(ctx, store, f.ToInteractions(), f.Config.ToReplayConfig(), logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\n\n", f.Description)
	fmt.Fprintf(w, "%-24s  %-22s  %-7s  %s\n", "ID", "Method", "Success", "Queries")
	for _, r := range results {
		fmt.Fprintf(w, "%-24s  %-22s  %-7t  %d\n", shortID(r.ID), r.Method, r.Success, len(r.ExecutedQueries))
	}

	s := replay.Summarize(results)
	fmt.Fprintf(w, "\ntotal=%d agent=%d fallback=%d failed=%d errors=%d\n", s.Total, s.Agent, s.Fallback, s.Failed, s.Errors)

	mismatches := f.Compare(results)
	if len(mismatches) == 0 {
		fmt.Fprintln(w, "no drift")
		return nil
	}
	fmt.Fprintf(w, "\n%d mismatches:\n", len(mismatches))
	for _, m := range mismatches {
		fmt.Fprintf(w, "  %s\n", m)
	}
	return fmt.Errorf("%w: %d mismatches", errDrift, len(mismatches))
}

// #endregion fixture-mode

// #region audit-mode

func fixtureFromAudit(ctx context.Context, path string, last int) (*replay.Fixture, error) {
	st, err := state.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	defer st.Close()

	audit, err := logging.NewAuditLog(st.DB())
	if err != nil {
		return nil, err
	}
	entries, err := audit.Recent(ctx, last)
	if err != nil {
		return nil, err
	}
	// oldest first, as served
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return replay.FromAudit(fmt.Sprintf("last %d audited requests from %s", len(entries), path), entries)
}

// #endregion audit-mode

// #region helpers

func shortID(id string) string {
	if len(id) > 24 {
		return id[:24]
	}
	return id
}

// #endregion helpers
