package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/app"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/config"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/state"
)

// #region main

type options struct {
	configPath string
	dbPath     string
	last       int
	request    string
	stats      bool
	jsonOut    bool
}

func main() {
	app.Execute(newRootCmd())
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect audited requests and per-method outcome stats",
		Args:  app.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().StringVar(&o.configPath, "config", "", "config file")
	cmd.Flags().StringVar(&o.dbPath, "db", "", "audit database (default: audit.path from config)")
	cmd.Flags().IntVar(&o.last, "last", 20, "show N most recent requests")
	cmd.Flags().StringVar(&o.request, "request", "", "show single request detail")
	cmd.Flags().BoolVar(&o.stats, "stats", false, "show per-method outcome stats")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "output as JSON instead of table")
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
	if o.last < 1 {
		return &app.UsageError{Err: fmt.Errorf("--last must be positive, got %d", o.last)}
	}

	store, err := state.NewStore(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	switch {
	case o.stats:
		memory, err := orchestrator.NewOutcomeMemory(store.DB())
		if err != nil {
			return err
		}
		return runStatsMode(ctx, w, memory, o.jsonOut)
	case o.request != "":
		audit, err := logging.NewAuditLog(store.DB())
		if err != nil {
			return err
		}
		return runDetailMode(ctx, w, audit, o.request, o.jsonOut)
	default:
		audit, err := logging.NewAuditLog(store.DB())
		if err != nil {
			return err
		}
		return runListMode(ctx, w, audit, o.last, o.jsonOut)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Success   bool   `json:"success"`
	Queries   int    `json:"queries"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func runListMode(ctx context.Context, w io.Writer, audit *logging.AuditLog, last int, jsonOut bool) error {
	entries, err := audit.Recent(ctx, last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no requests found")
		return nil
	}

	// Recent is newest first; print chronologically
	rows := make([]listRow, len(entries))
	for i, e := range entries {
		rows[len(entries)-1-i] = listRow{
			RequestID: e.RequestID,
			Method:    e.Method,
			Success:   e.Success,
			Queries:   len(e.ExecutedQueries),
			Text:      e.OriginalText,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
	}

	if jsonOut {
		return printJSON(w, rows)
	}
	fmt.Fprintf(w, "%-10s  %-22s  %-7s  %7s  %-20s  %s\n", "Request", "Method", "Success", "Queries", "Time", "Text")
	fmt.Fprintf(w, "%-10s+-%-22s+-%-7s+-%7s+-%-20s+-%s\n",
		"----------", "----------------------", "-------", "-------", "--------------------", "----")
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s  %-22s  %-7t  %7d  %-20s  %s\n",
			shortID(r.RequestID), r.Method, r.Success, r.Queries, r.CreatedAt, truncate(r.Text, 60))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	logging.AuditEntry
	Trace []orchestrator.TraceEvent `json:"trace"`
}

func runDetailMode(ctx context.Context, w io.Writer, audit *logging.AuditLog, requestID string, jsonOut bool) error {
	e, err := audit.Get(ctx, requestID)
	if err != nil {
		return err
	}
	out := detailOutput{AuditEntry: e}
	if e.TraceJSON != "" {
		if err := json.Unmarshal([]byte(e.TraceJSON), &out.Trace); err != nil {
			return fmt.Errorf("decode trace: %w", err)
		}
	}

	if jsonOut {
		return printJSON(w, out)
	}
	fmt.Fprintf(w, "Request:   %s\n", e.RequestID)
	fmt.Fprintf(w, "Created:   %s\n", e.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Text:      %s\n", e.OriginalText)
	if e.EnrichedText != e.OriginalText {
		fmt.Fprintf(w, "Enriched:  %s\n", e.EnrichedText)
	}
	fmt.Fprintf(w, "Method:    %s (success=%t)\n", e.Method, e.Success)
	if e.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", e.Error)
	}
	fmt.Fprintf(w, "Response:  %s\n", e.Response)
	fmt.Fprintf(w, "\nQueries (%d):\n", len(e.ExecutedQueries))
	for i, q := range e.ExecutedQueries {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
	fmt.Fprintf(w, "\nTrace:\n")
	for _, ev := range out.Trace {
		fmt.Fprintf(w, "  %-9s %s\n", ev.Stage, ev.Detail)
	}
	return nil
}

// #endregion detail-mode

// #region stats-mode

func runStatsMode(ctx context.Context, w io.Writer, memory *orchestrator.OutcomeMemory, jsonOut bool) error {
	stats, err := memory.MethodStats(ctx, time.Now())
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, stats)
	}
	if len(stats) == 0 {
		fmt.Fprintln(os.Stderr, "no outcomes recorded")
		return nil
	}
	fmt.Fprintf(w, "%-22s  %6s  %12s\n", "Method", "Count", "Success rate")
	for _, s := range stats {
		fmt.Fprintf(w, "%-22s  %6d  %11.1f%%\n", s.Method, s.Count, s.SuccessRate*100)
	}
	return nil
}

// #endregion stats-mode

// #region helpers

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// #endregion helpers
