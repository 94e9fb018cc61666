package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/app"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/eval"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
)

// #region main
func main() {
	app.Execute(newRootCmd())
}

type globalFlags struct {
	config   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "controller",
		Short: "Answer questions about the SUS hospital admissions dataset",
	}
	root.PersistentFlags().StringVar(&g.config, "config", "", "config file (default: ./susquery.yaml or $HOME/.susquery/susquery.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level")

	root.AddCommand(newAskCmd(g), newConsoleCmd(g), newResolveCmd(g), newEvalCmd(g))
	return root
}

func openApp(ctx context.Context, g *globalFlags) (*app.App, error) {
	cfg, logger, err := app.Bootstrap(g.config, g.logLevel)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

// #endregion main

// #region ask
func newAskCmd(g *globalFlags) *cobra.Command {
	var (
		jsonOut bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Args:  app.UsageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res := a.Orchestrator.Process(ctx, strings.Join(args, " "))
			if err := printResult(cmd.OutOrStdout(), res, jsonOut); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("request %s: %s", res.RequestID, res.Method)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full result as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-request timeout")
	return cmd
}

func printResult(w io.Writer, res orchestrator.Result, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "\n%s\n\n", res.Response)
	fmt.Fprintf(w, "[%s] method=%s queries=%d\n", res.RequestID, res.Method, len(res.ExecutedQueries))
	for _, q := range res.ExecutedQueries {
		fmt.Fprintf(w, "  %s\n", q)
	}
	return nil
}

// #endregion ask

// #region console
var consoleExamples = []string{
	"How many columns does the table have?",
	"How many records are there?",
	"How many deaths occurred?",
	"How many deaths in Porto Alegre?",
	"How many deaths among women?",
	"What is the average age?",
	"How many cases of respiratory diseases?",
	"Quantas internações por doenças cardíacas?",
	"Which cities appear in the data?",
}

const consoleHelp = `Commands:
  /help      show this help
  /info      dataset summary
  /examples  example questions
  /clear     clear the screen
  /quit      exit (also /exit)
Anything else is answered as a question.`

func newConsoleCmd(g *globalFlags) *cobra.Command {
	var showQueries bool
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive question console",
		Args:  app.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			return runConsole(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout(), showQueries)
		},
	}
	cmd.Flags().BoolVar(&showQueries, "queries", true, "print executed queries after each answer")
	return cmd
}

func runConsole(ctx context.Context, a *app.App, in io.Reader, out io.Writer, showQueries bool) error {
	fmt.Fprintln(out, "SUS query console ready.")
	fmt.Fprintf(out, "  DB: %s | Table: %s\n", a.Config.Database.Path, a.Config.Database.Table)
	fmt.Fprintln(out, "Type a question, or /help:")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, consoleHelp)
			continue
		case "/examples":
			for _, ex := range consoleExamples {
				fmt.Fprintf(out, "  %s\n", ex)
			}
			continue
		case "/clear":
			fmt.Fprint(out, "\033[H\033[2J")
			continue
		case "/info":
			sum, err := a.Store.Summarize(ctx)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "table=%s rows=%d columns=%d\n", sum.Table, sum.Rows, len(sum.Columns))
			continue
		}
		if strings.HasPrefix(line, "/") {
			fmt.Fprintf(out, "unknown command %s, try /help\n", line)
			continue
		}

		res := a.Orchestrator.Process(ctx, line)
		fmt.Fprintf(out, "\n%s\n\n", res.Response)
		if showQueries {
			for _, q := range res.ExecutedQueries {
				fmt.Fprintf(out, "  sql: %s\n", q)
			}
		}
		fmt.Fprintf(out, "[%s] method=%s\n", res.RequestID, res.Method)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// #endregion console

// #region resolve
func newResolveCmd(g *globalFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "resolve <term>",
		Short: "Show how a disease term maps to ICD-10 codes",
		Args:  app.UsageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			term := strings.Join(args, " ")
			entry, ok, attempts := a.Resolver.Explain(cmd.Context(), term)
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Term     string             `json:"term"`
					Resolved bool               `json:"resolved"`
					Entry    resolver.Entry     `json:"entry"`
					Attempts []resolver.Attempt `json:"attempts"`
				}{term, ok, entry, attempts})
			}

			for _, at := range attempts {
				mark := "-"
				if at.Accepted {
					mark = "+"
				}
				fmt.Fprintf(out, "%s %-18s %-8s score=%.3f %s\n", mark, at.Tier, at.Range, at.Score, at.Reason)
			}
			if !ok {
				return fmt.Errorf("no code range for %q", term)
			}
			fmt.Fprintf(out, "%s -> %s (%s)\n", term, entry.Range, entry.Tier)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

// #endregion resolve

// #region eval
func newEvalCmd(g *globalFlags) *cobra.Command {
	var (
		casesPath string
		sweep     bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure resolver accuracy over the vocabulary and labelled cases",
		Args:  app.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			vocab := resolver.DefaultVocabulary()
			cases := eval.VocabularyCases(vocab)
			if casesPath != "" {
				extra, err := eval.LoadCases(casesPath)
				if err != nil {
					return &app.UsageError{Err: err}
				}
				cases = append(cases, extra...)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			h := eval.NewEvalHarness(eval.DefaultEvalConfig())

			if sweep {
				grid := eval.Grid([]float32{0.3, 0.4, 0.5, 0.6}, []float32{0.7, 0.8, 0.9}, []float32{1.0, 1.5, 2.0})
				build := func(cfg resolver.Config) eval.Resolver {
					return resolver.New(vocab, a.Index, a.Embedder, cfg, nil)
				}
				for _, p := range h.Sweep(ctx, build, cases, grid) {
					fmt.Fprintf(out, "chapter=%.2f category=%.2f bonus=%.1f accuracy=%.3f passed=%t\n",
						p.Config.ChapterThreshold, p.Config.CategoryThreshold, p.Config.ChapterBonus, p.Accuracy, p.Passed)
				}
				return nil
			}

			res := h.Run(ctx, a.Resolver, cases)
			for _, m := range res.Metrics {
				fmt.Fprintf(out, "%-24s %8.3f pass=%t\n", m.Name, m.Value, m.Pass)
			}
			for _, f := range res.Failures {
				fmt.Fprintf(out, "  miss %q want %s got %s (%s)\n", f.Case.Term, f.Case.Want(), f.Got, f.GotTier)
			}
			fmt.Fprintln(out, res.Reason)
			if !res.Passed {
				return fmt.Errorf("%s", res.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&casesPath, "cases", "", "JSON file of labelled cases")
	cmd.Flags().BoolVar(&sweep, "sweep", false, "compare a grid of threshold settings")
	return cmd
}

// #endregion eval
