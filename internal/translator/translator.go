// Package translator turns an enriched request into SQL and an answer by
// looping a language model over the admissions table.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore"
)

// #region errors

var (
	// ErrTranslator wraps every translator failure except ErrNoAnswer.
	ErrTranslator = errors.New("translator failed")
	// ErrNoAnswer is returned when the iteration limit is reached without
	// a final answer. Callers treat it as "no usable answer", not a fault.
	ErrNoAnswer = errors.New("translator produced no usable answer")
)

// #endregion

// #region types

// Translation is the translator's output. ExecutedQueries lists every
// statement sent to the data store, including failed ones.
type Translation struct {
	Answer          string
	ExecutedQueries []string
	Trace           []string
}

// Completer is a text-in text-out language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ContextBuilder decorates a request with domain documentation.
type ContextBuilder interface {
	BuildContext(text string) string
}

// Executor runs read-only SQL.
type Executor interface {
	Execute(ctx context.Context, query string) ([][]any, error)
}

// Linter reports known anti-patterns in a query.
type Linter func(query string) []string

// #endregion

// #region agent

// Agent is the iterative SQL translator. It holds no per-request state.
type Agent struct {
	llm           Completer
	store         Executor
	context       ContextBuilder
	lint          Linter
	maxIterations int
	maxRows       int
	logger        *zap.Logger
}

// Option configures NewAgent.
type Option func(*Agent)

// WithMaxIterations bounds the number of model calls per request.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithLinter attaches query lint feedback to observations.
func WithLinter(l Linter) Option {
	return func(a *Agent) { a.lint = l }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAgent wires an agent. ctxb may be nil.
func NewAgent(llm Completer, store Executor, ctxb ContextBuilder, opts ...Option) *Agent {
	a := &Agent{
		llm:           llm,
		store:         store,
		context:       ctxb,
		maxIterations: 10,
		maxRows:       20,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "translator"))
	return a
}

// Translate runs the model loop. On failure the partial Translation is
// still returned so callers can keep the executed queries.
func (a *Agent) Translate(ctx context.Context, text string) (Translation, error) {
	var tr Translation
	base := text
	if a.context != nil {
		base = a.context.BuildContext(text)
	}

	var transcript strings.Builder
	for i := 0; i < a.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return tr, fmt.Errorf("%w: %w", ErrTranslator, err)
		}

		prompt := buildPrompt(base, transcript.String())
		reply, err := a.llm.Complete(ctx, prompt)
		if err != nil {
			return tr, fmt.Errorf("%w: %s: %w", ErrTranslator, a.llm.Name(), err)
		}

		step := parseReply(reply)
		switch step.kind {
		case stepAnswer:
			tr.Answer = step.body
			tr.Trace = append(tr.Trace, "answer: "+step.body)
			a.logger.Debug("answer",
				zap.Int("iteration", i+1),
				zap.Int("queries", len(tr.ExecutedQueries)))
			return tr, nil

		case stepSQL:
			tr.Trace = append(tr.Trace, "sql: "+step.body)
			obs := a.run(ctx, step.body, &tr)
			tr.Trace = append(tr.Trace, "observation: "+firstLine(obs))
			fmt.Fprintf(&transcript, "SQL: %s\nOBSERVATION: %s\n", step.body, obs)

		default:
			tr.Trace = append(tr.Trace, "unparsed reply")
			fmt.Fprintf(&transcript, "%s\nOBSERVATION: %s\n", strings.TrimSpace(reply), formatReminder)
		}
	}

	a.logger.Warn("iteration limit reached",
		zap.Int("max_iterations", a.maxIterations),
		zap.Int("queries", len(tr.ExecutedQueries)))
	return tr, fmt.Errorf("after %d iterations: %w", a.maxIterations, ErrNoAnswer)
}

// run executes one model-issued statement and returns the observation.
func (a *Agent) run(ctx context.Context, query string, tr *Translation) string {
	if err := datastore.CheckSafe(query); err != nil {
		return "error: " + err.Error()
	}
	tr.ExecutedQueries = append(tr.ExecutedQueries, query)

	var notes []string
	if a.lint != nil {
		notes = a.lint(query)
	}

	rows, err := a.store.Execute(ctx, query)
	if err != nil {
		a.logger.Debug("model query failed", zap.String("query", query), zap.Error(err))
		return "error: " + err.Error() + lintSuffix(notes)
	}
	return formatRows(rows, a.maxRows) + lintSuffix(notes)
}

// #endregion
