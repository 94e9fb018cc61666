// Package handler answers a fixed set of questions with canonical queries
// against the admissions table, bypassing the translator.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// #region errors

var (
	ErrUnknownIntent = errors.New("unknown intent")
	ErrBadParameter  = errors.New("bad intent parameter")
)

// ExecError reports a canonical query the data store failed to run.
type ExecError struct {
	Intent Intent
	Query  string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("handler %s: %v", e.Intent, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// #endregion

// #region types

// Executor runs a read-only query and returns its rows.
type Executor interface {
	Execute(ctx context.Context, query string) ([][]any, error)
}

// Outcome is the result of one handled intent. Query is set whenever a
// query was attempted, including on error.
type Outcome struct {
	Intent   Intent
	Query    string
	Response string
	Value    float64
}

// Handler is safe for concurrent use.
type Handler struct {
	store   Executor
	table   string
	printer *message.Printer
	logger  *zap.Logger
}

// Option configures New.
type Option func(*Handler)

// WithTable overrides the dataset table name.
func WithTable(name string) Option {
	return func(h *Handler) { h.table = name }
}

// WithLogger attaches a logger. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New returns a handler over store.
func New(store Executor, opts ...Option) *Handler {
	h := &Handler{
		store:   store,
		table:   "dados_sus3",
		printer: message.NewPrinter(language.English),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("component", "handler"))
	return h
}

// #endregion

// #region handle

// Query renders the canonical query for intent with value bound.
func (h *Handler) Query(intent Intent, value string) (string, error) {
	spec, ok := Lookup(intent)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
	}
	bound, err := bind(intent, value)
	if err != nil {
		return "", err
	}
	r := strings.NewReplacer(
		"{table}", h.table,
		"{city}", quoteLiteral(bound),
		"{sex}", bound,
	)
	return r.Replace(spec.Query), nil
}

// Handle runs the canonical query for intent and formats the response.
func (h *Handler) Handle(ctx context.Context, intent Intent, value string) (Outcome, error) {
	query, err := h.Query(intent, value)
	if err != nil {
		return Outcome{Intent: intent}, err
	}
	out := Outcome{Intent: intent, Query: query}

	rows, err := h.store.Execute(ctx, query)
	if err != nil {
		h.logger.Warn("canonical query failed",
			zap.String("intent", string(intent)),
			zap.String("query", query),
			zap.Error(err))
		return out, &ExecError{Intent: intent, Query: query, Err: err}
	}

	spec := specs[intent]
	bound, _ := bind(intent, value)
	var rendered string
	switch spec.kind {
	case kindDecimal:
		out.Value = Coerce(rows)
		rendered = h.printer.Sprintf("%.1f", out.Value)
	case kindText:
		rendered = firstText(rows)
	case kindList:
		rendered = listFirstColumn(rows, 15)
		out.Value = float64(len(rows))
	default:
		out.Value = Coerce(rows)
		rendered = h.printer.Sprintf("%d", int64(out.Value))
	}

	out.Response = strings.NewReplacer(
		"{table}", h.table,
		"{value}", rendered,
		"{city}", bound,
		"{sex}", sexLabels[bound],
	).Replace(spec.Template)

	h.logger.Debug("intent handled",
		zap.String("intent", string(intent)),
		zap.Float64("value", out.Value))
	return out, nil
}

// #endregion

// #region binding

var cityParticles = map[string]bool{"do": true, "da": true, "dos": true, "das": true, "de": true}

// NormalizeCity title-cases a city name the way the dataset stores it:
// "caxias do sul" becomes "Caxias do Sul".
func NormalizeCity(name string) string {
	title := cases.Title(language.BrazilianPortuguese)
	words := strings.Fields(name)
	for i, w := range words {
		lw := strings.ToLower(w)
		if i > 0 && cityParticles[lw] {
			words[i] = lw
			continue
		}
		words[i] = title.String(lw)
	}
	return strings.Join(words, " ")
}

func bind(intent Intent, value string) (string, error) {
	switch intent.param() {
	case "city":
		city := NormalizeCity(value)
		if city == "" {
			return "", fmt.Errorf("%w: %s needs a city", ErrBadParameter, intent)
		}
		return city, nil
	case "sex":
		if _, ok := sexLabels[value]; !ok {
			return "", fmt.Errorf("%w: SEXO code %q (want %s or %s)", ErrBadParameter, value, SexMale, SexFemale)
		}
		return value, nil
	}
	return "", nil
}

// #endregion

// #region formatting

func firstText(rows [][]any) string {
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] == nil {
		return ""
	}
	return fmt.Sprint(rows[0][0])
}

func listFirstColumn(rows [][]any, limit int) string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 || r[0] == nil {
			continue
		}
		names = append(names, fmt.Sprint(r[0]))
	}
	if len(names) <= limit {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s (and %d more)", strings.Join(names[:limit], ", "), len(names)-limit)
}

// #endregion
