package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/datastore/datastoretest"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/enricher"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/resolver"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/translator"
)

// #region stubs

const (
	columnsQuery = "SELECT COUNT(*) FROM pragma_table_info('dados_sus3');"
	deathsQuery  = "SELECT COUNT(*) FROM dados_sus3 WHERE MORTE = 1;"
)

// scriptedTranslator returns a fixed translation and counts calls.
type scriptedTranslator struct {
	tr      translator.Translation
	err     error
	panics  bool
	calls   int
	lastReq string
}

func (s *scriptedTranslator) Translate(_ context.Context, text string) (translator.Translation, error) {
	s.calls++
	s.lastReq = text
	if s.panics {
		panic("translator exploded")
	}
	return s.tr, s.err
}

type failingStore struct{ calls int }

func (f *failingStore) Execute(_ context.Context, query string) ([][]any, error) {
	f.calls++
	return nil, &datastore.QueryError{Query: query, Err: errors.New("disk I/O error")}
}

type fixture struct {
	orch   *Orchestrator
	store  *datastore.Store
	memory *OutcomeMemory
	audit  *logging.AuditLog
}

func newFixture(t *testing.T, tr Translator) fixture {
	t.Helper()
	store := datastoretest.NewSeeded(t)
	memory, err := NewOutcomeMemory(store.DB())
	require.NoError(t, err)
	audit, err := logging.NewAuditLog(store.DB())
	require.NoError(t, err)

	orch, err := New(Deps{
		Enricher:   enricher.New(resolver.New(nil, nil, nil, resolver.DefaultConfig(), nil), nil),
		Store:      store,
		Translator: tr,
		Memory:     memory,
		Audit:      audit,
		Logger:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return fixture{orch: orch, store: store, memory: memory, audit: audit}
}

type counters struct {
	agent, fallback, transitions int
	kind                         string
}

func (f fixture) counters(t *testing.T, requestID string) counters {
	t.Helper()
	var c counters
	err := f.store.DB().QueryRow(`
		SELECT agent_calls, fallback_calls, transitions, error_kind
		FROM request_outcomes WHERE request_id = ?`, requestID).
		Scan(&c.agent, &c.fallback, &c.transitions, &c.kind)
	require.NoError(t, err)
	return c
}

// #endregion stubs

// #region scenario-tests

func TestProcess_ScenarioA_ColumnsFallback(t *testing.T) {
	tr := &scriptedTranslator{}
	f := newFixture(t, tr)

	got := f.orch.Process(context.Background(), "how many columns does the table have")

	want := Result{
		Success:         true,
		Response:        fmt.Sprintf("The table dados_sus3 has %d columns.", datastoretest.Columns),
		Method:          "fallback_columns",
		ExecutedQueries: []string{columnsQuery},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Result{}, "RequestID", "Trace")); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, tr.calls)
	assert.NotEmpty(t, got.RequestID)
}

func TestProcess_ScenarioB_DeathsUseMorteFlag(t *testing.T) {
	f := newFixture(t, &scriptedTranslator{})

	got := f.orch.Process(context.Background(), "how many deaths occurred?")

	require.True(t, got.Success)
	assert.Equal(t, FallbackMethod("deaths"), got.Method)
	assert.Equal(t, []string{deathsQuery}, got.ExecutedQueries)
	assert.NotContains(t, got.ExecutedQueries[0], "CID_MORTE")
	assert.Equal(t, fmt.Sprintf("There were %d deaths recorded in the data.", datastoretest.Deaths), got.Response)
}

func TestProcess_ScenarioC_InvalidAnswerCorrected(t *testing.T) {
	tr := &scriptedTranslator{tr: translator.Translation{
		Answer:          "The table has 58000 columns.",
		ExecutedQueries: []string{"SELECT COUNT(*) FROM dados_sus3;"},
		Trace:           []string{"sql: SELECT COUNT(*) FROM dados_sus3;", "answer: The table has 58000 columns."},
	}}
	f := newFixture(t, tr)

	got := f.orch.Process(context.Background(), "tell me the columns total for the dataset")

	require.True(t, got.Success)
	assert.Equal(t, FallbackMethod("columns"), got.Method)
	assert.Equal(t, []string{"SELECT COUNT(*) FROM dados_sus3;", columnsQuery}, got.ExecutedQueries)
	assert.Contains(t, got.Response, fmt.Sprintf("%d columns", datastoretest.Columns))
	assert.Equal(t, 1, tr.calls)

	c := f.counters(t, got.RequestID)
	assert.Equal(t, counters{agent: 1, fallback: 1, transitions: 4}, c)
}

func TestProcess_AgentAnswerKeptForNonCountQuestions(t *testing.T) {
	tests := []struct {
		name     string
		question string
		answer   string
		queries  []string
	}{
		{
			name:     "filtered records",
			question: "how many hospitalization records are there in porto alegre",
			answer:   "There are 42 records in Porto Alegre.",
			queries:  []string{"SELECT COUNT(*) FROM dados_sus3 WHERE CIDADE_RESIDENCIA_PACIENTE = 'Porto Alegre';"},
		},
		{
			name:     "row listing",
			question: "show 5 rows where IDADE > 90",
			answer:   "Here are 5 rows.",
			queries:  []string{"SELECT * FROM dados_sus3 WHERE IDADE > 90 LIMIT 5;"},
		},
		{
			name:     "which column",
			question: "which column has the most missing values",
			answer:   "Column MUNIC_RES has 2000 missing values.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptedTranslator{tr: translator.Translation{Answer: tt.answer, ExecutedQueries: tt.queries}}
			f := newFixture(t, tr)

			got := f.orch.Process(context.Background(), tt.question)

			require.True(t, got.Success)
			assert.Equal(t, MethodAgent, got.Method)
			assert.Equal(t, tt.answer, got.Response)
			assert.Equal(t, 1, tr.calls)
		})
	}
}

func TestProcess_ScenarioD_UnresolvedTermGoesToAgent(t *testing.T) {
	tr := &scriptedTranslator{tr: translator.Translation{
		Answer:          "There were 0 hospitalizations.",
		ExecutedQueries: []string{"SELECT COUNT(*) FROM dados_sus3 WHERE DIAG_PRINC = 'ZZZ';"},
	}}
	f := newFixture(t, tr)

	got := f.orch.Process(context.Background(), "how many hospitalizations with zzyzx syndrome?")

	require.True(t, got.Success)
	assert.Equal(t, MethodAgent, got.Method)
	assert.Equal(t, "how many hospitalizations with zzyzx syndrome", tr.lastReq)
	assert.False(t, enricher.IsEnriched(tr.lastReq))
	assert.Equal(t, "There were 0 hospitalizations.", got.Response)
}

func TestProcess_EnrichedRequestSkipsRules(t *testing.T) {
	tr := &scriptedTranslator{tr: translator.Translation{Answer: "There were 5 deaths."}}
	f := newFixture(t, tr)

	got := f.orch.Process(context.Background(), "how many deaths from pneumonia?")

	require.True(t, got.Success)
	assert.Equal(t, MethodAgent, got.Method)
	assert.True(t, enricher.IsEnriched(tr.lastReq))
	assert.Contains(t, tr.lastReq, "total count of deaths")
}

// #endregion scenario-tests

// #region failure-tests

func TestProcess_TranslatorFailures(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		tr         *scriptedTranslator
		wantMethod Method
		wantKind   ErrorKind
		wantResp   string
		wantQuery  []string
	}{
		{
			name:  "error with lenient match",
			input: "how many deaths in the intensive care unit",
			tr: &scriptedTranslator{
				tr:  translator.Translation{ExecutedQueries: []string{"SELECT broken"}},
				err: fmt.Errorf("%w: model offline", translator.ErrTranslator),
			},
			wantMethod: FallbackMethod("deaths"),
			wantQuery:  []string{"SELECT broken", deathsQuery},
		},
		{
			name:       "no answer without match",
			input:      "which hospital had the longest stays",
			tr:         &scriptedTranslator{err: translator.ErrNoAnswer},
			wantMethod: MethodFailed,
			wantKind:   KindTranslator,
			wantResp:   CouldNotProcess,
			wantQuery:  []string{},
		},
		{
			name:       "empty answer is no answer",
			input:      "which hospital had the longest stays",
			tr:         &scriptedTranslator{},
			wantMethod: MethodFailed,
			wantKind:   KindTranslator,
			wantResp:   CouldNotProcess,
			wantQuery:  []string{},
		},
		{
			name:       "error without match",
			input:      "which hospital had the longest stays",
			tr:         &scriptedTranslator{err: fmt.Errorf("%w: timeout", translator.ErrTranslator)},
			wantMethod: MethodError,
			wantKind:   KindTranslator,
			wantResp:   "translator error",
			wantQuery:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.tr)
			got := f.orch.Process(context.Background(), tt.input)

			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantQuery, got.ExecutedQueries)
			if tt.wantResp != "" {
				assert.Equal(t, tt.wantResp, got.Response)
			}
			assert.Equal(t, 1, tt.tr.calls)
		})
	}
}

func TestProcess_DataStoreErrorKeepsQuery(t *testing.T) {
	store := &failingStore{}
	orch, err := New(Deps{Store: store, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	got := orch.Process(context.Background(), "how many columns does the table have")

	assert.False(t, got.Success)
	assert.Equal(t, MethodError, got.Method)
	assert.Equal(t, KindDataStore, got.Kind)
	assert.Equal(t, []string{columnsQuery}, got.ExecutedQueries)
	assert.Contains(t, got.Error, "disk I/O error")
	assert.Equal(t, 1, store.calls)
}

func TestProcess_NoTranslatorConfigured(t *testing.T) {
	orch, err := New(Deps{Store: &failingStore{}})
	require.NoError(t, err)

	got := orch.Process(context.Background(), "which hospital had the longest stays")

	assert.Equal(t, MethodError, got.Method)
	assert.Equal(t, KindTranslator, got.Kind)
	assert.Equal(t, ErrNoTranslator.Error(), got.Error)
}

func TestProcess_Canceled(t *testing.T) {
	tr := &scriptedTranslator{}
	f := newFixture(t, tr)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := f.orch.Process(ctx, "how many columns does the table have")

	assert.Equal(t, MethodError, got.Method)
	assert.Equal(t, KindCanceled, got.Kind)
	assert.Equal(t, context.Canceled.Error(), got.Error)
	assert.Empty(t, got.ExecutedQueries)
	assert.Zero(t, tr.calls)

	// the outcome is still recorded
	c := f.counters(t, got.RequestID)
	assert.Equal(t, string(KindCanceled), c.kind)
}

func TestProcess_PanicBecomesError(t *testing.T) {
	f := newFixture(t, &scriptedTranslator{panics: true})

	var got Result
	require.NotPanics(t, func() {
		got = f.orch.Process(context.Background(), "which hospital had the longest stays")
	})
	assert.Equal(t, MethodError, got.Method)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Contains(t, got.Error, "translator exploded")
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

// #endregion failure-tests

// #region bounds-tests

func TestProcess_Bounds(t *testing.T) {
	inputs := []string{
		"how many columns does the table have",
		"how many records are there",
		"how many deaths in Porto Alegre",
		"how many deaths among women",
		"how many deaths in the intensive care unit",
		"tell me the columns total for the dataset",
		"give me the records total",
		"how many cases of respiratory diseases",
		"which hospital had the longest stays",
		"",
	}
	behaviours := map[string]func() *scriptedTranslator{
		"valid": func() *scriptedTranslator {
			return &scriptedTranslator{tr: translator.Translation{Answer: "There are 12."}}
		},
		"implausible": func() *scriptedTranslator {
			return &scriptedTranslator{tr: translator.Translation{
				Answer:          "58000 columns and 3 records",
				ExecutedQueries: []string{"SELECT COUNT(*) FROM dados_sus3"},
			}}
		},
		"error": func() *scriptedTranslator {
			return &scriptedTranslator{err: translator.ErrTranslator}
		},
		"no answer": func() *scriptedTranslator {
			return &scriptedTranslator{err: translator.ErrNoAnswer}
		},
	}

	for name, mk := range behaviours {
		for _, input := range inputs {
			t.Run(name+"/"+input, func(t *testing.T) {
				tr := mk()
				f := newFixture(t, tr)
				got := f.orch.Process(context.Background(), input)

				assert.NotEmpty(t, got.Method)
				assert.LessOrEqual(t, tr.calls, maxAgentCalls)
				c := f.counters(t, got.RequestID)
				assert.LessOrEqual(t, c.agent, maxAgentCalls)
				assert.LessOrEqual(t, c.fallback, maxFallbackCalls)
				assert.LessOrEqual(t, c.transitions, maxTransitions)
				if got.Success {
					assert.NotEmpty(t, got.Response)
				}
			})
		}
	}
}

// #endregion bounds-tests

// #region audit-tests

func TestProcess_WritesAuditEntry(t *testing.T) {
	f := newFixture(t, &scriptedTranslator{})
	ctx := context.Background()

	got := f.orch.Process(ctx, "how many columns does the table have?")

	entry, err := f.audit.Get(ctx, got.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "how many columns does the table have?", entry.OriginalText)
	assert.Equal(t, "how many columns does the table have", entry.EnrichedText)
	assert.Equal(t, string(got.Method), entry.Method)
	assert.True(t, entry.Success)
	assert.Equal(t, []string{columnsQuery}, entry.ExecutedQueries)
	assert.Contains(t, entry.TraceJSON, `"stage":"fallback"`)
}

// #endregion audit-tests
