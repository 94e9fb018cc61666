package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/enricher"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/handler"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/translator"
)

// #endregion

// #region interfaces

// Enricher rewrites disease phrases into explicit conditions.
type Enricher interface {
	Enrich(ctx context.Context, text string) string
}

// Translator converts a request into queries and an answer.
type Translator interface {
	Translate(ctx context.Context, text string) (translator.Translation, error)
}

// DataStore runs read-only SQL.
type DataStore interface {
	Execute(ctx context.Context, query string) ([][]any, error)
}

// AuditRecorder persists one row per request.
type AuditRecorder interface {
	Record(ctx context.Context, entry logging.AuditEntry) error
}

// ErrNoTranslator is the translator error reported when none is configured.
var ErrNoTranslator = errors.New("no translator configured")

// CouldNotProcess is the response of a request nothing could answer.
const CouldNotProcess = "could not process the request"

// #endregion

// #region orchestrator-struct

// Deps are the orchestrator's collaborators. Store is required.
type Deps struct {
	Enricher   Enricher
	Store      DataStore
	Translator Translator
	Router     *Router
	Validator  *Validator
	Memory     *OutcomeMemory
	Audit      AuditRecorder
	Table      string
	Logger     *zap.Logger
}

// Orchestrator runs each request through
// Enrich -> Route -> {Fallback | Agent -> Validate [-> Fallback]} -> Terminal.
// It holds no per-request state, so Process may run concurrently.
type Orchestrator struct {
	enricher   Enricher
	handler    *handler.Handler
	translator Translator
	router     *Router
	validator  Validator
	memory     *OutcomeMemory
	audit      AuditRecorder
	logger     *zap.Logger
}

// #endregion

// #region constructor

// New wires an orchestrator from deps.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("orchestrator: data store is required")
	}
	logger := logging.OrNop(deps.Logger).With(zap.String("component", "orch"))

	v := DefaultValidator()
	if deps.Validator != nil {
		v = *deps.Validator
	}
	if deps.Table != "" {
		v.Table = deps.Table
	}
	router := deps.Router
	if router == nil {
		router = NewRouter(nil)
	}

	opts := []handler.Option{handler.WithLogger(deps.Logger)}
	if deps.Table != "" {
		opts = append(opts, handler.WithTable(deps.Table))
	}

	return &Orchestrator{
		enricher:   deps.Enricher,
		handler:    handler.New(deps.Store, opts...),
		translator: deps.Translator,
		router:     router,
		validator:  v,
		memory:     deps.Memory,
		audit:      deps.Audit,
		logger:     logger,
	}, nil
}

// #endregion

// #region process

// plan carries the handler intent for the next fallback pass.
type plan struct {
	route      Route
	ok         bool
	corrective bool
}

// Process answers raw. It never panics and always returns a terminal Result.
func (o *Orchestrator) Process(ctx context.Context, raw string) (res Result) {
	s := newRequestState(raw)
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("request panicked", zap.String("request_id", s.RequestID), zap.Any("panic", r))
			s.finished = false
			s.fail(MethodError, KindInternal, "internal error", fmt.Errorf("panic: %v", r))
		}
		o.remember(ctx, s)
		res = s.result()
	}()

	var (
		next    = stageEnrich
		pending plan
		answer  translator.Translation
	)
	for next != stageTerminal {
		if err := ctx.Err(); err != nil {
			s.trace(next, "canceled")
			s.fail(MethodError, KindCanceled, "request canceled", err)
			break
		}

		var to stage
		switch next {
		case stageEnrich:
			to = o.enrich(ctx, s)
		case stageRoute:
			to, pending = o.route(s)
		case stageFallback:
			to = o.fallback(ctx, s, pending)
		case stageAgent:
			to, answer, pending = o.agent(ctx, s)
		case stageValidate:
			to, pending = o.validate(s, answer)
		}
		if to != stageTerminal {
			s.Transitions++
		}
		next = to
	}
	return s.result()
}

// #endregion

// #region stages

func (o *Orchestrator) enrich(ctx context.Context, s *RequestState) stage {
	if o.enricher != nil {
		s.EnrichedText = o.enricher.Enrich(ctx, s.OriginalText)
	}
	if s.EnrichedText != s.OriginalText {
		s.trace(stageEnrich, s.EnrichedText)
	}
	return stageRoute
}

func (o *Orchestrator) route(s *RequestState) (stage, plan) {
	if enricher.IsEnriched(s.EnrichedText) {
		s.trace(stageRoute, "explicit condition, agent")
		return stageAgent, plan{}
	}
	if r, ok := o.router.Match(s.EnrichedText); ok {
		s.trace(stageRoute, "rule "+r.Rule)
		o.logger.Debug("routed to fallback",
			zap.String("request_id", s.RequestID),
			zap.String("rule", r.Rule),
			zap.String("value", r.Value))
		return stageFallback, plan{route: r, ok: true}
	}
	s.trace(stageRoute, "no rule, agent")
	return stageAgent, plan{}
}

func (o *Orchestrator) fallback(ctx context.Context, s *RequestState, p plan) stage {
	if s.FallbackCalls >= maxFallbackCalls {
		s.fail(MethodError, KindInternal, "", errors.New("fallback budget exhausted"))
		return stageTerminal
	}
	s.FallbackCalls++
	s.IsFallback = true

	if !p.ok {
		s.trace(stageFallback, "no intent")
		s.fail(MethodFailed, KindFallbackUnmatched, CouldNotProcess, nil)
		return stageTerminal
	}

	out, err := o.handler.Handle(ctx, p.route.Intent, p.route.Value)
	s.AppendQueries(out.Query)
	if err != nil {
		s.trace(stageFallback, err.Error())
		kind := KindDataStore
		if errors.Is(err, handler.ErrBadParameter) || errors.Is(err, handler.ErrUnknownIntent) {
			kind = KindFallbackUnmatched
		}
		s.fail(MethodError, kind, "error while running "+string(p.route.Intent)+" query", err)
		return stageTerminal
	}

	detail := string(p.route.Intent)
	if p.corrective {
		detail = "corrective " + detail
	}
	s.trace(stageFallback, detail)
	s.finish(FallbackMethod(p.route.Intent), true, out.Response)
	return stageTerminal
}

func (o *Orchestrator) agent(ctx context.Context, s *RequestState) (stage, translator.Translation, plan) {
	if s.AgentCalls >= maxAgentCalls {
		s.fail(MethodError, KindInternal, "", errors.New("agent budget exhausted"))
		return stageTerminal, translator.Translation{}, plan{}
	}
	s.AgentCalls++

	var (
		tr  translator.Translation
		err = ErrNoTranslator
	)
	if o.translator != nil {
		tr, err = o.translator.Translate(ctx, s.EnrichedText)
	}
	s.AppendQueries(tr.ExecutedQueries...)
	for _, step := range tr.Trace {
		s.trace(stageAgent, step)
	}
	if err == nil && tr.Answer == "" {
		err = translator.ErrNoAnswer
	}
	if err == nil {
		return stageValidate, tr, plan{}
	}

	o.logger.Warn("translator failed",
		zap.String("request_id", s.RequestID),
		zap.Error(err))
	s.trace(stageAgent, err.Error())

	// one fallback pass, ignoring filter sensitivity
	if r, ok := o.router.MatchLenient(s.EnrichedText); ok {
		s.trace(stageAgent, "lenient rule "+r.Rule)
		return stageFallback, tr, plan{route: r, ok: true}
	}
	if errors.Is(err, translator.ErrNoAnswer) {
		s.fail(MethodFailed, KindTranslator, CouldNotProcess, err)
	} else {
		s.fail(MethodError, KindTranslator, "translator error", err)
	}
	return stageTerminal, tr, plan{}
}

func (o *Orchestrator) validate(s *RequestState, tr translator.Translation) (stage, plan) {
	v := o.validator.Validate(s.EnrichedText, tr.Answer, tr.ExecutedQueries)
	s.IsValid = &v.Valid
	if v.Valid {
		s.trace(stageValidate, "valid")
		s.finish(MethodAgent, true, tr.Answer)
		return stageTerminal, plan{}
	}

	s.trace(stageValidate, v.Issue)
	o.logger.Info("answer rejected, corrective fallback",
		zap.String("request_id", s.RequestID),
		zap.String("issue", v.Issue),
		zap.String("corrective", string(v.Corrective)))
	if v.Corrective == "" {
		return stageFallback, plan{}
	}
	return stageFallback, plan{route: Route{Rule: "corrective", Intent: v.Corrective}, ok: true, corrective: true}
}

// #endregion

// #region remember

// remember writes the outcome and audit rows. Failures are logged only.
func (o *Orchestrator) remember(ctx context.Context, s *RequestState) {
	ctx = context.WithoutCancel(ctx)
	o.logger.Info("request finished",
		zap.String("request_id", s.RequestID),
		zap.String("method", string(s.Method)),
		zap.Bool("success", s.Success),
		zap.Int("queries", len(s.ExecutedQueries)),
		zap.Int("transitions", s.Transitions))

	if o.memory != nil {
		err := o.memory.Record(ctx, OutcomeRecord{
			RequestID:     s.RequestID,
			Method:        s.Method,
			Success:       s.Success,
			Kind:          s.Kind,
			AgentCalls:    s.AgentCalls,
			FallbackCalls: s.FallbackCalls,
			Transitions:   s.Transitions,
			QueryCount:    len(s.ExecutedQueries),
			Latency:       time.Since(s.startedAt),
			CreatedAt:     time.Now(),
		})
		if err != nil {
			o.logger.Warn("failed to record outcome", zap.Error(err))
		}
	}

	if o.audit != nil {
		traceJSON, _ := json.Marshal(s.Trace)
		err := o.audit.Record(ctx, logging.AuditEntry{
			RequestID:       s.RequestID,
			OriginalText:    s.OriginalText,
			EnrichedText:    s.EnrichedText,
			Method:          string(s.Method),
			Success:         s.Success,
			Response:        s.Response,
			Error:           s.Err,
			ExecutedQueries: s.ExecutedQueries,
			TraceJSON:       string(traceJSON),
		})
		if err != nil {
			o.logger.Warn("failed to write audit entry", zap.Error(err))
		}
	}
}

// #endregion
