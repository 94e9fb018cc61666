package orchestrator

// #region imports
import (
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/handler"
)

// #endregion

// #region method

// Method records which path produced a terminal result.
type Method string

const (
	MethodAgent  Method = "agent"
	MethodError  Method = "error"
	MethodFailed Method = "failed"
)

// FallbackMethod returns the method recorded for a handler answer.
func FallbackMethod(intent handler.Intent) Method {
	return Method("fallback_" + string(intent))
}

// #endregion

// #region error-kind

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindResolutionMiss    ErrorKind = "resolution_miss"
	KindTranslator        ErrorKind = "translator"
	KindValidation        ErrorKind = "validation"
	KindFallbackUnmatched ErrorKind = "fallback_unmatched"
	KindDataStore         ErrorKind = "datastore"
	KindCoercion          ErrorKind = "coercion"
	KindCanceled          ErrorKind = "canceled"
	KindInternal          ErrorKind = "internal"
)

// #endregion

// #region stage

type stage string

const (
	stageEnrich   stage = "enrich"
	stageRoute    stage = "route"
	stageFallback stage = "fallback"
	stageAgent    stage = "agent"
	stageValidate stage = "validate"
	stageTerminal stage = "terminal"
)

// #endregion

// #region trace

// TraceEvent is one diagnostic step of a request.
type TraceEvent struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// #endregion

// #region verdict

// Verdict is the validator's judgement of a translator answer.
type Verdict struct {
	Valid      bool
	Issue      string
	Corrective handler.Intent // empty when none
}

// #endregion

// #region request-state

// RequestState is owned by a single Process call.
type RequestState struct {
	RequestID       string
	OriginalText    string
	EnrichedText    string
	Response        string
	ExecutedQueries []string
	Trace           []TraceEvent
	Method          Method
	Err             string
	Kind            ErrorKind
	Success         bool
	IsFallback      bool
	IsValid         *bool

	AgentCalls    int
	FallbackCalls int
	Transitions   int

	startedAt time.Time
	finished  bool
}

func newRequestState(raw string) *RequestState {
	return &RequestState{
		RequestID:    uuid.NewString(),
		OriginalText: raw,
		EnrichedText: raw,
		startedAt:    time.Now(),
	}
}

// AppendQueries extends the audit trail. The trail never shrinks.
func (s *RequestState) AppendQueries(queries ...string) {
	for _, q := range queries {
		if q != "" {
			s.ExecutedQueries = append(s.ExecutedQueries, q)
		}
	}
}

func (s *RequestState) trace(st stage, detail string) {
	s.Trace = append(s.Trace, TraceEvent{Stage: string(st), Detail: detail})
}

// finish sets the terminal fields once; later calls are traced and ignored.
func (s *RequestState) finish(m Method, success bool, response string) {
	if s.finished {
		s.trace(stageTerminal, "ignored second terminal method "+string(m))
		return
	}
	s.finished = true
	s.Method = m
	s.Success = success
	s.Response = response
}

func (s *RequestState) fail(m Method, kind ErrorKind, response string, err error) {
	if s.finished {
		s.trace(stageTerminal, "ignored second terminal method "+string(m))
		return
	}
	s.finish(m, false, response)
	s.Kind = kind
	if err != nil {
		s.Err = err.Error()
	}
}

// #endregion

// #region result

// Result is what Process returns to callers.
type Result struct {
	Success         bool         `json:"success"`
	Response        string       `json:"response"`
	Method          Method       `json:"method"`
	ExecutedQueries []string     `json:"executed_queries"`
	RequestID       string       `json:"request_id"`
	Error           string       `json:"error,omitempty"`
	Kind            ErrorKind    `json:"error_kind,omitempty"`
	Trace           []TraceEvent `json:"trace,omitempty"`
}

func (s *RequestState) result() Result {
	queries := s.ExecutedQueries
	if queries == nil {
		queries = []string{}
	}
	return Result{
		Success:         s.Success,
		Response:        s.Response,
		Method:          s.Method,
		ExecutedQueries: queries,
		RequestID:       s.RequestID,
		Error:           s.Err,
		Kind:            s.Kind,
		Trace:           s.Trace,
	}
}

// #endregion
