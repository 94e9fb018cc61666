package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/translator"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig mirrors ReplayConfig with JSON tags.
type FixtureConfig struct {
	Table      string   `json:"table"`
	MaxColumns int      `json:"max_columns"`
	MinRecords int      `json:"min_records"`
	Cities     []string `json:"cities,omitempty"`
}

// FixtureTranslator is the recorded translator reply. Error is "",
// "no_answer", or any other text for a translator failure.
type FixtureTranslator struct {
	Answer  string   `json:"answer"`
	Queries []string `json:"queries"`
	Error   string   `json:"error,omitempty"`
}

// FixtureInteraction mirrors Interaction with JSON tags.
type FixtureInteraction struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Translator FixtureTranslator `json:"translator"`
}

// FixtureExpectedResult captures the expected outcome per interaction.
// Queries is checked only when set.
type FixtureExpectedResult struct {
	ID               string `json:"id"`
	Method           string `json:"method"`
	Success          bool   `json:"success"`
	ResponseContains string `json:"response_contains,omitempty"`
	Queries          *int   `json:"queries,omitempty"`
}

// Mismatch is one field where a replay diverged from its fixture.
type Mismatch struct {
	ID    string
	Field string
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s: want %q, got %q", m.ID, m.Field, m.Want, m.Got)
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToInteraction converts a FixtureInteraction to a domain Interaction.
func (fi *FixtureInteraction) ToInteraction() Interaction {
	var err error
	switch fi.Translator.Error {
	case "":
	case "no_answer":
		err = translator.ErrNoAnswer
	default:
		err = fmt.Errorf("%w: %s", translator.ErrTranslator, fi.Translator.Error)
	}
	return Interaction{
		ID:   fi.ID,
		Text: fi.Text,
		Translation: translator.Translation{
			Answer:          fi.Translator.Answer,
			ExecutedQueries: fi.Translator.Queries,
		},
		TranslatorErr: err,
	}
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig. Zero
// fields keep the defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.Table != "" {
		cfg.Table = fc.Table
		cfg.Validator.Table = fc.Table
	}
	if fc.MaxColumns > 0 {
		cfg.Validator.MaxColumns = fc.MaxColumns
	}
	if fc.MinRecords > 0 {
		cfg.Validator.MinRecords = fc.MinRecords
	}
	cfg.Cities = fc.Cities
	return cfg
}

// ToInteractions converts every fixture interaction.
func (f *Fixture) ToInteractions() []Interaction {
	out := make([]Interaction, len(f.Interactions))
	for i := range f.Interactions {
		out[i] = f.Interactions[i].ToInteraction()
	}
	return out
}

// Compare checks results against the fixture's expectations, pairing them
// by ID.
func (f *Fixture) Compare(results []ReplayResult) []Mismatch {
	byID := make(map[string]ReplayResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}
	var out []Mismatch
	for _, want := range f.ExpectedResults {
		got, ok := byID[want.ID]
		if !ok {
			out = append(out, Mismatch{ID: want.ID, Field: "result", Want: "present", Got: "missing"})
			continue
		}
		if string(got.Method) != want.Method {
			out = append(out, Mismatch{ID: want.ID, Field: "method", Want: want.Method, Got: string(got.Method)})
		}
		if got.Success != want.Success {
			out = append(out, Mismatch{ID: want.ID, Field: "success", Want: fmt.Sprint(want.Success), Got: fmt.Sprint(got.Success)})
		}
		if want.ResponseContains != "" && !strings.Contains(got.Response, want.ResponseContains) {
			out = append(out, Mismatch{ID: want.ID, Field: "response", Want: want.ResponseContains, Got: got.Response})
		}
		if want.Queries != nil && len(got.ExecutedQueries) != *want.Queries {
			out = append(out, Mismatch{ID: want.ID, Field: "queries", Want: fmt.Sprint(*want.Queries), Got: fmt.Sprint(len(got.ExecutedQueries))})
		}
	}
	return out
}

// #endregion fixture-loader

// #region export

// ErrNoEntries is returned when there is nothing to export.
var ErrNoEntries = errors.New("no audit entries")

// FromAudit builds a fixture from audited requests. Agent answers are
// replayed verbatim; every other request replays a translator with no
// answer, so fallback routing is exercised again.
func FromAudit(description string, entries []logging.AuditEntry) (*Fixture, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	f := &Fixture{Description: description, Config: FixtureConfig{}}
	for _, e := range entries {
		fi := FixtureInteraction{ID: e.RequestID, Text: e.OriginalText}
		if e.Method == string(orchestrator.MethodAgent) {
			fi.Translator = FixtureTranslator{Answer: e.Response, Queries: e.ExecutedQueries}
		} else {
			fi.Translator = FixtureTranslator{Error: "no_answer"}
		}
		f.Interactions = append(f.Interactions, fi)
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			ID:      e.RequestID,
			Method:  e.Method,
			Success: e.Success,
		})
	}
	return f, nil
}

// #endregion export
