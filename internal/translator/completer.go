package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/codec"
)

// #region options

// Sampling holds generation parameters shared by every backend.
type Sampling struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultSampling matches the settings the SQL prompts were tuned with.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.1, TopP: 0.9, MaxTokens: 2048}
}

// ErrEmptyCompletion is returned when a backend answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// #endregion

// #region ollama

// OllamaCompleter calls a local Ollama server's /api/generate endpoint.
type OllamaCompleter struct {
	endpoint string
	model    string
	sampling Sampling
	client   *http.Client
}

// NewOllamaCompleter creates an Ollama completer.
func NewOllamaCompleter(endpoint, model string, s Sampling) *OllamaCompleter {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaCompleter{
		endpoint: endpoint,
		model:    model,
		sampling: s,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends one non-streaming generate request.
func (c *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Options: map[string]any{
			"temperature": c.sampling.Temperature,
			"top_p":       c.sampling.TopP,
			"num_predict": c.sampling.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, msg)
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Response == "" {
		return "", ErrEmptyCompletion
	}
	return out.Response, nil
}

// Name returns the completer name.
func (c *OllamaCompleter) Name() string {
	return "ollama:" + c.model
}

// #endregion

// #region genai

// GenAICompleter generates text with the Gemini API.
type GenAICompleter struct {
	client   *genai.Client
	model    string
	sampling Sampling
}

// NewGenAICompleter creates a GenAI completer.
func NewGenAICompleter(ctx context.Context, apiKey, model string, s Sampling) (*GenAICompleter, error) {
	if apiKey == "" {
		return nil, errors.New("genai API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAICompleter{client: client, model: model, sampling: s}, nil
}

// Complete generates one reply.
func (c *GenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.sampling.Temperature),
		TopP:            genai.Ptr(c.sampling.TopP),
		MaxOutputTokens: int32(c.sampling.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// Name returns the completer name.
func (c *GenAICompleter) Name() string {
	return "genai:" + c.model
}

// #endregion

// #region codec

// Generator is the subset of *codec.CodecClient used for completion.
type Generator interface {
	Generate(ctx context.Context, req codec.GenerateRequest) (codec.GenerateResult, error)
}

// CodecCompleter generates text through the inference gRPC service.
type CodecCompleter struct {
	client   Generator
	model    string
	sampling Sampling
}

// NewCodecCompleter wraps a codec client.
func NewCodecCompleter(client Generator, model string, s Sampling) *CodecCompleter {
	return &CodecCompleter{client: client, model: model, sampling: s}
}

// Complete generates one reply.
func (c *CodecCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	res, err := c.client.Generate(ctx, codec.GenerateRequest{
		Prompt:      prompt,
		Model:       c.model,
		Temperature: c.sampling.Temperature,
		TopP:        c.sampling.TopP,
		MaxTokens:   c.sampling.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if res.Text == "" {
		return "", ErrEmptyCompletion
	}
	return res.Text, nil
}

// Name returns the completer name.
func (c *CodecCompleter) Name() string {
	return "codec:" + c.model
}

// #endregion
