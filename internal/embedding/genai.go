package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// #region genai-provider

// GenAIProvider embeds text with the Gemini embedding API.
type GenAIProvider struct {
	client *genai.Client
	model  string
}

// NewGenAIProvider creates a GenAI provider.
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("genai API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIProvider{client: client, model: model}, nil
}

// Embed generates an embedding for a single text.
func (p *GenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := p.client.Models.EmbedContent(ctx,
		p.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return result.Embeddings[0].Values, nil
}

// Name returns the provider name.
func (p *GenAIProvider) Name() string {
	return "genai:" + p.model
}

// #endregion
