package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/starford/journal/internal/apperr"
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // optional; llama.cpp, Ollama and others expose the same API
	Model      string
	Dimensions int // expected vector size; 0 disables the check
	MaxRetries int
}

// OpenAI calls the /embeddings endpoint of an OpenAI-compatible server.
type OpenAI struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAI creates an embeddings client. Returns an error if no model is set.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding: openai: missing model")
	}
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), cfg: cfg}, nil
}

// Embed returns the embedding of text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(o.cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: openai: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: openai: empty response")
	}
	vec := resp.Data[0].Embedding
	if o.cfg.Dimensions > 0 && len(vec) != o.cfg.Dimensions {
		return nil, fmt.Errorf("embedding: openai: got %d dimensions, expected %d: %w",
			len(vec), o.cfg.Dimensions, apperr.ErrValidation)
	}
	return vec, nil
}
