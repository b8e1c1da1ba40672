package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Embedder = (*OpenAI)(nil)

// EmbeddingsService defines the interface for making embedding API calls.
// This abstraction enables testing without calling the real OpenAI API.
type EmbeddingsService interface {
	New(ctx context.Context, params openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// OpenAI implements the embedding service using OpenAI's API.
type OpenAI struct {
	embeddings EmbeddingsService
	model      openai.EmbeddingModel
}

// NewOpenAI creates a new OpenAI embedding service.
func NewOpenAI(apiKey, model string) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		embeddings: client.Embeddings,
		model:      openai.EmbeddingModel(model),
	}
}

// Embed generates an embedding for the given text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](
			openai.EmbeddingNewParamsInputArrayOfStrings([]string{text}),
		),
		Model: openai.F(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding generation failed: no data returned")
	}

	// Convert float64 to float32
	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}

	return embedding, nil
}

// Verify confirms the credentials work by embedding a short probe string.
// Called once at startup before any pass that needs the embedder.
func (o *OpenAI) Verify(ctx context.Context) error {
	if _, err := o.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("embedding service verification failed: %w", err)
	}
	return nil
}

// ModelName returns the embedding model name.
func (o *OpenAI) ModelName() string {
	return string(o.model)
}
