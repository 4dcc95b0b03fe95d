package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel embeds texts with the OpenAI embeddings API.
type OpenAIModel struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIModel creates an OpenAI model. baseURL overrides the API endpoint
// for compatible servers and may be empty.
func NewOpenAIModel(apiKey, modelName, baseURL string, dim int) (*OpenAIModel, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIModel{client: client, model: modelName, dim: dim}, nil
}

func (m *OpenAIModel) Dimension() int    { return m.dim }
func (m *OpenAIModel) ModelName() string { return m.model }

// Embed generates the vector of a single text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return first(m.EmbedBatch(ctx, []string{text}))
}

// EmbedBatch sends all texts in one request. Results are placed by their
// response index rather than arrival order.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}

	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if err := checkCount(len(resp.Data), len(texts)); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) || embeddings[idx] != nil {
			idx = i
		}
		embeddings[idx] = d.Embedding
	}
	return embeddings, nil
}

var _ Embedding = (*OpenAIModel)(nil)
