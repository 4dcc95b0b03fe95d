package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleModel embeds texts with the Gemini embedding API.
type GoogleModel struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
	dim    int
}

// NewGoogleModel creates a Gemini embedding model.
func NewGoogleModel(ctx context.Context, apiKey, modelName string, dim int) (*GoogleModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GoogleModel{
		client: client,
		model:  client.EmbeddingModel(modelName),
		name:   modelName,
		dim:    dim,
	}, nil
}

func (m *GoogleModel) Dimension() int    { return m.dim }
func (m *GoogleModel) ModelName() string { return m.name }

// Close releases the underlying client connection.
func (m *GoogleModel) Close() error {
	return m.client.Close()
}

// Embed generates the vector of a single text.
func (m *GoogleModel) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := m.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch sends all texts in one BatchEmbedContents call.
func (m *GoogleModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	batch := m.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := m.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if err := checkCount(len(res.Embeddings), len(texts)); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		embeddings = append(embeddings, emb.Values)
	}
	return embeddings, nil
}

var _ Embedding = (*GoogleModel)(nil)
