package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaModel embeds texts with a local Ollama server.
type OllamaModel struct {
	client *ollama.Client
	model  string
	dim    int
}

// NewOllamaModel creates an Ollama model. An empty baseURL selects the local default.
func NewOllamaModel(model, baseURL string, dim int, timeout time.Duration) (*OllamaModel, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := ollama.NewClient(parsedURL, &http.Client{Timeout: timeout})
	return &OllamaModel{client: client, model: model, dim: dim}, nil
}

func (m *OllamaModel) Dimension() int    { return m.dim }
func (m *OllamaModel) ModelName() string { return m.model }

// Embed generates the vector of a single text.
func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return first(m.EmbedBatch(ctx, []string{text}))
}

// EmbedBatch uses the batch form of the /api/embed endpoint.
func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get batch embeddings from ollama: %w", err)
	}
	if err := checkCount(len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

var _ Embedding = (*OllamaModel)(nil)
