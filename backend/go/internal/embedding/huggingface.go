package embedding

import (
	"context"
	"strings"
	"time"

	httpclient "github.com/raghavkhare98/documind/backend/go/pkg/http"
)

const defaultHuggingFaceURL = "https://api-inference.huggingface.co/pipeline/feature-extraction/"

// HuggingFaceModel embeds texts with the Hugging Face feature-extraction pipeline.
type HuggingFaceModel struct {
	client  *httpclient.Client
	model   string
	apiKey  string
	baseURL string
	dim     int
}

// NewHuggingFaceModel creates a Hugging Face model. The model name is appended to baseURL.
func NewHuggingFaceModel(apiKey, modelName, baseURL string, dim int, timeout time.Duration) (*HuggingFaceModel, error) {
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HuggingFaceModel{
		client:  httpclient.NewClient(timeout, nil),
		model:   modelName,
		apiKey:  apiKey,
		baseURL: baseURL,
		dim:     dim,
	}, nil
}

func (m *HuggingFaceModel) Dimension() int    { return m.dim }
func (m *HuggingFaceModel) ModelName() string { return m.model }

// Embed generates the vector of a single text.
func (m *HuggingFaceModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return first(m.EmbedBatch(ctx, []string{text}))
}

// EmbedBatch posts all texts in one request, waiting for a cold model to load.
func (m *HuggingFaceModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload := map[string]interface{}{
		"inputs":  texts,
		"options": map[string]bool{"wait_for_model": true},
	}
	headers := map[string]string{"Authorization": "Bearer " + m.apiKey}

	var embeddings [][]float32
	if err := m.client.PostJSON(ctx, m.baseURL+m.model, headers, payload, &embeddings); err != nil {
		return nil, err
	}
	if err := checkCount(len(embeddings), len(texts)); err != nil {
		return nil, err
	}
	return embeddings, nil
}

var _ Embedding = (*HuggingFaceModel)(nil)
