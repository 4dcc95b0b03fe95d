package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDimension(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		configured int
		want       int
		wantErr    bool
	}{
		{"known model", "text-embedding-3-small", 0, 1536, false},
		{"large model", "text-embedding-3-large", 0, 3072, false},
		{"configured agrees", "text-embedding-ada-002", 1536, 1536, false},
		{"configured disagrees", "text-embedding-3-small", 768, 0, true},
		{"unknown model configured", "my-model", 256, 256, false},
		{"unknown model unconfigured", "my-model", 0, 0, true},
		{"negative", "my-model", -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDimension(tt.model, tt.configured)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errs.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewEmdModel(t *testing.T) {
	ctx := context.Background()

	_, err := NewEmdModel(ctx, config.EmbeddingConfig{Provider: "openai"})
	assert.ErrorIs(t, err, errs.ErrInvalidConfig, "missing api key")

	_, err = NewEmdModel(ctx, config.EmbeddingConfig{Provider: "cohere", Model: "embed-v3", Dimension: 1024, APIKey: "k"})
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)

	m, err := NewEmdModel(ctx, config.EmbeddingConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", m.ModelName())
	assert.Equal(t, 1536, m.Dimension())

	m, err = NewEmdModel(ctx, config.EmbeddingConfig{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", m.ModelName())
	assert.Equal(t, 768, m.Dimension())
}

func TestOpenAIModelEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		// Out of order on purpose.
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	m, err := NewOpenAIModel("test-key", "text-embedding-3-small", srv.URL, 2)
	require.NoError(t, err)

	vecs, err := m.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOllamaModelEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req["model"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      "nomic-embed-text",
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer srv.Close()

	m, err := NewOllamaModel("nomic-embed-text", srv.URL, 2, time.Second)
	require.NoError(t, err)

	vecs, err := m.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
}

func TestHuggingFaceModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/bge", r.URL.Path)
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([][]float32{{1, 2, 3}})
	}))
	defer srv.Close()

	m, err := NewHuggingFaceModel("hf-key", "bge", srv.URL+"/models", 3, time.Second)
	require.NoError(t, err)

	vec, err := m.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	_, err = m.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "expected 2 embeddings, got 1")
}
