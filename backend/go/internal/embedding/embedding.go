package embedding

import (
	"context"
	"fmt"

	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
)

// NewEmdModel creates the provider model named by cfg.
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig) (Embedding, error) {
	provider := ModelType(cfg.Provider)
	model := cfg.Model
	if model == "" {
		model = DefaultModels[provider]
	}

	dim, err := ResolveDimension(model, cfg.Dimension)
	if err != nil {
		return nil, err
	}
	if provider != Ollama && cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s embeddings need an API key", errs.ErrInvalidConfig, provider)
	}

	timeout := cfg.RequestTimeout.Std()
	switch provider {
	case Gemini:
		return NewGoogleModel(ctx, cfg.APIKey, model, dim)
	case OpenAI:
		return NewOpenAIModel(cfg.APIKey, model, cfg.BaseURL, dim)
	case HuggingFace:
		return NewHuggingFaceModel(cfg.APIKey, model, cfg.BaseURL, dim, timeout)
	case Ollama:
		return NewOllamaModel(model, cfg.BaseURL, dim, timeout)
	default:
		return nil, fmt.Errorf("%w: unsupported provider: %s", errs.ErrInvalidConfig, cfg.Provider)
	}
}

// checkCount guards against providers returning fewer vectors than inputs.
func checkCount(got, want int) error {
	if got != want {
		return fmt.Errorf("expected %d embeddings, got %d", want, got)
	}
	return nil
}

func first(vecs [][]float32, err error) ([]float32, error) {
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return vecs[0], nil
}
