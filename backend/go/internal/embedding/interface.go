package embedding

import "context"

// Embedding is implemented by every embedding provider.
type Embedding interface {
	// Embed returns the vector of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the length of every returned vector.
	Dimension() int

	ModelName() string
}

// ModelType names an embedding provider.
type ModelType string

const (
	OpenAI      ModelType = "openai"
	Gemini      ModelType = "gemini"
	Ollama      ModelType = "ollama"
	HuggingFace ModelType = "huggingface"
)

// DefaultModels is used when the configuration names a provider but no model.
var DefaultModels = map[ModelType]string{
	OpenAI:      "text-embedding-3-small",
	Gemini:      "text-embedding-004",
	Ollama:      "nomic-embed-text",
	HuggingFace: "sentence-transformers/all-MiniLM-L6-v2",
}
