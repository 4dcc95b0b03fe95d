package embedding

import (
	"fmt"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
)

// KnownDimensions lists the output size of well-known models.
var KnownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,

	"text-embedding-004": 768,
	"embedding-001":      768,

	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
	"bge-m3":                 1024,

	"sentence-transformers/all-MiniLM-L6-v2":  384,
	"sentence-transformers/all-mpnet-base-v2": 768,
	"BAAI/bge-small-en-v1.5":                  384,
	"BAAI/bge-base-en-v1.5":                   768,
}

// ResolveDimension returns the vector size for model. A configured size must
// agree with a well-known model; unknown models need one.
func ResolveDimension(model string, configured int) (int, error) {
	known, ok := KnownDimensions[model]
	switch {
	case configured < 0:
		return 0, fmt.Errorf("%w: embedding dimension cannot be negative", errs.ErrInvalidConfig)
	case configured > 0 && ok && configured != known:
		return 0, fmt.Errorf("%w: model %s produces %d dimensions, configured %d",
			errs.ErrInvalidConfig, model, known, configured)
	case configured > 0:
		return configured, nil
	case ok:
		return known, nil
	default:
		return 0, fmt.Errorf("%w: unknown dimension for model %q, set embedding.dimension", errs.ErrInvalidConfig, model)
	}
}
