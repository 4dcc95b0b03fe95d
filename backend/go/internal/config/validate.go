package config

import (
	"fmt"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
)

var (
	supportedProviders = map[string]bool{"openai": true, "ollama": true, "gemini": true, "huggingface": true}
	supportedIndexes   = map[string]bool{"IVF_FLAT": true, "IVF_SQ8": true, "IVF_PQ": true, "HNSW": true, "FLAT": true, "AUTOINDEX": true}
)

// Validate rejects settings that would make every document fail.
// A chunk overlap that is not smaller than the chunk size is reported as a
// ChunkingError so the run fails before any document is touched.
func (c *AppConfig) Validate() error {
	if c.Indexing.ChunkSize <= 0 {
		return errs.Chunking(fmt.Errorf("%w: chunk size must be positive, got %d", errs.ErrInvalidConfig, c.Indexing.ChunkSize))
	}
	if c.Indexing.Overlap < 0 || c.Indexing.Overlap >= c.Indexing.ChunkSize {
		return errs.Chunking(fmt.Errorf("%w: overlap (%d) must be in [0, chunk size %d)",
			errs.ErrInvalidConfig, c.Indexing.Overlap, c.Indexing.ChunkSize))
	}
	if c.Indexing.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", errs.ErrInvalidConfig, c.Indexing.Workers)
	}
	if !c.Indexing.Store {
		return nil
	}

	if !supportedProviders[c.Embedding.Provider] {
		return fmt.Errorf("%w: unsupported embedding provider %q", errs.ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive, got %d", errs.ErrInvalidConfig, c.Embedding.BatchSize)
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("%w: embedding max retries cannot be negative", errs.ErrInvalidConfig)
	}

	schema := c.Databases.Milvus.Schema
	if schema.CollectionName == "" {
		return fmt.Errorf("%w: milvus collection name is empty", errs.ErrInvalidConfig)
	}
	if schema.Index.MetricType != "COSINE" {
		return fmt.Errorf("%w: metric type must be COSINE, got %q", errs.ErrInvalidConfig, schema.Index.MetricType)
	}
	if !supportedIndexes[schema.Index.IndexType] {
		return fmt.Errorf("%w: unsupported index type %q", errs.ErrInvalidConfig, schema.Index.IndexType)
	}
	return nil
}
