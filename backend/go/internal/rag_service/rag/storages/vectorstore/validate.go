package vectorstore

import (
	"fmt"
	"sort"

	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
)

// validateChunks checks a whole insert batch before anything is written.
func validateChunks(chunks []schema.Chunk, dim int) error {
	for i, c := range chunks {
		if !c.Metadata.DocType.Valid() {
			_, err := schema.ParseDocType(string(c.Metadata.DocType))
			return errs.Storage("insert", fmt.Errorf("chunk %d (%s): %w", i, c.ChunkID, err))
		}
		if len(c.Embedding) != dim {
			return errs.Storage("insert", fmt.Errorf("chunk %d (%s): %w: got %d, collection stores %d",
				i, c.ChunkID, errs.ErrDimensionMismatch, len(c.Embedding), dim))
		}
		if c.ChunkID == "" || c.DocID == "" {
			return errs.Storage("insert", fmt.Errorf("chunk %d: %w: chunk_id and doc_id are required", i, errs.ErrMissingMetadata))
		}
		if err := checkLength(i, milvus.FieldChunkID, c.ChunkID, milvus.MaxIDLength); err != nil {
			return err
		}
		if err := checkLength(i, milvus.FieldDocName, c.Metadata.DocName, milvus.MaxDocNameLength); err != nil {
			return err
		}
		if err := checkLength(i, milvus.FieldSource, c.Metadata.Source, milvus.MaxIDLength); err != nil {
			return err
		}
		if err := checkLength(i, milvus.FieldContent, c.Content, milvus.MaxContentLength); err != nil {
			return err
		}
	}
	return nil
}

func checkLength(i int, field, value string, max int) error {
	if len(value) > max {
		return errs.Storage("insert", fmt.Errorf("chunk %d: %s is %d bytes, limit %d", i, field, len(value), max))
	}
	return nil
}

func validateSearch(req schema.SearchRequest, dim int) error {
	if req.TopK <= 0 || req.TopK > QueryLimit {
		return errs.Storage("search", fmt.Errorf("top_k must be in [1, %d], got %d", QueryLimit, req.TopK))
	}
	if len(req.Vector) != dim {
		return errs.Storage("search", fmt.Errorf("%w: query vector has %d dimensions, collection stores %d",
			errs.ErrDimensionMismatch, len(req.Vector), dim))
	}
	return nil
}

// CosineDistance converts a cosine similarity into a distance in [0, 2].
func CosineDistance(similarity float32) float64 {
	return 1 - float64(similarity)
}

// Score maps a distance onto (0, 1], higher meaning closer.
func Score(distance float64) float64 {
	return 1 / (1 + distance)
}

func sortHits(hits []schema.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}
