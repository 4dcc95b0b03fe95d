package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/raghavkhare98/documind/backend/go/internal/models"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/raghavkhare98/documind/backend/go/pkg/logger"
)

// Query is a natural-language search against the index.
type Query struct {
	Text       string
	TopK       int
	DocType    schema.DocType
	Source     string
	FilterExpr string
}

// Retriever embeds a query with the indexing model and searches the vector store.
type Retriever struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewRetriever creates a new Retriever.
func NewRetriever(embedder interfaces.EmbeddingModel, vectorStore interfaces.VectorStore, log *logger.Logger) *Retriever {
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{embedder: embedder, vectorStore: vectorStore, log: log}
}

// Retrieve returns the best matching chunks, highest score first.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]schema.SearchHit, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, errs.Embedding("", fmt.Errorf("%w: query is empty", errs.ErrEmptyText))
	}
	if q.TopK <= 0 {
		q.TopK = vectorstore.DefaultTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{q.Text})
	if err != nil {
		r.log.WithError(errInfo(err, "embed")).Error("Failed to embed query")
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errs.Embedding("", fmt.Errorf("got %d vectors for one query", len(vectors)))
	}

	hits, err := r.vectorStore.Search(ctx, schema.SearchRequest{
		Vector:     vectors[0],
		TopK:       q.TopK,
		DocType:    q.DocType,
		Source:     q.Source,
		FilterExpr: q.FilterExpr,
	})
	if err != nil {
		r.log.WithError(errInfo(err, "search")).Error("Failed to search vector store")
		return nil, err
	}

	r.log.WithPayload(map[string]interface{}{"top_k": q.TopK, "hits": len(hits)}).Info("Retrieved chunks")
	return hits, nil
}

func errInfo(err error, stage string) models.ErrorInfo {
	return models.ErrorInfo{
		Message: err.Error(),
		Type:    errs.TypeName(err),
		Stage:   errs.StageOf(err, stage),
	}
}
