package interfaces

import (
	"context"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
)

// Loader extracts the raw text of a single file.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// Splitter splits text into bounded chunk texts.
type Splitter interface {
	SplitText(text string) []string
}

// Chunker segments a normalized document into identified chunks.
type Chunker interface {
	Chunk(doc *schema.Document) ([]schema.Chunk, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the length of every vector the model returns.
	Dimension() int
	ModelName() string
}

// VectorStore persists chunk vectors and answers similarity searches.
type VectorStore interface {
	// Insert upserts every chunk or none of them, keyed on chunk id, and
	// returns the number stored.
	Insert(ctx context.Context, chunks []schema.Chunk) (int, error)
	Search(ctx context.Context, req schema.SearchRequest) ([]schema.SearchHit, error)
	DeleteByDocID(ctx context.Context, docID string) (int, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
	HasDocument(ctx context.Context, docID string) (bool, error)
	// ChunkIDs lists the stored chunk ids of a document in sorted order.
	ChunkIDs(ctx context.Context, docID string) ([]string, error)
	ListSources(ctx context.Context, docType schema.DocType) ([]string, error)
	Stats(ctx context.Context) (*schema.CollectionStats, error)
	Close() error
}
