package schema

import (
	"fmt"
	"strings"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
)

// DocType classifies a document's genre. The set is closed.
type DocType string

const (
	DocTypeDocumentation DocType = "documentation"
	DocTypeRFC           DocType = "rfc"
	DocTypeResearch      DocType = "research"
	DocTypeManual        DocType = "manual"
)

// DocTypes lists every accepted document type in a stable order.
var DocTypes = []DocType{DocTypeDocumentation, DocTypeRFC, DocTypeResearch, DocTypeManual}

// DocTypeDescriptions documents what each type holds.
var DocTypeDescriptions = map[DocType]string{
	DocTypeDocumentation: "Software documentation (Docker, FastAPI, Go Fiber, etc.)",
	DocTypeRFC:           "Protocol RFCs (HTTPS, HTTP/2, WebSocket, etc.)",
	DocTypeResearch:      "Research papers and academic publications",
	DocTypeManual:        "Software manuals and guides",
}

// Valid reports whether t belongs to the closed set.
func (t DocType) Valid() bool {
	_, ok := DocTypeDescriptions[t]
	return ok
}

// ParseDocType validates s against the closed set.
func ParseDocType(s string) (DocType, error) {
	t := DocType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q, must be one of %s", errs.ErrInvalidDocType, s, docTypeList())
	}
	return t, nil
}

func docTypeList() string {
	names := make([]string, len(DocTypes))
	for i, t := range DocTypes {
		names[i] = string(t)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// TextStats holds the scalar statistics of a normalized text.
type TextStats struct {
	WordCount     int `json:"word_count"`
	CharCount     int `json:"char_count"`
	SentenceCount int `json:"sentence_count"`
}

// Document is one ingested file after loading and normalization.
// It is consumed by segmentation and not persisted.
type Document struct {
	ID       string
	Type     DocType
	Source   string
	FilePath string
	FileName string
	Text     string
	Stats    TextStats
}

// Metadata returns the parent metadata that is propagated to every chunk.
func (d *Document) Metadata() DocumentMetadata {
	return DocumentMetadata{
		DocID:     d.ID,
		DocName:   d.FileName,
		DocType:   d.Type,
		Source:    d.Source,
		DocPath:   d.FilePath,
		WordCount: d.Stats.WordCount,
	}
}

// Chunk is a bounded slice of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	ChunkID   string        `json:"chunk_id"`
	DocID     string        `json:"doc_id"`
	Content   string        `json:"content"`
	CharCount int           `json:"char_count"`
	WordCount int           `json:"word_count"`
	Metadata  ChunkMetadata `json:"metadata"`
	Embedding []float32     `json:"-"`
}

// SearchRequest describes a similarity search against the vector index.
// FilterExpr, when set, replaces the DocType and Source filters entirely.
type SearchRequest struct {
	Vector     []float32
	TopK       int
	DocType    DocType
	Source     string
	FilterExpr string
}

// SearchHit is one search result. Score is 1/(1+distance), higher is closer.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	DocID      string  `json:"doc_id"`
	DocName    string  `json:"doc_name"`
	DocType    DocType `json:"doc_type"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	ChunkIndex int64   `json:"chunk_index"`
	Distance   float64 `json:"distance"`
	Score      float64 `json:"score"`
}

// CollectionStats summarizes the vector index contents.
type CollectionStats struct {
	Name          string            `json:"name"`
	TotalChunks   int64             `json:"total_chunks"`
	EmbeddingDim  int               `json:"embedding_dim"`
	DocTypeCounts map[DocType]int64 `json:"doc_types"`
}
