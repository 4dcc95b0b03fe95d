package splitters

import (
	"fmt"
	"unicode/utf8"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
)

// DocumentChunker turns normalized documents into identified chunks with
// propagated metadata. It holds no per-document state and is safe to share
// between workers.
type DocumentChunker struct {
	splitter *RecursiveSplitter
}

var _ interfaces.Chunker = (*DocumentChunker)(nil)

// NewDocumentChunker builds a chunker over the default separators.
func NewDocumentChunker(chunkSize, overlap int) (*DocumentChunker, error) {
	s, err := NewRecursiveSplitter(chunkSize, overlap, nil)
	if err != nil {
		return nil, err
	}
	return &DocumentChunker{splitter: s}, nil
}

// NewDocumentChunkerWithSplitter wraps an already configured splitter.
func NewDocumentChunkerWithSplitter(s *RecursiveSplitter) *DocumentChunker {
	return &DocumentChunker{splitter: s}
}

func (c *DocumentChunker) ChunkSize() int { return c.splitter.ChunkSize }
func (c *DocumentChunker) Overlap() int   { return c.splitter.Overlap }

// Chunk segments doc.Text. Parent metadata is checked before splitting so a
// document missing a required field fails even when it would produce no chunks.
func (c *DocumentChunker) Chunk(doc *schema.Document) ([]schema.Chunk, error) {
	parent := doc.Metadata()
	if err := parent.Validate(); err != nil {
		return nil, errs.Processing("segment", doc.FilePath, err)
	}

	texts := c.splitter.SplitText(doc.Text)
	if len(texts) == 0 {
		return nil, nil
	}

	chunks := make([]schema.Chunk, len(texts))
	for i, text := range texts {
		md, err := schema.PropagateMetadata(parent, i, len(texts), c.splitter.ChunkSize, c.splitter.Overlap)
		if err != nil {
			return nil, errs.Processing("segment", doc.FilePath, fmt.Errorf("chunk %d: %w", i, err))
		}
		chunks[i] = schema.Chunk{
			ChunkID:   schema.ChunkID(doc.ID, i, text),
			DocID:     doc.ID,
			Content:   text,
			CharCount: utf8.RuneCountInString(text),
			WordCount: WordCount(text),
			Metadata:  md,
		}
	}
	return chunks, nil
}
