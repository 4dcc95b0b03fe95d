package schema

import (
	"fmt"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
)

// DocumentMetadata is the document-level metadata every chunk inherits.
type DocumentMetadata struct {
	DocID     string
	DocName   string
	DocType   DocType
	Source    string
	DocPath   string
	WordCount int
}

// ChunkMetadata is the fixed metadata record attached to every chunk.
type ChunkMetadata struct {
	DocName           string  `json:"doc_name"`
	DocType           DocType `json:"doc_type"`
	Source            string  `json:"source"`
	DocPath           string  `json:"doc_path"`
	WordCountAtSource int     `json:"word_count_at_source"`
	ChunkIndex        int     `json:"chunk_index"`
	ChunkSize         int     `json:"chunk_size"`
	Overlap           int     `json:"overlap"`
	TotalChunks       int     `json:"total_chunks"`
}

// Validate checks that every required parent field is present and well formed.
func (m DocumentMetadata) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"doc_id", m.DocID},
		{"doc_name", m.DocName},
		{"doc_type", string(m.DocType)},
		{"source", m.Source},
		{"doc_path", m.DocPath},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s", errs.ErrMissingMetadata, f.name)
		}
	}
	if !m.DocType.Valid() {
		_, err := ParseDocType(string(m.DocType))
		return err
	}
	if m.WordCount < 0 {
		return fmt.Errorf("%w: word_count is negative", errs.ErrMissingMetadata)
	}
	return nil
}

// PropagateMetadata derives the metadata of the chunk at index out of total
// purely from the parent metadata and the segmenter settings.
func PropagateMetadata(parent DocumentMetadata, index, total, chunkSize, overlap int) (ChunkMetadata, error) {
	if err := parent.Validate(); err != nil {
		return ChunkMetadata{}, err
	}
	if index < 0 || index >= total {
		return ChunkMetadata{}, fmt.Errorf("chunk index %d out of range [0, %d)", index, total)
	}
	return ChunkMetadata{
		DocName:           parent.DocName,
		DocType:           parent.DocType,
		Source:            parent.Source,
		DocPath:           parent.DocPath,
		WordCountAtSource: parent.WordCount,
		ChunkIndex:        index,
		ChunkSize:         chunkSize,
		Overlap:           overlap,
		TotalChunks:       total,
	}, nil
}
