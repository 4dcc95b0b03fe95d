package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
)

// InMemoryStore is a thread-safe, in-memory implementation of the VectorStore
// interface. It searches by brute-force cosine similarity and understands
// filters made of `field == "value"` and `field != "value"` terms joined by "and".
type InMemoryStore struct {
	mu     sync.RWMutex
	name   string
	dim    int
	chunks map[string]schema.Chunk
	order  []string
}

// NewInMemoryStore creates an empty store for dim-sized vectors.
func NewInMemoryStore(name string, dim int) *InMemoryStore {
	return &InMemoryStore{
		name:   name,
		dim:    dim,
		chunks: make(map[string]schema.Chunk),
	}
}

// Insert stores the chunks, replacing any with the same chunk ID.
func (s *InMemoryStore) Insert(_ context.Context, chunks []schema.Chunk) (int, error) {
	if err := validateChunks(chunks, s.dim); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if _, ok := s.chunks[c.ChunkID]; !ok {
			s.order = append(s.order, c.ChunkID)
		}
		c.Embedding = append([]float32(nil), c.Embedding...)
		s.chunks[c.ChunkID] = c
	}
	return len(chunks), nil
}

// Search ranks the chunks matching the request filter by cosine similarity.
func (s *InMemoryStore) Search(_ context.Context, req schema.SearchRequest) ([]schema.SearchHit, error) {
	if err := validateSearch(req, s.dim); err != nil {
		return nil, err
	}
	expr, err := BuildFilter(req)
	if err != nil {
		return nil, errs.Storage("search", err)
	}
	match, err := compileFilter(expr)
	if err != nil {
		return nil, errs.Storage("search", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []schema.SearchHit
	for _, id := range s.order {
		c := s.chunks[id]
		if !match(c) {
			continue
		}
		distance := CosineDistance(cosine(req.Vector, c.Embedding))
		hits = append(hits, schema.SearchHit{
			ChunkID:    c.ChunkID,
			DocID:      c.DocID,
			DocName:    c.Metadata.DocName,
			DocType:    c.Metadata.DocType,
			Source:     c.Metadata.Source,
			Content:    c.Content,
			ChunkIndex: int64(c.Metadata.ChunkIndex),
			Distance:   distance,
			Score:      Score(distance),
		})
	}
	sortHits(hits)
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}

// DeleteByDocID removes every chunk of a document.
func (s *InMemoryStore) DeleteByDocID(_ context.Context, docID string) (int, error) {
	return s.deleteWhere(func(c schema.Chunk) bool { return c.DocID == docID }), nil
}

// DeleteBySource removes every chunk with the given source label.
func (s *InMemoryStore) DeleteBySource(_ context.Context, source string) (int, error) {
	return s.deleteWhere(func(c schema.Chunk) bool { return c.Metadata.Source == source }), nil
}

func (s *InMemoryStore) deleteWhere(match func(schema.Chunk) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if match(s.chunks[id]) {
			delete(s.chunks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

// HasDocument reports whether any chunk of docID is stored.
func (s *InMemoryStore) HasDocument(_ context.Context, docID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chunks {
		if c.DocID == docID {
			return true, nil
		}
	}
	return false, nil
}

// ChunkIDs returns the sorted chunk ids stored for docID.
func (s *InMemoryStore) ChunkIDs(_ context.Context, docID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, c := range s.chunks {
		if c.DocID == docID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListSources returns the sorted distinct sources, optionally for one doc type.
func (s *InMemoryStore) ListSources(_ context.Context, docType schema.DocType) ([]string, error) {
	if docType != "" && !docType.Valid() {
		_, err := schema.ParseDocType(string(docType))
		return nil, errs.Storage("query", fmt.Errorf("%w: %w", errs.ErrInvalidFilter, err))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sources []string
	for _, c := range s.chunks {
		if docType == "" || c.Metadata.DocType == docType {
			sources = append(sources, c.Metadata.Source)
		}
	}
	return uniqueSorted(sources), nil
}

// Stats counts the stored chunks in total and per doc type.
func (s *InMemoryStore) Stats(_ context.Context) (*schema.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &schema.CollectionStats{
		Name:          s.name,
		TotalChunks:   int64(len(s.chunks)),
		EmbeddingDim:  s.dim,
		DocTypeCounts: make(map[schema.DocType]int64, len(schema.DocTypes)),
	}
	for _, dt := range schema.DocTypes {
		stats.DocTypeCounts[dt] = 0
	}
	for _, c := range s.chunks {
		stats.DocTypeCounts[c.Metadata.DocType]++
	}
	return stats, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// compileFilter turns an expression into a predicate over chunks.
func compileFilter(expr string) (func(schema.Chunk) bool, error) {
	if strings.TrimSpace(expr) == "" {
		return func(schema.Chunk) bool { return true }, nil
	}
	if err := ValidateExpr(expr); err != nil {
		return nil, err
	}

	var preds []func(schema.Chunk) bool
	for _, term := range splitAnd(expr) {
		p, err := compileTerm(strings.TrimSpace(term))
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return func(c schema.Chunk) bool {
		for _, p := range preds {
			if !p(c) {
				return false
			}
		}
		return true
	}, nil
}

// splitAnd splits on the "and" keyword outside of string literals.
func splitAnd(expr string) []string {
	var (
		terms []string
		start int
		quote byte
	)
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '"' || ch == '\'':
			quote = ch
		case strings.HasPrefix(strings.ToLower(expr[i:]), " and "):
			terms = append(terms, expr[start:i])
			i += len(" and ") - 1
			start = i + 1
		}
	}
	return append(terms, expr[start:])
}

func compileTerm(term string) (func(schema.Chunk) bool, error) {
	op := "=="
	idx := strings.Index(term, op)
	if ne := strings.Index(term, "!="); ne >= 0 && (idx < 0 || ne < idx) {
		op, idx = "!=", ne
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: unsupported term %q", errs.ErrInvalidFilter, term)
	}
	field := strings.TrimSpace(term[:idx])
	value, err := unquote(strings.TrimSpace(term[idx+len(op):]))
	if err != nil {
		return nil, err
	}
	get, ok := fieldGetters[field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", errs.ErrInvalidFilter, field)
	}
	if op == "!=" {
		return func(c schema.Chunk) bool { return get(c) != value }, nil
	}
	return func(c schema.Chunk) bool { return get(c) == value }, nil
}

func unquote(lit string) (string, error) {
	if len(lit) < 2 || (lit[0] != '"' && lit[0] != '\'') || lit[len(lit)-1] != lit[0] {
		return "", fmt.Errorf("%w: expected a string literal, got %q", errs.ErrInvalidFilter, lit)
	}
	var b strings.Builder
	body := lit[1 : len(lit)-1]
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String(), nil
}

var fieldGetters = map[string]func(schema.Chunk) string{
	milvus.FieldChunkID: func(c schema.Chunk) string { return c.ChunkID },
	milvus.FieldDocID:   func(c schema.Chunk) string { return c.DocID },
	milvus.FieldDocName: func(c schema.Chunk) string { return c.Metadata.DocName },
	milvus.FieldDocType: func(c schema.Chunk) string { return string(c.Metadata.DocType) },
	milvus.FieldSource:  func(c schema.Chunk) string { return c.Metadata.Source },
	milvus.FieldContent: func(c schema.Chunk) string { return c.Content },
}

// compile-time check to ensure InMemoryStore implements the VectorStore interface
var _ interfaces.VectorStore = (*InMemoryStore)(nil)

