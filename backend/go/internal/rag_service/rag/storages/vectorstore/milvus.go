package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/raghavkhare98/documind/backend/go/pkg/logger"
)

// QueryLimit caps the rows returned by a scalar query.
const QueryLimit = 16384

// DefaultTopK is used by callers that do not choose a result count.
const DefaultTopK = 5

// allRows matches every entity; Milvus needs a predicate for unbounded queries.
var allRows = milvus.FieldChunkID + ` != ""`

var outputFields = []string{
	milvus.FieldChunkID,
	milvus.FieldDocID,
	milvus.FieldDocName,
	milvus.FieldDocType,
	milvus.FieldSource,
	milvus.FieldContent,
	milvus.FieldChunkIndex,
}

// MilvusStore stores chunk vectors in a Milvus collection with cosine similarity.
type MilvusStore struct {
	log         *logger.Logger
	db          *milvus.MilvusClient
	client      milvus.Client
	collection  string
	vectorField string
	dim         int
	searchParam entity.SearchParam
}

// NewMilvusStore makes sure the collection exists with dim-sized vectors and
// is loaded, then returns a store over it.
func NewMilvusStore(ctx context.Context, db *milvus.MilvusClient, dim int, log *logger.Logger) (*MilvusStore, error) {
	if db == nil || db.Client == nil {
		return nil, errs.Storage("connect", fmt.Errorf("milvus client is not initialized"))
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := db.EnsureCollection(ctx, dim); err != nil {
		return nil, err
	}
	sp, err := milvus.BuildSearchParam(db.Config.Schema.Index, db.Config.Schema.Search)
	if err != nil {
		return nil, errs.Storage("connect", err)
	}
	return &MilvusStore{
		log:         log,
		db:          db,
		client:      db.Client,
		collection:  db.CollectionName(),
		vectorField: db.Config.Schema.VectorField,
		dim:         dim,
		searchParam: sp,
	}, nil
}

// OpenMilvusStore attaches to an existing collection, taking the vector size
// from its schema. A missing collection is a StorageError.
func OpenMilvusStore(ctx context.Context, db *milvus.MilvusClient, log *logger.Logger) (*MilvusStore, error) {
	if db == nil || db.Client == nil {
		return nil, errs.Storage("connect", fmt.Errorf("milvus client is not initialized"))
	}
	dim, err := db.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	return NewMilvusStore(ctx, db, dim, log)
}

// Insert validates every chunk first, so a single bad chunk stores nothing,
// then upserts all of them keyed on chunk_id and flushes. Writing the same
// chunks twice leaves one row per chunk.
func (s *MilvusStore) Insert(ctx context.Context, chunks []schema.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := validateChunks(chunks, s.dim); err != nil {
		return 0, err
	}

	n := len(chunks)
	var (
		chunkIDs   = make([]string, n)
		docIDs     = make([]string, n)
		docNames   = make([]string, n)
		docTypes   = make([]string, n)
		sources    = make([]string, n)
		contents   = make([]string, n)
		indexes    = make([]int64, n)
		embeddings = make([][]float32, n)
	)
	for i, c := range chunks {
		chunkIDs[i] = c.ChunkID
		docIDs[i] = c.DocID
		docNames[i] = c.Metadata.DocName
		docTypes[i] = string(c.Metadata.DocType)
		sources[i] = c.Metadata.Source
		contents[i] = c.Content
		indexes[i] = int64(c.Metadata.ChunkIndex)
		embeddings[i] = c.Embedding
	}

	_, err := s.client.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(milvus.FieldChunkID, chunkIDs),
		entity.NewColumnVarChar(milvus.FieldDocID, docIDs),
		entity.NewColumnVarChar(milvus.FieldDocName, docNames),
		entity.NewColumnVarChar(milvus.FieldDocType, docTypes),
		entity.NewColumnVarChar(milvus.FieldSource, sources),
		entity.NewColumnVarChar(milvus.FieldContent, contents),
		entity.NewColumnInt64(milvus.FieldChunkIndex, indexes),
		entity.NewColumnFloatVector(s.vectorField, s.dim, embeddings),
	)
	if err != nil {
		return 0, errs.Storage("insert", fmt.Errorf("upsert into %q: %w", s.collection, err))
	}
	if err := s.db.FlushCollection(ctx); err != nil {
		return 0, err
	}

	s.log.WithPayload(map[string]interface{}{"collection": s.collection, "count": n}).Debug("Upserted chunks")
	return n, nil
}

// Search returns the TopK chunks most similar to req.Vector, best first.
func (s *MilvusStore) Search(ctx context.Context, req schema.SearchRequest) ([]schema.SearchHit, error) {
	if err := validateSearch(req, s.dim); err != nil {
		return nil, err
	}
	expr, err := BuildFilter(req)
	if err != nil {
		return nil, errs.Storage("search", err)
	}

	s.log.WithPayload(map[string]interface{}{"collection": s.collection, "filter": expr, "top_k": req.TopK}).Debug("Searching Milvus")
	results, err := s.client.Search(
		ctx, s.collection, []string{}, expr, outputFields,
		[]entity.Vector{entity.FloatVector(req.Vector)},
		s.vectorField, entity.COSINE, req.TopK, s.searchParam,
	)
	if err != nil {
		return nil, errs.Storage("search", fmt.Errorf("search %q: %w", s.collection, err))
	}

	var hits []schema.SearchHit
	for _, res := range results {
		batch, err := hitsFromResult(res)
		if err != nil {
			return nil, errs.Storage("search", err)
		}
		hits = append(hits, batch...)
	}
	sortHits(hits)
	return hits, nil
}

func hitsFromResult(res client.SearchResult) ([]schema.SearchHit, error) {
	if res.Err != nil {
		return nil, res.Err
	}
	if res.ResultCount == 0 {
		return nil, nil
	}
	cols := []entity.Column(res.Fields)
	chunkIDs, err := stringColumn(cols, milvus.FieldChunkID)
	if err != nil {
		if ids, ok := res.IDs.(*entity.ColumnVarChar); ok {
			chunkIDs, err = ids.Data(), nil
		} else {
			return nil, err
		}
	}
	docIDs, err := stringColumn(cols, milvus.FieldDocID)
	if err != nil {
		return nil, err
	}
	docNames, err := stringColumn(cols, milvus.FieldDocName)
	if err != nil {
		return nil, err
	}
	docTypes, err := stringColumn(cols, milvus.FieldDocType)
	if err != nil {
		return nil, err
	}
	sources, err := stringColumn(cols, milvus.FieldSource)
	if err != nil {
		return nil, err
	}
	contents, err := stringColumn(cols, milvus.FieldContent)
	if err != nil {
		return nil, err
	}
	indexes, err := int64Column(cols, milvus.FieldChunkIndex)
	if err != nil {
		return nil, err
	}

	n := res.ResultCount
	if len(res.Scores) < n || len(chunkIDs) < n || len(docIDs) < n || len(docNames) < n ||
		len(docTypes) < n || len(sources) < n || len(contents) < n || len(indexes) < n {
		return nil, fmt.Errorf("search result has fewer rows than its count %d", n)
	}

	hits := make([]schema.SearchHit, n)
	for i := 0; i < n; i++ {
		distance := CosineDistance(res.Scores[i])
		hits[i] = schema.SearchHit{
			ChunkID:    chunkIDs[i],
			DocID:      docIDs[i],
			DocName:    docNames[i],
			DocType:    schema.DocType(docTypes[i]),
			Source:     sources[i],
			Content:    contents[i],
			ChunkIndex: indexes[i],
			Distance:   distance,
			Score:      Score(distance),
		}
	}
	return hits, nil
}

// DeleteByDocID removes every chunk of a document and returns how many matched.
func (s *MilvusStore) DeleteByDocID(ctx context.Context, docID string) (int, error) {
	expr, err := Eq(milvus.FieldDocID, docID)
	if err != nil {
		return 0, errs.Storage("delete", err)
	}
	return s.deleteWhere(ctx, expr)
}

// DeleteBySource removes every chunk with the given source label.
func (s *MilvusStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	expr, err := Eq(milvus.FieldSource, source)
	if err != nil {
		return 0, errs.Storage("delete", err)
	}
	return s.deleteWhere(ctx, expr)
}

// deleteWhere counts the matching rows, deletes them and flushes. Counts
// above QueryLimit are reported as QueryLimit.
func (s *MilvusStore) deleteWhere(ctx context.Context, expr string) (int, error) {
	ids, err := s.queryStrings(ctx, expr, milvus.FieldChunkID, QueryLimit)
	if err != nil {
		return 0, errs.Storage("delete", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return 0, errs.Storage("delete", fmt.Errorf("delete where %s: %w", expr, err))
	}
	if err := s.db.FlushCollection(ctx); err != nil {
		return 0, err
	}
	s.log.WithPayload(map[string]interface{}{"filter": expr, "count": len(ids)}).Info("Deleted chunks")
	return len(ids), nil
}

// HasDocument reports whether any chunk of docID is stored.
func (s *MilvusStore) HasDocument(ctx context.Context, docID string) (bool, error) {
	expr, err := Eq(milvus.FieldDocID, docID)
	if err != nil {
		return false, errs.Storage("query", err)
	}
	ids, err := s.queryStrings(ctx, expr, milvus.FieldChunkID, 1)
	if err != nil {
		return false, errs.Storage("query", err)
	}
	return len(ids) > 0, nil
}

// ChunkIDs returns the sorted chunk ids stored for docID.
func (s *MilvusStore) ChunkIDs(ctx context.Context, docID string) ([]string, error) {
	expr, err := Eq(milvus.FieldDocID, docID)
	if err != nil {
		return nil, errs.Storage("query", err)
	}
	ids, err := s.queryStrings(ctx, expr, milvus.FieldChunkID, QueryLimit)
	if err != nil {
		return nil, errs.Storage("query", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListSources returns the sorted distinct source labels, optionally limited to one doc type.
func (s *MilvusStore) ListSources(ctx context.Context, docType schema.DocType) ([]string, error) {
	expr := allRows
	if docType != "" {
		if _, err := schema.ParseDocType(string(docType)); err != nil {
			return nil, errs.Storage("query", fmt.Errorf("%w: %w", errs.ErrInvalidFilter, err))
		}
		var err error
		if expr, err = Eq(milvus.FieldDocType, string(docType)); err != nil {
			return nil, errs.Storage("query", err)
		}
	}
	sources, err := s.queryStrings(ctx, expr, milvus.FieldSource, QueryLimit)
	if err != nil {
		return nil, errs.Storage("query", err)
	}
	return uniqueSorted(sources), nil
}

// Stats reports the collection size, vector dimension and per-type counts.
func (s *MilvusStore) Stats(ctx context.Context) (*schema.CollectionStats, error) {
	total, err := s.count(ctx, allRows)
	if err != nil {
		// Statistics lag behind deletes but are always available.
		if total, err = s.db.RowCount(ctx); err != nil {
			return nil, err
		}
	}
	dim, err := s.db.Dimension(ctx)
	if err != nil {
		return nil, err
	}

	stats := &schema.CollectionStats{
		Name:          s.collection,
		TotalChunks:   total,
		EmbeddingDim:  dim,
		DocTypeCounts: make(map[schema.DocType]int64, len(schema.DocTypes)),
	}
	for _, dt := range schema.DocTypes {
		expr, _ := Eq(milvus.FieldDocType, string(dt))
		n, err := s.count(ctx, expr)
		if err != nil {
			return nil, errs.Storage("stats", err)
		}
		stats.DocTypeCounts[dt] = n
	}
	return stats, nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() error {
	return s.db.Close()
}

func (s *MilvusStore) queryStrings(ctx context.Context, expr, field string, limit int64) ([]string, error) {
	rs, err := s.client.Query(ctx, s.collection, []string{}, expr, []string{field}, client.WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query %q where %s: %w", s.collection, expr, err)
	}
	if len(rs) == 0 {
		return nil, nil
	}
	return stringColumn(rs, field)
}

func (s *MilvusStore) count(ctx context.Context, expr string) (int64, error) {
	rs, err := s.client.Query(ctx, s.collection, []string{}, expr, []string{"count(*)"})
	if err != nil {
		return 0, fmt.Errorf("count %q where %s: %w", s.collection, expr, err)
	}
	counts, err := int64Column(rs, "count(*)")
	if err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}

func findColumn(cols []entity.Column, name string) entity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}

func stringColumn(cols []entity.Column, name string) ([]string, error) {
	col, ok := findColumn(cols, name).(*entity.ColumnVarChar)
	if !ok {
		return nil, fmt.Errorf("result is missing VarChar field %q", name)
	}
	return col.Data(), nil
}

func int64Column(cols []entity.Column, name string) ([]int64, error) {
	col, ok := findColumn(cols, name).(*entity.ColumnInt64)
	if !ok {
		return nil, fmt.Errorf("result is missing Int64 field %q", name)
	}
	return col.Data(), nil
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
