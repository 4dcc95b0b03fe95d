package vectorstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus"
	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus/milvustest"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMilvusStore(t *testing.T, dim int) (*MilvusStore, *milvustest.FakeClient) {
	t.Helper()
	cfg := config.Default().Databases.Milvus
	fake := milvustest.NewFakeClient()
	store, err := NewMilvusStore(context.Background(), milvus.NewWithClient(fake, &cfg, nil), dim, nil)
	require.NoError(t, err)
	return store, fake
}

func TestMilvusInsertWritesColumnsAndFlushes(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)

	n, err := store.Insert(context.Background(), []schema.Chunk{
		testChunk("a", 0, schema.DocTypeRFC, "http", []float32{1, 0}),
		testChunk("a", 1, schema.DocTypeRFC, "http", []float32{0, 1}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, fake.Flushes)

	require.Len(t, fake.Upserted, 1)
	cols := fake.Upserted[0]
	require.Len(t, cols, 8)
	assert.Equal(t, milvus.FieldChunkID, cols[0].Name())
	assert.Equal(t, "embedding", cols[7].Name())
	assert.Equal(t, 2, cols[0].Len())

	idx, ok := cols[6].(*entity.ColumnInt64)
	require.True(t, ok)
	assert.Equal(t, []int64{0, 1}, idx.Data())
}

func TestMilvusInsertUpsertsByChunkID(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	chunks := []schema.Chunk{testChunk("a", 0, schema.DocTypeRFC, "http", []float32{1, 0})}

	for i := 0; i < 2; i++ {
		_, err := store.Insert(context.Background(), chunks)
		require.NoError(t, err)
	}

	require.Len(t, fake.Upserted, 2)
	for _, cols := range fake.Upserted {
		ids, ok := cols[0].(*entity.ColumnVarChar)
		require.True(t, ok)
		assert.Equal(t, milvus.FieldChunkID, ids.Name())
		assert.Equal(t, []string{chunks[0].ChunkID}, ids.Data())
	}
}

func TestMilvusChunkIDs(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	fake.QueryFunc = func(expr string, fields []string) (client.ResultSet, error) {
		return client.ResultSet{entity.NewColumnVarChar(milvus.FieldChunkID, []string{"d1_chunk_1_bbbb", "d1_chunk_0_aaaa"})}, nil
	}

	ids, err := store.ChunkIDs(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1_chunk_0_aaaa", "d1_chunk_1_bbbb"}, ids)
	assert.Equal(t, []string{`doc_id == "d1"`}, fake.Queries)
}

func TestMilvusInsertRejectsWholeBatch(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)

	_, err := store.Insert(context.Background(), []schema.Chunk{
		testChunk("a", 0, schema.DocTypeRFC, "http", []float32{1, 0}),
		testChunk("a", 1, "blog", "http", []float32{0, 1}),
	})
	assert.ErrorIs(t, err, errs.ErrInvalidDocType)
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.Empty(t, fake.Upserted)

	_, err = store.Insert(context.Background(), []schema.Chunk{
		testChunk("a", 0, schema.DocTypeRFC, "http", []float32{1, 0, 0}),
	})
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
	assert.Empty(t, fake.Upserted)
}

func TestMilvusInsertFailureIsStorageError(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	fake.UpsertErr = errors.New("connection reset")

	_, err := store.Insert(context.Background(), []schema.Chunk{
		testChunk("a", 0, schema.DocTypeRFC, "http", []float32{1, 0}),
	})
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.Equal(t, "insert", errs.StageOf(err, ""))
}

func searchResult(scores []float32, ids ...string) client.SearchResult {
	n := len(ids)
	docIDs := make([]string, n)
	names := make([]string, n)
	types := make([]string, n)
	sources := make([]string, n)
	contents := make([]string, n)
	indexes := make([]int64, n)
	for i, id := range ids {
		docIDs[i] = strings.Split(id, "_")[0]
		names[i] = docIDs[i] + ".md"
		types[i] = string(schema.DocTypeDocumentation)
		sources[i] = "fastapi"
		contents[i] = "content of " + id
		indexes[i] = int64(i)
	}
	return client.SearchResult{
		ResultCount: n,
		IDs:         entity.NewColumnVarChar(milvus.FieldChunkID, ids),
		Scores:      scores,
		Fields: client.ResultSet{
			entity.NewColumnVarChar(milvus.FieldChunkID, ids),
			entity.NewColumnVarChar(milvus.FieldDocID, docIDs),
			entity.NewColumnVarChar(milvus.FieldDocName, names),
			entity.NewColumnVarChar(milvus.FieldDocType, types),
			entity.NewColumnVarChar(milvus.FieldSource, sources),
			entity.NewColumnVarChar(milvus.FieldContent, contents),
			entity.NewColumnInt64(milvus.FieldChunkIndex, indexes),
		},
	}
}

func TestMilvusSearch(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	fake.SearchFunc = func(call milvustest.SearchCall) ([]client.SearchResult, error) {
		return []client.SearchResult{searchResult([]float32{0.9, 0.4}, "d1_chunk_0_aaaa", "d2_chunk_1_bbbb")}, nil
	}

	hits, err := store.Search(context.Background(), schema.SearchRequest{
		Vector:  []float32{1, 0},
		TopK:    2,
		DocType: schema.DocTypeDocumentation,
		Source:  "fastapi",
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	require.Len(t, fake.Searches, 1)
	call := fake.Searches[0]
	assert.Equal(t, `doc_type == "documentation" and source == "fastapi"`, call.Expr)
	assert.Equal(t, entity.COSINE, call.Metric)
	assert.Equal(t, 2, call.TopK)
	assert.Equal(t, "embedding", call.VectorField)

	assert.Equal(t, "d1_chunk_0_aaaa", hits[0].ChunkID)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, schema.DocTypeDocumentation, hits[0].DocType)
	assert.InDelta(t, 0.1, hits[0].Distance, 1e-6)
	assert.InDelta(t, 1/1.1, hits[0].Score, 1e-6)
	assert.InDelta(t, 1/1.6, hits[1].Score, 1e-6)
}

func TestMilvusSearchFilterExprOverrides(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	_, err := store.Search(context.Background(), schema.SearchRequest{
		Vector:     []float32{1, 0},
		TopK:       3,
		DocType:    schema.DocTypeRFC,
		FilterExpr: `chunk_index < 3`,
	})
	require.NoError(t, err)
	require.Len(t, fake.Searches, 1)
	assert.Equal(t, `chunk_index < 3`, fake.Searches[0].Expr)
}

func TestMilvusSearchValidation(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	ctx := context.Background()

	_, err := store.Search(ctx, schema.SearchRequest{Vector: []float32{1, 0}})
	assert.ErrorIs(t, err, errs.ErrStorage)

	_, err = store.Search(ctx, schema.SearchRequest{Vector: []float32{1}, TopK: 1})
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)

	_, err = store.Search(ctx, schema.SearchRequest{Vector: []float32{1, 0}, TopK: 1, FilterExpr: `source == "x`})
	assert.ErrorIs(t, err, errs.ErrInvalidFilter)

	assert.Empty(t, fake.Searches)
}

func TestMilvusDeleteByDocID(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	fake.QueryFunc = func(expr string, fields []string) (client.ResultSet, error) {
		if expr == `doc_id == "d1"` {
			return client.ResultSet{entity.NewColumnVarChar(milvus.FieldChunkID, []string{"c1", "c2", "c3"})}, nil
		}
		return client.ResultSet{}, nil
	}
	ctx := context.Background()

	n, err := store.DeleteByDocID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{`doc_id == "d1"`}, fake.Deletes)
	assert.Equal(t, 1, fake.Flushes)

	n, err = store.DeleteBySource(ctx, "nothing")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, fake.Deletes, 1)
}

func TestMilvusDeleteFailure(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	fake.QueryFunc = func(string, []string) (client.ResultSet, error) {
		return client.ResultSet{entity.NewColumnVarChar(milvus.FieldChunkID, []string{"c1"})}, nil
	}
	fake.DeleteErr = errors.New("timeout")

	_, err := store.DeleteBySource(context.Background(), "docker")
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.Equal(t, "delete", errs.StageOf(err, ""))
}

func TestMilvusListSourcesAndHasDocument(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	fake.QueryFunc = func(expr string, fields []string) (client.ResultSet, error) {
		switch fields[0] {
		case milvus.FieldSource:
			return client.ResultSet{entity.NewColumnVarChar(milvus.FieldSource, []string{"http", "docker", "http"})}, nil
		default:
			return client.ResultSet{}, nil
		}
	}
	ctx := context.Background()

	sources, err := store.ListSources(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docker", "http"}, sources)

	_, err = store.ListSources(ctx, schema.DocTypeRFC)
	require.NoError(t, err)
	assert.Contains(t, fake.Queries, `doc_type == "rfc"`)

	_, err = store.ListSources(ctx, "poetry")
	assert.ErrorIs(t, err, errs.ErrInvalidDocType)

	ok, err := store.HasDocument(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMilvusStats(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	counts := map[string]int64{
		allRows:                       7,
		`doc_type == "rfc"`:           5,
		`doc_type == "manual"`:        2,
		`doc_type == "research"`:      0,
		`doc_type == "documentation"`: 0,
	}
	fake.QueryFunc = func(expr string, fields []string) (client.ResultSet, error) {
		return client.ResultSet{entity.NewColumnInt64("count(*)", []int64{counts[expr]})}, nil
	}

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "technical_documents", stats.Name)
	assert.Equal(t, int64(7), stats.TotalChunks)
	assert.Equal(t, 2, stats.EmbeddingDim)
	assert.Equal(t, int64(5), stats.DocTypeCounts[schema.DocTypeRFC])
	assert.Equal(t, int64(2), stats.DocTypeCounts[schema.DocTypeManual])
	assert.Len(t, stats.DocTypeCounts, 4)
}

func TestMilvusClose(t *testing.T) {
	store, fake := newTestMilvusStore(t, 2)
	require.NoError(t, store.Close())
	assert.True(t, fake.Closed)
}

func TestOpenMilvusStore(t *testing.T) {
	cfg := config.Default().Databases.Milvus
	fake := milvustest.NewFakeClient()
	db := milvus.NewWithClient(fake, &cfg, nil)

	_, err := OpenMilvusStore(context.Background(), db, nil)
	assert.ErrorIs(t, err, errs.ErrStorage)

	require.NoError(t, db.EnsureCollection(context.Background(), 8))
	store, err := OpenMilvusStore(context.Background(), db, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, store.dim)
}
