// Package milvustest provides an in-process stand-in for the Milvus client.
package milvustest

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus"
)

// SearchCall records the arguments of one Search call.
type SearchCall struct {
	Collection   string
	Expr         string
	OutputFields []string
	Vectors      []entity.Vector
	VectorField  string
	Metric       entity.MetricType
	TopK         int
}

// FakeClient records every call. Search and Query answers come from the
// SearchFunc and QueryFunc hooks; errors can be injected per operation.
type FakeClient struct {
	mu sync.Mutex

	Schemas  map[string]*entity.Schema
	Indexes  map[string]entity.Index
	Loaded   []string
	Upserted [][]entity.Column
	Deletes  []string
	Queries  []string
	Searches []SearchCall
	Flushes  int
	Closed   bool
	Stats    map[string]string

	SearchFunc func(call SearchCall) ([]client.SearchResult, error)
	QueryFunc  func(expr string, outputFields []string) (client.ResultSet, error)

	HasErr, UpsertErr, DeleteErr, FlushErr, StatsErr error
}

var _ milvus.Client = (*FakeClient)(nil)

// NewFakeClient returns an empty fake server.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Schemas: make(map[string]*entity.Schema),
		Indexes: make(map[string]entity.Index),
		Stats:   map[string]string{"row_count": "0"},
	}
}

func (f *FakeClient) HasCollection(_ context.Context, collName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HasErr != nil {
		return false, f.HasErr
	}
	_, ok := f.Schemas[collName]
	return ok, nil
}

func (f *FakeClient) CreateCollection(_ context.Context, schema *entity.Schema, _ int32, _ ...client.CreateCollectionOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Schemas[schema.CollectionName]; ok {
		return fmt.Errorf("collection %s already exists", schema.CollectionName)
	}
	f.Schemas[schema.CollectionName] = schema
	return nil
}

func (f *FakeClient) DescribeCollection(_ context.Context, collName string) (*entity.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	schema, ok := f.Schemas[collName]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collName)
	}
	return &entity.Collection{Name: collName, Schema: schema}, nil
}

func (f *FakeClient) CreateIndex(_ context.Context, collName string, fieldName string, idx entity.Index, _ bool, _ ...client.IndexOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Indexes[collName+"."+fieldName] = idx
	return nil
}

func (f *FakeClient) LoadCollection(_ context.Context, collName string, _ bool, _ ...client.LoadCollectionOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Loaded = append(f.Loaded, collName)
	return nil
}

func (f *FakeClient) ListCollections(_ context.Context, _ ...client.ListCollectionOption) ([]*entity.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Collection
	for name, schema := range f.Schemas {
		out = append(out, &entity.Collection{Name: name, Schema: schema})
	}
	return out, nil
}

func (f *FakeClient) GetCollectionStatistics(_ context.Context, _ string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatsErr != nil {
		return nil, f.StatsErr
	}
	return f.Stats, nil
}

func (f *FakeClient) Upsert(_ context.Context, _ string, _ string, columns ...entity.Column) (entity.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpsertErr != nil {
		return nil, f.UpsertErr
	}
	f.Upserted = append(f.Upserted, columns)
	for _, c := range columns {
		if c.Name() == milvus.FieldChunkID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *FakeClient) Flush(_ context.Context, _ string, _ bool, _ ...client.FlushOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FlushErr != nil {
		return f.FlushErr
	}
	f.Flushes++
	return nil
}

func (f *FakeClient) Delete(_ context.Context, _ string, _ string, expr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deletes = append(f.Deletes, expr)
	return nil
}

func (f *FakeClient) Search(_ context.Context, collName string, _ []string, expr string, outputFields []string,
	vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, _ entity.SearchParam,
	_ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	call := SearchCall{
		Collection:   collName,
		Expr:         expr,
		OutputFields: outputFields,
		Vectors:      vectors,
		VectorField:  vectorField,
		Metric:       metricType,
		TopK:         topK,
	}
	f.mu.Lock()
	f.Searches = append(f.Searches, call)
	fn := f.SearchFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call)
}

func (f *FakeClient) Query(_ context.Context, _ string, _ []string, expr string, outputFields []string,
	_ ...client.SearchQueryOptionFunc) (client.ResultSet, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, expr)
	fn := f.QueryFunc
	f.mu.Unlock()
	if fn == nil {
		return client.ResultSet{}, nil
	}
	return fn(expr, outputFields)
}

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
