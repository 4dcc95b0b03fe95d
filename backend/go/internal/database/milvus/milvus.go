package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/pkg/logger"
)

// Client is the part of the Milvus SDK client the indexer depends on.
type Client interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	DescribeCollection(ctx context.Context, collName string) (*entity.Collection, error)
	CreateIndex(ctx context.Context, collName string, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	ListCollections(ctx context.Context, opts ...client.ListCollectionOption) ([]*entity.Collection, error)
	GetCollectionStatistics(ctx context.Context, collName string) (map[string]string, error)
	Upsert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	Delete(ctx context.Context, collName string, partitionName string, expr string) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string,
		vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam,
		opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Query(ctx context.Context, collectionName string, partitionNames []string, expr string, outputFields []string,
		opts ...client.SearchQueryOptionFunc) (client.ResultSet, error)
	Close() error
}

var _ Client = (client.Client)(nil)

// MilvusClient holds a connection and the collection settings it serves.
type MilvusClient struct {
	Client Client
	Config *config.MilvusConfig
	log    *logger.Logger
}

// Connect dials Milvus within the configured connect timeout. Failing to
// connect is a StorageError; callers treat it as fatal.
func Connect(ctx context.Context, cfg *config.MilvusConfig, log *logger.Logger) (*MilvusClient, error) {
	if log == nil {
		log = logger.Nop()
	}
	dialCtx := ctx
	if t := cfg.ConnectTimeout.Std(); t > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	c, err := client.NewClient(dialCtx, client.Config{Address: cfg.Address()})
	if err != nil {
		return nil, errs.Storage("connect", fmt.Errorf("cannot connect to milvus at %s: %w", cfg.Address(), err))
	}
	log.WithPayload(map[string]interface{}{"address": cfg.Address()}).Info("Connected to Milvus")
	return NewWithClient(c, cfg, log), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(c Client, cfg *config.MilvusConfig, log *logger.Logger) *MilvusClient {
	if log == nil {
		log = logger.Nop()
	}
	return &MilvusClient{Client: c, Config: cfg, log: log}
}

// CollectionName is the configured collection.
func (c *MilvusClient) CollectionName() string {
	return c.Config.Schema.CollectionName
}

// Close releases the connection.
func (c *MilvusClient) Close() error {
	if c.Client == nil {
		return nil
	}
	if err := c.Client.Close(); err != nil {
		return errs.Storage("close", err)
	}
	c.log.Info("Closed Milvus connection")
	return nil
}

// HealthCheck verifies the server answers.
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return errs.Storage("health", fmt.Errorf("milvus client is nil"))
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return errs.Storage("health", fmt.Errorf("milvus health check failed: %w", err))
	}
	return nil
}

// FlushCollection persists pending inserts and deletes.
func (c *MilvusClient) FlushCollection(ctx context.Context) error {
	if err := c.Client.Flush(ctx, c.CollectionName(), false); err != nil {
		return errs.Storage("flush", fmt.Errorf("flush collection %q: %w", c.CollectionName(), err))
	}
	return nil
}

// EnsureCollection creates the document collection and its vector index if
// missing, checks an existing collection's vector size against dim, and loads
// the collection for search.
func (c *MilvusClient) EnsureCollection(ctx context.Context, dim int) error {
	collName := c.CollectionName()
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return errs.Storage("ensure_collection", fmt.Errorf("check collection %q: %w", collName, err))
	}

	if exists {
		if err := c.checkDimension(ctx, dim); err != nil {
			return err
		}
	} else {
		if err := c.createCollection(ctx, dim); err != nil {
			return err
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return errs.Storage("ensure_collection", fmt.Errorf("load collection %q: %w", collName, err))
	}
	return nil
}

func (c *MilvusClient) createCollection(ctx context.Context, dim int) error {
	s := c.Config.Schema
	schema, err := BuildSchema(s.CollectionName, s.Description, DocumentFields(s.VectorField, dim))
	if err != nil {
		return errs.Storage("ensure_collection", err)
	}
	if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return errs.Storage("ensure_collection", fmt.Errorf("create collection %q: %w", s.CollectionName, err))
	}

	idx, err := BuildIndex(s.Index)
	if err != nil {
		return errs.Storage("ensure_collection", err)
	}
	if err := c.Client.CreateIndex(ctx, s.CollectionName, s.VectorField, idx, false); err != nil {
		return errs.Storage("ensure_collection", fmt.Errorf("create index on %q: %w", s.VectorField, err))
	}

	c.log.WithPayload(map[string]interface{}{
		"collection": s.CollectionName,
		"dimension":  dim,
		"index":      s.Index.IndexType,
		"metric":     s.Index.MetricType,
	}).Info("Created Milvus collection")
	return nil
}

// Dimension reads the vector size of the existing collection.
func (c *MilvusClient) Dimension(ctx context.Context) (int, error) {
	coll, err := c.Client.DescribeCollection(ctx, c.CollectionName())
	if err != nil {
		return 0, errs.Storage("describe", fmt.Errorf("describe collection %q: %w", c.CollectionName(), err))
	}
	if coll.Schema == nil {
		return 0, errs.Storage("describe", fmt.Errorf("collection %q has no schema", c.CollectionName()))
	}
	for _, f := range coll.Schema.Fields {
		if f.Name != c.Config.Schema.VectorField {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams["dim"])
		if err != nil {
			return 0, errs.Storage("describe", fmt.Errorf("field %q has invalid dim %q", f.Name, f.TypeParams["dim"]))
		}
		return dim, nil
	}
	return 0, errs.Storage("describe", fmt.Errorf("collection %q has no vector field %q", c.CollectionName(), c.Config.Schema.VectorField))
}

func (c *MilvusClient) checkDimension(ctx context.Context, dim int) error {
	existing, err := c.Dimension(ctx)
	if err != nil {
		return err
	}
	if existing != dim {
		return errs.Storage("ensure_collection", fmt.Errorf("%w: collection %q stores %d-dimensional vectors, model produces %d",
			errs.ErrDimensionMismatch, c.CollectionName(), existing, dim))
	}
	return nil
}

// RowCount returns the number of entities reported by collection statistics.
func (c *MilvusClient) RowCount(ctx context.Context) (int64, error) {
	stats, err := c.Client.GetCollectionStatistics(ctx, c.CollectionName())
	if err != nil {
		return 0, errs.Storage("stats", fmt.Errorf("collection statistics: %w", err))
	}
	n, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, errs.Storage("stats", fmt.Errorf("invalid row_count %q", stats["row_count"]))
	}
	return n, nil
}
