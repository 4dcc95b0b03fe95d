package cli

import (
	"context"
	"io"

	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus"
	"github.com/raghavkhare98/documind/backend/go/internal/embedding"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/embeddings"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/raghavkhare98/documind/backend/go/pkg/cache"
	"github.com/raghavkhare98/documind/backend/go/pkg/circuitbreaker"
	"github.com/raghavkhare98/documind/backend/go/pkg/logger"
	"github.com/raghavkhare98/documind/backend/go/pkg/ratelimiter"
)

// newEmbedder builds the configured provider behind a Batcher. The returned
// close function releases provider resources.
func newEmbedder(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*embeddings.Batcher, func(), error) {
	model, err := embedding.NewEmdModel(ctx, cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if c, ok := model.(io.Closer); ok {
			_ = c.Close()
		}
	}

	opts := []embeddings.BatcherOption{embeddings.WithLogger(log)}
	if cfg.Embedding.CacheSize > 0 {
		c, err := cache.New[string, []float32](cache.Config{Capacity: cfg.Embedding.CacheSize})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, embeddings.WithCache(c))
	}
	mw := cfg.Middleware
	if mw.RateLimiter.Enabled {
		opts = append(opts, embeddings.WithRateLimiter(
			ratelimiter.NewTokenBucket(mw.RateLimiter.TokenBucket.Rate, mw.RateLimiter.TokenBucket.Capacity)))
	}
	if mw.CircuitBreaker.Enabled {
		cb := mw.CircuitBreaker
		opts = append(opts, embeddings.WithCircuitBreaker(circuitbreaker.New(
			cb.FailureThreshold, cb.SuccessThreshold, cb.Timeout.Std(),
			circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
				log.WithPayload(map[string]interface{}{"from": from.String(), "to": to.String()}).Warn("Embedding circuit breaker changed state")
			}),
		)))
	}
	return embeddings.NewBatcher(model, cfg.Embedding, opts...), closeFn, nil
}

// connectMilvus dials Milvus and verifies the server answers. Any failure
// here ends the command.
func connectMilvus(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*milvus.MilvusClient, error) {
	db, err := milvus.Connect(ctx, &cfg.Databases.Milvus, log)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// openExistingStore attaches to the configured collection without creating it.
func openExistingStore(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*vectorstore.MilvusStore, error) {
	db, err := connectMilvus(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.OpenMilvusStore(ctx, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
