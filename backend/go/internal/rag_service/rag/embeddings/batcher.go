package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/internal/embedding"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
	"github.com/raghavkhare98/documind/backend/go/pkg/cache"
	"github.com/raghavkhare98/documind/backend/go/pkg/circuitbreaker"
	httpclient "github.com/raghavkhare98/documind/backend/go/pkg/http"
	"github.com/raghavkhare98/documind/backend/go/pkg/logger"
	"github.com/raghavkhare98/documind/backend/go/pkg/ratelimiter"
)

// Batcher adapts a provider model to the EmbeddingModel interface. It
// splits input into batches, retries failed calls with exponential backoff
// and bisects a batch that keeps failing until the offending texts are isolated.
type Batcher struct {
	model          embedding.Embedding
	batchSize      int
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	requestTimeout time.Duration

	limiter ratelimiter.RateLimiter
	breaker circuitbreaker.CircuitBreaker
	cache   *cache.LRU[string, []float32]
	log     *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithRateLimiter paces provider calls.
func WithRateLimiter(l ratelimiter.RateLimiter) BatcherOption {
	return func(b *Batcher) { b.limiter = l }
}

// WithCircuitBreaker stops calling a provider that keeps failing.
func WithCircuitBreaker(cb circuitbreaker.CircuitBreaker) BatcherOption {
	return func(b *Batcher) { b.breaker = cb }
}

// WithCache reuses vectors of texts embedded before, keyed by content hash.
func WithCache(c *cache.LRU[string, []float32]) BatcherOption {
	return func(b *Batcher) { b.cache = c }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *logger.Logger) BatcherOption {
	return func(b *Batcher) { b.log = l }
}

// NewBatcher wraps model with the batching and retry settings of cfg.
func NewBatcher(model embedding.Embedding, cfg config.EmbeddingConfig, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		model:          model,
		batchSize:      cfg.BatchSize,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff.Std(),
		maxBackoff:     cfg.MaxBackoff.Std(),
		requestTimeout: cfg.RequestTimeout.Std(),
		log:            logger.Nop(),
		sleep:          sleepContext,
	}
	if b.batchSize <= 0 {
		b.batchSize = 100
	}
	if b.maxRetries < 0 {
		b.maxRetries = 0
	}
	if b.maxBackoff < b.initialBackoff {
		b.maxBackoff = b.initialBackoff
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ interfaces.EmbeddingModel = (*Batcher)(nil)

func (b *Batcher) Dimension() int    { return b.model.Dimension() }
func (b *Batcher) ModelName() string { return b.model.ModelName() }

// Embed returns one vector per text in input order. Every text is checked
// before the first provider call; an empty one fails the whole request.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, errs.Embedding("", fmt.Errorf("%w: text at index %d", errs.ErrEmptyText, i))
		}
	}

	out := make([][]float32, len(texts))
	pending := texts
	var slots []int // position in out of every pending text, when caching
	if b.cache != nil {
		pending, slots = nil, nil
		for i, text := range texts {
			if v, ok := b.cache.Get(b.cacheKey(text)); ok {
				out[i] = v
				continue
			}
			pending = append(pending, text)
			slots = append(slots, i)
		}
	}

	// Failing indices in errors refer to pending, the texts not served from cache.
	vecs := make([][]float32, len(pending))
	for lo := 0; lo < len(pending); lo += b.batchSize {
		hi := min(lo+b.batchSize, len(pending))
		if err := b.embedRange(ctx, pending, lo, hi, vecs); err != nil {
			return nil, errs.Embedding("", err)
		}
	}

	if b.cache == nil {
		return vecs, nil
	}
	for j, v := range vecs {
		out[slots[j]] = v
		b.cache.Put(b.cacheKey(pending[j]), v, 1)
	}
	return out, nil
}

func (b *Batcher) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(b.model.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// EmbedQuery embeds a single search query.
func (b *Batcher) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := b.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// embedRange fills out[lo:hi]. A range that still fails after its retries is
// halved and each half retried on its own, so texts that embed fine are kept
// and the error names the smallest failing range.
func (b *Batcher) embedRange(ctx context.Context, texts []string, lo, hi int, out [][]float32) error {
	vecs, err := b.callWithRetry(ctx, texts[lo:hi])
	if err == nil {
		for i, v := range vecs {
			if len(v) != b.model.Dimension() {
				return fmt.Errorf("%w: text %d has %d dimensions, expected %d",
					errs.ErrDimensionMismatch, lo+i, len(v), b.model.Dimension())
			}
			out[lo+i] = v
		}
		return nil
	}

	if hi-lo == 1 || !bisectable(ctx, err) {
		return fmt.Errorf("texts [%d, %d): %w", lo, hi, err)
	}

	mid := lo + (hi-lo)/2
	b.log.WithPayload(map[string]interface{}{"from": lo, "to": hi, "split_at": mid}).
		Warn(fmt.Sprintf("Embedding batch keeps failing, bisecting: %v", err))
	if err := b.embedRange(ctx, texts, lo, mid, out); err != nil {
		return err
	}
	return b.embedRange(ctx, texts, mid, hi, out)
}

func (b *Batcher) callWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	backoff := b.initialBackoff
	var err error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			b.log.WithPayload(map[string]interface{}{"attempt": attempt, "batch_size": len(batch), "backoff": backoff.String()}).
				Warn(fmt.Sprintf("Retrying embedding call: %v", err))
			if serr := b.sleep(ctx, backoff); serr != nil {
				return nil, serr
			}
			backoff = min(backoff*2, b.maxBackoff)
		}

		var vecs [][]float32
		vecs, err = b.call(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		if !retryable(ctx, err) {
			break
		}
	}
	return nil, err
}

func (b *Batcher) call(ctx context.Context, batch []string) ([][]float32, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	callCtx := ctx
	if b.requestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.requestTimeout)
		defer cancel()
	}

	var vecs [][]float32
	run := func() error {
		var err error
		vecs, err = b.model.EmbedBatch(callCtx, batch)
		if err == nil && len(vecs) != len(batch) {
			err = fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vecs))
		}
		return err
	}
	var err error
	if b.breaker != nil {
		err = b.breaker.Execute(run)
	} else {
		err = run()
	}
	return vecs, err
}

// retryable is false once the caller gave up, the circuit is open or the
// provider rejected the request as a client error.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false
	}
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// bisectable reports whether splitting the batch could help. Client errors
// such as an oversized input are tied to specific texts, so they are.
func bisectable(ctx context.Context, err error) bool {
	return ctx.Err() == nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
