package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/raghavkhare98/documind/backend/go/internal/models"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/loaders"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/normalizer"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/splitters"
	"github.com/raghavkhare98/documind/backend/go/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// State is the position of one document in the indexing state machine.
type State string

const (
	StateDiscovered State = "discovered"
	StateLoaded     State = "loaded"
	StateNormalized State = "normalized"
	StateSegmented  State = "segmented"
	StateEmbedded   State = "embedded"
	StateStored     State = "stored"
	StateFailed     State = "failed"
)

// Status is the final verdict on one document.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusNoChunks  Status = "no chunks"
	StatusSkipped   Status = "skipped"
)

// Outcome records what happened to one discovered file.
type Outcome struct {
	Path      string         `json:"path"`
	DocID     string         `json:"doc_id"`
	DocType   schema.DocType `json:"doc_type"`
	Source    string         `json:"source"`
	State     State          `json:"state"`
	Status    Status         `json:"status"`
	Chunks    int            `json:"chunks"`
	Stored    int            `json:"stored"`
	Stage     string         `json:"stage,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration_ns"`
}

// RunSummary aggregates the outcomes of one directory run.
type RunSummary struct {
	Root        string    `json:"root"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	NoChunks    int       `json:"no_chunks"`
	Skipped     int       `json:"skipped"`
	TotalChunks int       `json:"total_chunks"`
	Stored      int       `json:"stored_vectors"`
	DryRun      bool      `json:"dry_run"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Options tunes an Orchestrator.
type Options struct {
	ChunkSize    int
	Overlap      int
	Workers      int
	SkipExisting bool
	// Store false stops every document after segmentation.
	Store        bool
	StoreTimeout time.Duration
	Include      []string
	Exclude      []string
}

// Orchestrator drives every file under a root directory through
// load, normalize, segment, embed and store. A failing file is recorded
// and the run moves on.
type Orchestrator struct {
	loader     *loaders.Registry
	normalizer *normalizer.TextNormalizer
	chunker    interfaces.Chunker
	embedder   interfaces.EmbeddingModel
	store      interfaces.VectorStore
	scanner    *Scanner
	opts       Options
	log        *logger.Logger
}

// New builds an Orchestrator. embedder and store may be nil only when
// opts.Store is false. Invalid chunk settings fail here with a ChunkingError.
func New(opts Options, loader *loaders.Registry, embedder interfaces.EmbeddingModel, store interfaces.VectorStore, log *logger.Logger) (*Orchestrator, error) {
	if log == nil {
		log = logger.Nop()
	}
	if loader == nil {
		loader = loaders.NewRegistry()
	}
	chunker, err := splitters.NewDocumentChunker(opts.ChunkSize, opts.Overlap)
	if err != nil {
		return nil, err
	}
	if opts.Store && (embedder == nil || store == nil) {
		return nil, fmt.Errorf("%w: storing requires an embedding model and a vector store", errs.ErrInvalidConfig)
	}
	scanner, err := NewScanner(loader, opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Orchestrator{
		loader:     loader,
		normalizer: normalizer.New(),
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		scanner:    scanner,
		opts:       opts,
		log:        log,
	}, nil
}

// IndexDirectory indexes every supported file under root. Only an unreadable
// root or a cancelled context returns an error; per-file failures end up in
// the summary.
func (o *Orchestrator) IndexDirectory(ctx context.Context, root string) (*RunSummary, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errs.Load(root, err)
	}
	if !info.IsDir() {
		return nil, errs.Load(root, fmt.Errorf("%s is not a directory", root))
	}

	paths, err := o.scanner.Scan(root)
	if err != nil {
		return nil, errs.Load(root, err)
	}
	o.log.WithPayload(map[string]interface{}{
		"root":    root,
		"files":   len(paths),
		"workers": o.opts.Workers,
		"store":   o.opts.Store,
	}).Info("Starting indexing run")

	outcomes := make([]Outcome, len(paths))
	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = o.IndexFile(ctx, root, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := Summarize(root, outcomes)
	summary.DryRun = !o.opts.Store
	o.log.WithPayload(map[string]interface{}{
		"total":        summary.Total,
		"succeeded":    summary.Succeeded,
		"failed":       summary.Failed,
		"no_chunks":    summary.NoChunks,
		"skipped":      summary.Skipped,
		"total_chunks": summary.TotalChunks,
	}).Info("Indexing run finished")
	return summary, nil
}

// IndexFile runs one file through the state machine and reports its outcome.
// It never returns an error; failures are recorded on the Outcome.
func (o *Orchestrator) IndexFile(ctx context.Context, root, path string) Outcome {
	start := time.Now()
	docType := loaders.ResolveDocType(path)
	out := Outcome{
		Path:    path,
		DocID:   DocumentID(root, path),
		DocType: docType,
		Source:  loaders.ResolveSource(path, docType),
		State:   StateDiscovered,
	}
	log := o.log.WithDocument(models.DocumentInfo{
		Path:    path,
		DocID:   out.DocID,
		DocType: string(out.DocType),
		Source:  out.Source,
	})

	err := o.process(ctx, &out, log)
	out.Duration = time.Since(start)
	if err != nil {
		out.Stage = errs.StageOf(err, string(out.State))
		out.State = StateFailed
		out.Status = StatusFailed
		out.ErrorType = errs.TypeName(err)
		out.Error = err.Error()
		log.WithError(models.ErrorInfo{Message: out.Error, Type: out.ErrorType, Stage: out.Stage}).Error("Failed to index document")
		return out
	}
	log.WithPayload(map[string]interface{}{"status": out.Status, "chunks": out.Chunks, "stored": out.Stored}).Info("Indexed document")
	return out
}

func (o *Orchestrator) process(ctx context.Context, out *Outcome, log *logger.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := o.loader.Load(ctx, out.Path)
	if err != nil {
		return err
	}
	o.advance(out, StateLoaded, log)

	normalized, err := o.normalizer.Normalize(text)
	if err != nil {
		return errs.Processing("normalize", out.Path, err)
	}
	o.advance(out, StateNormalized, log)

	doc := &schema.Document{
		ID:       out.DocID,
		Type:     out.DocType,
		Source:   out.Source,
		FilePath: out.Path,
		FileName: filepath.Base(out.Path),
		Text:     normalized,
		Stats:    normalizer.ExtractStats(normalized),
	}
	chunks, err := o.chunker.Chunk(doc)
	if err != nil {
		return err
	}
	o.advance(out, StateSegmented, log)
	out.Chunks = len(chunks)
	if len(chunks) == 0 {
		out.Status = StatusNoChunks
		return nil
	}
	if !o.opts.Store {
		out.Status = StatusSucceeded
		return nil
	}

	// A document is only skipped when its stored chunks are exactly the ones
	// segmentation produced now; an edited file changes its chunk ids.
	replace := !o.opts.SkipExisting
	if o.opts.SkipExisting {
		var stored []string
		err := o.withStoreTimeout(ctx, func(ctx context.Context) error {
			var err error
			stored, err = o.store.ChunkIDs(ctx, out.DocID)
			return err
		})
		if err != nil {
			return errs.WithPath(err, out.Path)
		}
		if sameChunkIDs(stored, chunks) {
			out.Status = StatusSkipped
			log.Debug("Document unchanged since last run, skipping")
			return nil
		}
		replace = len(stored) > 0
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := o.embedder.Embed(ctx, texts)
	if err != nil {
		return errs.WithPath(err, out.Path)
	}
	if len(vectors) != len(chunks) {
		return errs.Embedding(out.Path, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	o.advance(out, StateEmbedded, log)

	err = o.withStoreTimeout(ctx, func(ctx context.Context) error {
		// Re-indexing replaces the previous rows of this document.
		if replace {
			if _, err := o.store.DeleteByDocID(ctx, out.DocID); err != nil {
				return err
			}
		}
		n, err := o.store.Insert(ctx, chunks)
		out.Stored = n
		return err
	})
	if err != nil {
		return errs.WithPath(err, out.Path)
	}
	o.advance(out, StateStored, log)
	out.Status = StatusSucceeded
	return nil
}

func sameChunkIDs(stored []string, chunks []schema.Chunk) bool {
	if len(stored) != len(chunks) {
		return false
	}
	fresh := make([]string, len(chunks))
	for i, c := range chunks {
		fresh[i] = c.ChunkID
	}
	sort.Strings(fresh)
	for i := range fresh {
		if fresh[i] != stored[i] {
			return false
		}
	}
	return true
}

// withStoreTimeout bounds one store interaction.
func (o *Orchestrator) withStoreTimeout(ctx context.Context, fn func(context.Context) error) error {
	if o.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.StoreTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (o *Orchestrator) advance(out *Outcome, state State, log *logger.Logger) {
	out.State = state
	log.WithField("state", string(state)).Debug("Document state changed")
}

// DocumentID derives a stable id from the path of a file relative to the
// indexed root, so re-running over the same tree yields the same ids.
func DocumentID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.ToSlash(rel))).String()
}

// Summarize folds per-file outcomes into a run summary.
func Summarize(root string, outcomes []Outcome) *RunSummary {
	s := &RunSummary{Root: root, Total: len(outcomes), Outcomes: outcomes}
	if s.Outcomes == nil {
		s.Outcomes = []Outcome{}
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusNoChunks:
			s.NoChunks++
		case StatusSkipped:
			s.Skipped++
		}
		s.TotalChunks += o.Chunks
		s.Stored += o.Stored
	}
	return s
}
