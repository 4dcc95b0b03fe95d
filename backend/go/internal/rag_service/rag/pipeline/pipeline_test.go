package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/loaders"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)%7) + 1, float32(strings.Count(t, " ")%5) + 1}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 2 }
func (f *fakeEmbedder) ModelName() string { return "fake" }

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func corpus() map[string]string {
	return map[string]string{
		"rfc/http2/rfc7540.txt":            "Hypertext Transfer Protocol Version 2. " + words(50),
		"documentation/docker/install.md":  "# Install\n\nRun the installer. " + words(30),
		"research_papers/attention.txt":    words(2400),
		"software_manuals/vim/usage.md":    "- open a file\n- save it\n" + words(10),
		"documentation/fastapi/broken.pdf": "this is not a pdf at all",
		"documentation/.hidden.txt":        "never indexed",
		".git/config.txt":                  "never indexed",
		"documentation/fastapi/notes.csv":  "a,b,c",
	}
}

func newTestOrchestrator(t *testing.T, opts Options, emb *fakeEmbedder, store *vectorstore.InMemoryStore) *Orchestrator {
	t.Helper()
	if opts.ChunkSize == 0 {
		opts.ChunkSize = 1000
		opts.Overlap = 200
	}
	o, err := New(opts, loaders.NewRegistry(), emb, store, nil)
	require.NoError(t, err)
	return o
}

func outcomeFor(t *testing.T, s *RunSummary, suffix string) Outcome {
	t.Helper()
	for _, o := range s.Outcomes {
		if strings.HasSuffix(filepath.ToSlash(o.Path), suffix) {
			return o
		}
	}
	t.Fatalf("no outcome for %s", suffix)
	return Outcome{}
}

func TestIndexDirectoryIsolatesFailures(t *testing.T) {
	root := writeTree(t, corpus())
	store := vectorstore.NewInMemoryStore("test", 2)
	o := newTestOrchestrator(t, Options{Store: true}, &fakeEmbedder{}, store)

	summary, err := o.IndexDirectory(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.DryRun)

	failed := outcomeFor(t, summary, "broken.pdf")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, StateFailed, failed.State)
	assert.Equal(t, "LoadError", failed.ErrorType)
	assert.Equal(t, "load", failed.Stage)
	assert.Contains(t, failed.Error, "broken.pdf")

	long := outcomeFor(t, summary, "attention.txt")
	assert.Equal(t, 3, long.Chunks)
	assert.Equal(t, 3, long.Stored)
	assert.Equal(t, StateStored, long.State)
	assert.Equal(t, schema.DocTypeResearch, long.DocType)

	rfc := outcomeFor(t, summary, "rfc7540.txt")
	assert.Equal(t, schema.DocTypeRFC, rfc.DocType)
	assert.Equal(t, "rfc7540", rfc.Source)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(summary.TotalChunks), stats.TotalChunks)
	assert.Equal(t, summary.Stored, summary.TotalChunks)
}

func TestIndexDirectoryEmptyFileHasNoChunks(t *testing.T) {
	root := writeTree(t, map[string]string{"documentation/empty.txt": ""})
	o := newTestOrchestrator(t, Options{Store: true}, &fakeEmbedder{}, vectorstore.NewInMemoryStore("test", 2))

	summary, err := o.IndexDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, StatusNoChunks, summary.Outcomes[0].Status)
	assert.Zero(t, summary.Outcomes[0].Stored)
	assert.Equal(t, 1, summary.NoChunks)
	assert.Zero(t, summary.Failed)
}

func TestIndexDirectoryDryRun(t *testing.T) {
	root := writeTree(t, corpus())
	o, err := New(Options{ChunkSize: 1000, Overlap: 200}, nil, nil, nil, nil)
	require.NoError(t, err)

	summary, err := o.IndexDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Zero(t, summary.Stored)
	assert.Equal(t, StateSegmented, outcomeFor(t, summary, "attention.txt").State)
}

func TestIndexDirectoryEmbeddingFailure(t *testing.T) {
	root := writeTree(t, map[string]string{"manual/a.txt": words(20)})
	emb := &fakeEmbedder{err: errs.Embedding("", errors.New("quota exceeded"))}
	store := vectorstore.NewInMemoryStore("test", 2)
	o := newTestOrchestrator(t, Options{Store: true}, emb, store)

	summary, err := o.IndexDirectory(context.Background(), root)
	require.NoError(t, err)
	out := summary.Outcomes[0]
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "EmbeddingError", out.ErrorType)
	assert.Equal(t, "embed", out.Stage)
	assert.Contains(t, out.Error, "quota exceeded")
}

func TestIndexDirectoryReindexIsIdempotent(t *testing.T) {
	root := writeTree(t, corpus())
	store := vectorstore.NewInMemoryStore("test", 2)
	o := newTestOrchestrator(t, Options{Store: true, Workers: 3}, &fakeEmbedder{}, store)
	ctx := context.Background()

	first, err := o.IndexDirectory(ctx, root)
	require.NoError(t, err)
	second, err := o.IndexDirectory(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, first.TotalChunks, second.TotalChunks)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(first.TotalChunks), stats.TotalChunks)
}

func TestIndexDirectorySkipsExisting(t *testing.T) {
	root := writeTree(t, corpus())
	emb := &fakeEmbedder{}
	o := newTestOrchestrator(t, Options{Store: true, SkipExisting: true}, emb, vectorstore.NewInMemoryStore("test", 2))
	ctx := context.Background()

	_, err := o.IndexDirectory(ctx, root)
	require.NoError(t, err)
	calls := emb.calls

	summary, err := o.IndexDirectory(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, calls, emb.calls)
}

func TestIndexDirectoryReplacesEditedDocument(t *testing.T) {
	root := writeTree(t, map[string]string{"documentation/docker/a.txt": "old content about containers"})
	store := vectorstore.NewInMemoryStore("test", 2)
	o := newTestOrchestrator(t, Options{Store: true, SkipExisting: true}, &fakeEmbedder{}, store)
	ctx := context.Background()

	_, err := o.IndexDirectory(ctx, root)
	require.NoError(t, err)

	path := filepath.Join(root, "documentation", "docker", "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("new content about images and registries"), 0o644))

	summary, err := o.IndexDirectory(ctx, root)
	require.NoError(t, err)
	out := summary.Outcomes[0]
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, 1, out.Stored)

	hits, err := store.Search(ctx, schema.SearchRequest{Vector: []float32{1, 1}, TopK: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new content about images and registries", hits[0].Content)

	ids, err := store.ChunkIDs(ctx, out.DocID)
	require.NoError(t, err)
	assert.Equal(t, []string{hits[0].ChunkID}, ids)

	again, err := o.IndexDirectory(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, again.Outcomes[0].Status)
}

func TestIndexDirectoryWorkersMatchSequential(t *testing.T) {
	root := writeTree(t, corpus())
	ctx := context.Background()

	seqStore := vectorstore.NewInMemoryStore("seq", 2)
	seq, err := newTestOrchestrator(t, Options{Store: true}, &fakeEmbedder{}, seqStore).IndexDirectory(ctx, root)
	require.NoError(t, err)

	parStore := vectorstore.NewInMemoryStore("par", 2)
	par, err := newTestOrchestrator(t, Options{Store: true, Workers: 4}, &fakeEmbedder{}, parStore).IndexDirectory(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, seq.Succeeded, par.Succeeded)
	assert.Equal(t, seq.TotalChunks, par.TotalChunks)
	for i := range seq.Outcomes {
		assert.Equal(t, seq.Outcomes[i].DocID, par.Outcomes[i].DocID)
		assert.Equal(t, seq.Outcomes[i].Chunks, par.Outcomes[i].Chunks)
	}
}

func TestIndexDirectoryMissingRoot(t *testing.T) {
	o := newTestOrchestrator(t, Options{}, nil, nil)
	_, err := o.IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, errs.ErrLoad)
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(Options{ChunkSize: 100, Overlap: 100}, nil, nil, nil, nil)
	assert.ErrorIs(t, err, errs.ErrChunking)

	_, err = New(Options{ChunkSize: 100, Overlap: 10, Store: true}, nil, nil, nil, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestDocumentIDIsStable(t *testing.T) {
	a := DocumentID("/data", "/data/rfc/rfc7540.txt")
	assert.Equal(t, a, DocumentID("/data/", "/data/rfc/rfc7540.txt"))
	assert.NotEqual(t, a, DocumentID("/data", "/data/rfc/rfc9113.txt"))
	assert.Len(t, a, 36)
}

func TestScannerPatterns(t *testing.T) {
	root := writeTree(t, corpus())
	s, err := NewScanner(loaders.NewRegistry(), []string{"**.md", "rfc/**"}, []string{"software_manuals/**"})
	require.NoError(t, err)

	paths, err := s.Scan(root)
	require.NoError(t, err)
	var rels []string
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rels = append(rels, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"documentation/docker/install.md", "rfc/http2/rfc7540.txt"}, rels)
}
