package cli

import (
	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/embeddings"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/loaders"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/pipeline"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/spf13/cobra"
)

type indexFlags struct {
	chunkSize    int
	overlap      int
	workers      int
	store        bool
	skipExisting bool
	include      []string
	exclude      []string
}

func newIndexCmd(root *rootOptions) *cobra.Command {
	f := &indexFlags{}
	cmd := &cobra.Command{
		Use:   "index [root-dir]",
		Short: "Index every supported document under a directory",
		Long: `Walks the directory, skipping hidden files, and indexes every .pdf, .txt, .docx
and .md file. A document that fails is reported in the summary and the run
goes on. The summary is printed as JSON on stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, root, f, args[0])
		},
	}

	// Flags only override the config file when set explicitly.
	d := config.Default().Indexing
	fl := cmd.Flags()
	fl.IntVar(&f.chunkSize, "chunk-size", d.ChunkSize, "target chunk size in words")
	fl.IntVar(&f.overlap, "overlap", d.Overlap, "words shared by neighbouring chunks")
	fl.IntVar(&f.workers, "workers", d.Workers, "documents processed concurrently")
	fl.BoolVar(&f.store, "store", d.Store, "embed and store chunks; false segments only")
	fl.BoolVar(&f.skipExisting, "skip-existing", d.SkipExisting, "skip documents whose stored chunks match their current content")
	fl.StringSliceVar(&f.include, "include", nil, "glob patterns relative paths must match")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "glob patterns of relative paths to skip")
	return cmd
}

// apply overlays the flags the user set onto the loaded configuration.
func (f *indexFlags) apply(cmd *cobra.Command, root *rootOptions) {
	ix := &root.cfg.Indexing
	fl := cmd.Flags()
	if fl.Changed("chunk-size") {
		ix.ChunkSize = f.chunkSize
	}
	if fl.Changed("overlap") {
		ix.Overlap = f.overlap
	}
	if fl.Changed("workers") {
		ix.Workers = f.workers
	}
	if fl.Changed("store") {
		ix.Store = f.store
	}
	if fl.Changed("skip-existing") {
		ix.SkipExisting = f.skipExisting
	}
	if fl.Changed("include") {
		ix.Include = f.include
	}
	if fl.Changed("exclude") {
		ix.Exclude = f.exclude
	}
}

func runIndex(cmd *cobra.Command, root *rootOptions, f *indexFlags, dir string) error {
	f.apply(cmd, root)
	cfg, log := root.cfg, root.log
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Loaders.UnidocLicenseKey != "" {
		if err := loaders.SetUnidocLicense(cfg.Loaders.UnidocLicenseKey); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to register the docx license key")
		}
	}

	ctx := cmd.Context()
	opts := pipeline.Options{
		ChunkSize:    cfg.Indexing.ChunkSize,
		Overlap:      cfg.Indexing.Overlap,
		Workers:      cfg.Indexing.Workers,
		SkipExisting: cfg.Indexing.SkipExisting,
		Store:        cfg.Indexing.Store,
		StoreTimeout: cfg.Databases.Milvus.RequestTimeout.Std(),
		Include:      cfg.Indexing.Include,
		Exclude:      cfg.Indexing.Exclude,
	}

	var (
		embedder *embeddings.Batcher
		store    *vectorstore.MilvusStore
	)
	if opts.Store {
		var closeEmbedder func()
		var err error
		embedder, closeEmbedder, err = newEmbedder(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeEmbedder()

		db, err := connectMilvus(ctx, cfg, log)
		if err != nil {
			return err
		}
		store, err = vectorstore.NewMilvusStore(ctx, db, embedder.Dimension(), log)
		if err != nil {
			_ = db.Close()
			return err
		}
		defer store.Close()
	}

	var orch *pipeline.Orchestrator
	var err error
	if opts.Store {
		orch, err = pipeline.New(opts, loaders.NewRegistry(), embedder, store, log)
	} else {
		orch, err = pipeline.New(opts, loaders.NewRegistry(), nil, nil, log)
	}
	if err != nil {
		return err
	}

	summary, err := orch.IndexDirectory(ctx, dir)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), summary)
}
