package cli

import (
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/pipeline"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/spf13/cobra"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		topK       int
		docType    string
		source     string
		filterExpr string
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the indexed chunks",
		Long: `Embeds the query with the configured model and prints the closest chunks as JSON.
--filter takes a raw Milvus boolean expression and replaces --doc-type and --source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := pipeline.Query{Text: args[0], TopK: topK, Source: source, FilterExpr: filterExpr}
			if docType != "" {
				dt, err := schema.ParseDocType(docType)
				if err != nil {
					return err
				}
				q.DocType = dt
			}

			ctx := cmd.Context()
			cfg, log := root.cfg, root.log
			embedder, closeEmbedder, err := newEmbedder(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeEmbedder()

			store, err := openExistingStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			hits, err := pipeline.NewRetriever(embedder, store, log).Retrieve(ctx, q)
			if err != nil {
				return err
			}
			if hits == nil {
				hits = []schema.SearchHit{}
			}
			return printJSON(cmd.OutOrStdout(), hits)
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", vectorstore.DefaultTopK, "number of results")
	cmd.Flags().StringVar(&docType, "doc-type", "", "only documentation, rfc, research or manual chunks")
	cmd.Flags().StringVar(&source, "source", "", "only chunks of this source")
	cmd.Flags().StringVar(&filterExpr, "filter", "", "raw filter expression")
	return cmd
}
