package cli

import (
	"errors"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/spf13/cobra"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection size, vector dimension and per doc type counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openExistingStore(cmd.Context(), root.cfg, root.log)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

type deleteResult struct {
	DocID   string `json:"doc_id,omitempty"`
	Source  string `json:"source,omitempty"`
	Deleted int    `json:"deleted"`
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	var docID, source string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the chunks of one document or one source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (docID == "") == (source == "") {
				return errors.New("exactly one of --doc-id or --source is required")
			}
			ctx := cmd.Context()
			store, err := openExistingStore(ctx, root.cfg, root.log)
			if err != nil {
				return err
			}
			defer store.Close()

			res := deleteResult{DocID: docID, Source: source}
			if docID != "" {
				res.Deleted, err = store.DeleteByDocID(ctx, docID)
			} else {
				res.Deleted, err = store.DeleteBySource(ctx, source)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&docID, "doc-id", "", "document id to delete")
	cmd.Flags().StringVar(&source, "source", "", "source label to delete")
	return cmd
}

func newSourcesCmd(root *rootOptions) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the distinct sources in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dt schema.DocType
			if docType != "" {
				var err error
				if dt, err = schema.ParseDocType(docType); err != nil {
					return err
				}
			}
			store, err := openExistingStore(cmd.Context(), root.cfg, root.log)
			if err != nil {
				return err
			}
			defer store.Close()

			sources, err := store.ListSources(cmd.Context(), dt)
			if err != nil {
				return err
			}
			if sources == nil {
				sources = []string{}
			}
			return printJSON(cmd.OutOrStdout(), sources)
		},
	}
	cmd.Flags().StringVar(&docType, "doc-type", "", "only sources of this doc type")
	return cmd
}
