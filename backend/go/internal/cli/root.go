// Package cli implements the documind command line.
package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/raghavkhare98/documind/backend/go/internal/config"
	"github.com/raghavkhare98/documind/backend/go/pkg/logger"
	"github.com/spf13/cobra"
)

const serviceName = "documind"

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	collection string

	cfg *config.AppConfig
	log *logger.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "documind",
		Short: "Index technical documents into Milvus and search them",
		Long: `documind segments PDF, DOCX, Markdown and plain-text documents into overlapping
word windows, embeds every chunk and stores the vectors in a Milvus collection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (defaults are used when empty)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.collection, "collection", "", "Milvus collection name, overrides the config file")

	cmd.AddCommand(
		newIndexCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newDeleteCmd(opts),
		newSourcesCmd(opts),
	)
	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logger.Level = o.logLevel
	}
	if o.collection != "" {
		cfg.Databases.Milvus.Schema.CollectionName = o.collection
	}
	o.cfg = cfg

	logger.Init(logger.ParseLevel(cfg.Logger.Level), cmd.ErrOrStderr())
	o.log = logger.New(serviceName, uuid.NewString())
	return nil
}

// Execute runs the root command and exits non-zero on error.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "documind: %s\n", err)
		os.Exit(1)
	}
}
