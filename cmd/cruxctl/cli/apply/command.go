// Package apply implements "cruxctl apply": runs one commit pipeline call
// against a local SQLite file, for scripting and manual testing.
package apply

import (
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/cruxsync/otp/cmd/cruxctl/common"
	"github.com/cruxsync/otp/internal/pipeline"
	"github.com/cruxsync/otp/internal/store"
	"github.com/cruxsync/otp/otp"
)

type applyFlags struct {
	dbPath string
	object string
	author string
	rev    int64
	opJSON string
}

// NewCommand creates the "apply" command.
func NewCommand(opts *common.RootOptions) *cobra.Command {
	flags := &applyFlags{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run one commit pipeline call against a local SQLite store",
		Long: "Example:\n" +
			"  cruxctl apply --db crux.db --object doc-1 --rev -1 \\\n" +
			"      --op '{\"type\":\"set\",\"path\":\"title\",\"value\":\"hello\"}'\n",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dbPath, "db", "crux.db", "Path to the local SQLite store")
	cmd.Flags().StringVar(&flags.object, "object", "", "Object id the operation targets (required)")
	cmd.Flags().StringVar(&flags.author, "author", "cli", "Author id attached to the submitted patch")
	cmd.Flags().Int64Var(&flags.rev, "rev", int64(otp.InitialRevID), "Revision this operation is based on")
	cmd.Flags().StringVar(&flags.opJSON, "op", "", "JSON-encoded operation, e.g. {\"type\":\"set\",\"path\":\"a\",\"value\":1} (required)")
	cmd.MarkFlagRequired("object")
	cmd.MarkFlagRequired("op")

	return cmd
}

func run(cmd *cobra.Command, flags *applyFlags) error {
	op, err := otp.UnmarshalOperation([]byte(flags.opJSON))
	if err != nil {
		return fmt.Errorf("invalid operation: %w", err)
	}

	s, err := store.OpenSQLiteStore(flags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	pl := pipeline.New(s, nil, logr.Discard())

	patch, err := pl.Submit(cmd.Context(), otp.ObjectType("document"), otp.ObjectId(flags.object),
		otp.AuthorId(flags.author), otp.RevId(flags.rev), op)
	if err != nil {
		return fmt.Errorf("submit operation: %w", err)
	}

	out, err := json.MarshalIndent(patch, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
