// Package cli assembles the cruxctl command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/cruxsync/otp/cmd/cruxctl/cli/apply"
	"github.com/cruxsync/otp/cmd/cruxctl/cli/serve"
	"github.com/cruxsync/otp/cmd/cruxctl/cli/version"
	"github.com/cruxsync/otp/cmd/cruxctl/common"
)

// NewRootCommand creates the root command for cruxctl.
func NewRootCommand() *cobra.Command {
	opts := &common.RootOptions{}

	cmd := &cobra.Command{
		Use:   "cruxctl",
		Short: "Operate a collaborative JSON document engine",
		Long: "cruxctl runs and talks to the collaborative JSON document engine.\n\n" +
			"  cruxctl serve --config crux.yaml\n" +
			"  cruxctl apply --object doc-1 --rev -1 --op '{\"type\":\"set\",\"path\":\"title\",\"value\":\"hello\"}'\n",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(version.NewCommand())
	cmd.AddCommand(serve.NewCommand(opts))
	cmd.AddCommand(apply.NewCommand(opts))

	return cmd
}
