package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildVersion is overridden at link time with -ldflags.
var buildVersion = "dev"

// NewCommand creates the "version" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of cruxctl",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("cruxctl", buildVersion)
			return nil
		},
	}
}
