// Package version implements the "version" subcommand.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chunkcast/chunkcast/internal/buildinfo"
)

// Command returns a cobra command that prints build metadata.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print chunkcast version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "chunkcast %s (built %s)\n", buildinfo.Version, buildinfo.BuildDate)
			return nil
		},
	}
}
