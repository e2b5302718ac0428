package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgmerge/internal/version"
)

// NewVersionCmd returns the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the version number of pgmerge",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
