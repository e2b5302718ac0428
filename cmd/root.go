// Package cmd is the pgmerge command line. Applications embed it with their
// own model scope:
//
//	func main() {
//		cmd.Execute(model.NewScope("public", Customer{}, Order{}))
//	}
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pgschema/pgmerge/cmd/apply"
	"github.com/pgschema/pgmerge/cmd/plan"
	"github.com/pgschema/pgmerge/internal/logger"
	"github.com/pgschema/pgmerge/internal/version"
	"github.com/pgschema/pgmerge/model"
)

// NewRootCmd returns the root command reconciling the models of provider
func NewRootCmd(provider model.Provider) *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "pgmerge",
		Short: "Reconcile a PostgreSQL schema with Go model declarations",
		Long: fmt.Sprintf(`pgmerge compares tables declared as Go structs with a live PostgreSQL
catalog and creates, alters or drops tables, columns and foreign keys so the
database matches the models.

Version: %s

Commands:
  plan    Show the changes needed
  apply   Apply the changes

Use "pgmerge [command] --help" for more information about a command.`, version.String()),
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(cmd.ErrOrStderr(), debug)
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.AddCommand(plan.NewPlanCmd(provider))
	root.AddCommand(apply.NewApplyCmd(provider))
	root.AddCommand(NewVersionCmd())
	return root
}

// loadDotenv reads .env from the working directory. Variables already set
// in the environment win; a missing file is not an error.
func loadDotenv() {
	_ = godotenv.Load()
}

// Execute runs the command line and exits non-zero on failure
func Execute(provider model.Provider) {
	loadDotenv()
	if err := NewRootCmd(provider).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
