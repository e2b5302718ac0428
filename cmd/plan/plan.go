package plan

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/pgschema/pgmerge/cmd/util"
	"github.com/pgschema/pgmerge/internal/catalog"
	"github.com/pgschema/pgmerge/internal/config"
	"github.com/pgschema/pgmerge/internal/ignore"
	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/internal/plan"
	"github.com/pgschema/pgmerge/model"
)

// Flags are the options shared by plan and apply
type Flags struct {
	Connection util.ConnectionFlags
	ConfigFile string
	Schemas    []string
}

// Register adds the shared flags to cmd
func (f *Flags) Register(cmd *cobra.Command) {
	f.Connection.Register(cmd)
	cmd.Flags().StringVar(&f.ConfigFile, "config", "", "Path to the config file (default: "+config.DefaultFile+" if present)")
	cmd.Flags().StringSliceVar(&f.Schemas, "schema", nil, "Schemas to reconcile (default: the schemas of the models)")
}

type planFlags struct {
	Flags
	outputHuman string
	outputJSON  string
	outputSQL   string
	noColor     bool
}

// NewPlanCmd returns the plan command for the models of provider
func NewPlanCmd(provider model.Provider) *cobra.Command {
	var f planFlags
	cmd := &cobra.Command{
		Use:          "plan",
		Short:        "Show the changes needed to bring a database in line with the models",
		Long:         "Compare the declared models with the live catalog and print the ordered actions that would reconcile them, with their SQL and any validation errors. Nothing is executed.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, &f, provider)
		},
	}

	f.Register(cmd)
	cmd.Flags().StringVar(&f.outputHuman, "output-human", "", "Output human-readable format to stdout or file path")
	cmd.Flags().StringVar(&f.outputJSON, "output-json", "", "Output JSON format to stdout or file path")
	cmd.Flags().StringVar(&f.outputSQL, "output-sql", "", "Output SQL format to stdout or file path")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	return cmd
}

func runPlan(cmd *cobra.Command, f *planFlags, provider model.Provider) error {
	outputs, err := determineOutputs(f)
	if err != nil {
		return err
	}

	cfg, err := LoadPlanConfig(cmd, &f.Flags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := util.Connect(ctx, cfg.Connection)
	if err != nil {
		return err
	}
	defer db.Close()

	migrationPlan, err := GeneratePlan(ctx, NewEngine(db, cfg, provider))
	if err != nil {
		return err
	}

	for _, output := range outputs {
		if err := processOutput(cmd, migrationPlan, output, f.noColor); err != nil {
			return err
		}
	}
	return nil
}

// PlanConfig holds configuration for plan generation
type PlanConfig struct {
	Connection *util.ConnectionConfig
	Config     *config.Config
	Ignore     *ignore.Config
	Schemas    []string
}

// LoadPlanConfig reads the config file and the ignore file and resolves the
// connection settings. --schema overrides the schemas of the config file.
func LoadPlanConfig(cmd *cobra.Command, f *Flags) (*PlanConfig, error) {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return nil, err
	}

	ignoreConfig, err := ignore.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ignore.FileName, err)
	}

	conn, err := f.Connection.Resolve(cmd, cfg.Connection)
	if err != nil {
		return nil, err
	}

	schemas := cfg.Schemas
	if len(f.Schemas) > 0 {
		schemas = f.Schemas
	}

	return &PlanConfig{
		Connection: conn,
		Config:     cfg,
		Ignore:     cfg.Ignore.Merge(ignoreConfig),
		Schemas:    schemas,
	}, nil
}

// NewEngine returns an engine reading the catalog of db.
// Without configured schemas only the schemas of the models are read, so
// tables in other schemas are never dropped.
func NewEngine(db sqlx.QueryerContext, cfg *PlanConfig, provider model.Provider) *merge.Engine {
	provider = cfg.Config.Provider(provider)
	schemas := cfg.Schemas
	if len(schemas) == 0 {
		schemas = model.Schemas(provider)
	}
	return merge.NewEngine(provider, catalog.NewIntrospector(db, cfg.Ignore, schemas...))
}

// GeneratePlan compares the models with the catalog and returns the plan
func GeneratePlan(ctx context.Context, engine *merge.Engine) (*plan.Plan, error) {
	comparison, err := engine.Compare(ctx)
	if err != nil {
		return nil, err
	}
	return plan.NewPlan(comparison)
}

// outputSpec represents a single output specification
type outputSpec struct {
	format string // "human", "json", or "sql"
	target string // "stdout" or file path
}

// determineOutputs parses the output flags and returns the list of outputs to generate
func determineOutputs(f *planFlags) ([]outputSpec, error) {
	var outputs []outputSpec
	stdoutCount := 0

	for _, o := range []outputSpec{
		{format: "human", target: f.outputHuman},
		{format: "json", target: f.outputJSON},
		{format: "sql", target: f.outputSQL},
	} {
		if o.target == "" {
			continue
		}
		if o.target == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, o)
	}

	if stdoutCount > 1 {
		return nil, fmt.Errorf("only one output format can use stdout")
	}

	// Default behavior: if no outputs specified, output human to stdout
	if len(outputs) == 0 {
		outputs = append(outputs, outputSpec{format: "human", target: "stdout"})
	}

	return outputs, nil
}

// processOutput writes the plan in the specified format to the target destination
func processOutput(cmd *cobra.Command, migrationPlan *plan.Plan, output outputSpec, noColor bool) error {
	var content string
	var err error

	switch output.format {
	case "human":
		// Color only goes to a terminal, never into files
		content = migrationPlan.HumanColored(output.target == "stdout" && !noColor)
	case "json":
		content, err = migrationPlan.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to generate JSON output: %w", err)
		}
		content += "\n"
	case "sql":
		content = migrationPlan.ToSQL()
	default:
		return fmt.Errorf("unknown output format: %s", output.format)
	}

	if output.target == "stdout" {
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}
	if err := os.WriteFile(output.target, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s output to %s: %w", output.format, output.target, err)
	}
	return nil
}
