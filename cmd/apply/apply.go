package apply

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	planCmd "github.com/pgschema/pgmerge/cmd/plan"
	"github.com/pgschema/pgmerge/cmd/util"
	"github.com/pgschema/pgmerge/internal/fingerprint"
	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/internal/plan"
	"github.com/pgschema/pgmerge/model"
)

type applyFlags struct {
	planCmd.Flags
	autoApprove bool
	noColor     bool
	dryRun      bool
	lockTimeout string
	planFile    string
	scriptFile  string
}

// NewApplyCmd returns the apply command for the models of provider
func NewApplyCmd(provider model.Provider) *cobra.Command {
	var f applyFlags
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile a database with the models",
		Long: `Compare the declared models with the live catalog and execute the actions that reconcile them.
With --plan, the saved JSON plan must still match the models and the database.
With --script, a rendered SQL script is executed batch by batch instead.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := planCmd.LoadPlanConfig(cmd, &f.Flags)
			if err != nil {
				return err
			}

			lockTimeout := f.lockTimeout
			if lockTimeout == "" {
				lockTimeout = cfg.Config.LockTimeout
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return ApplyMigration(ctx, &ApplyConfig{
				PlanConfig:  cfg,
				AutoApprove: f.autoApprove,
				NoColor:     f.noColor,
				DryRun:      f.dryRun,
				LockTimeout: lockTimeout,
				PlanFile:    f.planFile,
				ScriptFile:  f.scriptFile,
				In:          cmd.InOrStdin(),
				Out:         cmd.OutOrStdout(),
			}, provider)
		},
	}

	f.Register(cmd)
	cmd.Flags().BoolVar(&f.autoApprove, "auto-approve", false, "Apply changes without prompting for approval")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show plan without applying changes")
	cmd.Flags().StringVar(&f.lockTimeout, "lock-timeout", "", "Maximum time to wait for database locks (e.g., 30s, 5m, 1h)")
	cmd.Flags().StringVar(&f.planFile, "plan", "", "Path to a JSON plan from 'pgmerge plan --output-json'")
	cmd.Flags().StringVar(&f.scriptFile, "script", "", "Path to a SQL script from 'pgmerge plan --output-sql' to execute instead")
	cmd.MarkFlagsMutuallyExclusive("plan", "script")
	return cmd
}

// ApplyConfig holds configuration for apply execution
type ApplyConfig struct {
	PlanConfig  *planCmd.PlanConfig
	AutoApprove bool
	NoColor     bool
	DryRun      bool
	Quiet       bool
	LockTimeout string
	PlanFile    string
	ScriptFile  string
	In          io.Reader
	Out         io.Writer
}

func (c *ApplyConfig) printf(format string, args ...any) {
	if !c.Quiet {
		fmt.Fprintf(c.Out, format, args...)
	}
}

// ApplyMigration connects, computes the plan and executes it.
func ApplyMigration(ctx context.Context, config *ApplyConfig, provider model.Provider) error {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.In == nil {
		config.In = os.Stdin
	}

	conn, err := util.Connect(ctx, config.PlanConfig.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := util.SetLockTimeout(ctx, conn, config.LockTimeout); err != nil {
		return err
	}

	if config.ScriptFile != "" {
		return applyScript(ctx, conn, config)
	}

	engine := planCmd.NewEngine(conn, config.PlanConfig, provider)
	migrationPlan, err := planCmd.GeneratePlan(ctx, engine)
	if err != nil {
		return err
	}

	if config.PlanFile != "" {
		if err := checkSavedPlan(config.PlanFile, migrationPlan); err != nil {
			return err
		}
	}

	if !migrationPlan.HasChanges() {
		config.printf("No changes to apply. Database schema is already up to date.\n")
		return nil
	}

	config.printf("%s", migrationPlan.HumanColored(!config.NoColor))

	if errs := migrationPlan.ValidationErrors(); len(errs) > 0 {
		return errs
	}

	if config.DryRun {
		return nil
	}

	if !config.AutoApprove {
		approved, err := confirm(config)
		if err != nil {
			return err
		}
		if !approved {
			config.printf("Apply cancelled.\n")
			return nil
		}
	}

	config.printf("\nApplying changes...\n")
	if err := engine.Execute(ctx, migrationPlan.Actions, conn); err != nil {
		return err
	}
	config.printf("Changes applied successfully!\n")
	return nil
}

// checkSavedPlan refuses a saved plan whose fingerprint does not match the
// current model and catalog.
func checkSavedPlan(path string, current *plan.Plan) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read plan file: %w", err)
	}
	saved, err := plan.FromJSON(data)
	if err != nil {
		return err
	}
	if err := fingerprint.Compare(saved.Fingerprint, current.Fingerprint); err != nil {
		return fmt.Errorf("refusing to apply %s: %w", path, err)
	}
	return nil
}

func applyScript(ctx context.Context, conn *sqlx.DB, config *ApplyConfig) error {
	data, err := os.ReadFile(config.ScriptFile)
	if err != nil {
		return fmt.Errorf("failed to read script file: %w", err)
	}
	script := string(data)
	batches, err := merge.SplitScript(script)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		config.printf("No SQL statements to execute.\n")
		return nil
	}

	config.printf("%s", script)
	if config.DryRun {
		return nil
	}
	if !config.AutoApprove {
		approved, err := confirm(config)
		if err != nil {
			return err
		}
		if !approved {
			config.printf("Apply cancelled.\n")
			return nil
		}
	}

	config.printf("\nApplying %d batches...\n", len(batches))
	if err := merge.NewExecutor(conn).ExecScript(ctx, script); err != nil {
		return err
	}
	config.printf("Changes applied successfully!\n")
	return nil
}

func confirm(config *ApplyConfig) (bool, error) {
	fmt.Fprint(config.Out, "\nDo you want to apply these changes? (yes/no): ")
	reader := bufio.NewReader(config.In)
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes" || response == "y", nil
}
