// Package pgmerge reconciles a PostgreSQL schema with tables declared as Go
// structs. It offers the plan and apply workflows of the pgmerge command for
// use from application code.
package pgmerge

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/pgschema/pgmerge/cmd/apply"
	planCmd "github.com/pgschema/pgmerge/cmd/plan"
	"github.com/pgschema/pgmerge/cmd/util"
	"github.com/pgschema/pgmerge/internal/catalog"
	"github.com/pgschema/pgmerge/internal/config"
	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/internal/plan"
	"github.com/pgschema/pgmerge/model"
)

// DatabaseConfig holds connection details for a PostgreSQL database.
type DatabaseConfig struct {
	Host            string   // Database server host (default: "localhost")
	Port            int      // Database server port (default: 5432)
	Database        string   // Database name
	User            string   // Database user
	Password        string   // Database password (optional)
	SSLMode         string   // SSL mode (default: "prefer")
	ApplicationName string   // Application name for the connection (default: "pgmerge")
	Schemas         []string // Schemas to reconcile (default: those of the models)
	AllowDrop       []string // Tables that may be rebuilt even when they hold rows
}

func (c DatabaseConfig) planConfig() *planCmd.PlanConfig {
	conn := &util.ConnectionConfig{
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.Database,
		User:            c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		ApplicationName: c.ApplicationName,
	}
	if conn.Host == "" {
		conn.Host = util.DefaultHost
	}
	if conn.Port == 0 {
		conn.Port = util.DefaultPort
	}
	if conn.SSLMode == "" {
		conn.SSLMode = util.DefaultSSLMode
	}
	if conn.ApplicationName == "" {
		conn.ApplicationName = util.DefaultApplicationName
	}
	return &planCmd.PlanConfig{
		Connection: conn,
		Config:     &config.Config{Schemas: c.Schemas, AllowDrop: c.AllowDrop},
		Schemas:    c.Schemas,
	}
}

// ApplyOptions configures how a migration is applied.
type ApplyOptions struct {
	AutoApprove bool      // Apply changes without prompting for approval
	NoColor     bool      // Disable colored output
	Quiet       bool      // Suppress plan display and progress messages
	DryRun      bool      // Print the plan and stop
	LockTimeout string    // Maximum time to wait for database locks (e.g. "30s")
	PlanFile    string    // Saved JSON plan the database must still match
	In          io.Reader // Prompt input (default: stdin)
	Out         io.Writer // Plan and progress output (default: stdout)
}

// Client runs plan and apply against one database.
type Client struct {
	db       DatabaseConfig
	provider Provider
}

// NewClient returns a client reconciling the models of provider with the
// database of dbConfig.
func NewClient(dbConfig DatabaseConfig, provider Provider) *Client {
	return &Client{db: dbConfig, provider: provider}
}

// Plan compares the models with the database and returns the migration plan.
// The database is not modified.
func (c *Client) Plan(ctx context.Context) (*Plan, error) {
	cfg := c.db.planConfig()
	conn, err := util.Connect(ctx, cfg.Connection)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return planCmd.GeneratePlan(ctx, planCmd.NewEngine(conn, cfg, c.provider))
}

// Apply plans and executes the migration.
func (c *Client) Apply(ctx context.Context, opts ApplyOptions) error {
	return apply.ApplyMigration(ctx, &apply.ApplyConfig{
		PlanConfig:  c.db.planConfig(),
		AutoApprove: opts.AutoApprove,
		NoColor:     opts.NoColor,
		Quiet:       opts.Quiet,
		DryRun:      opts.DryRun,
		LockTimeout: opts.LockTimeout,
		PlanFile:    opts.PlanFile,
		In:          opts.In,
		Out:         opts.Out,
	}, c.provider)
}

// NewEngine returns an engine reading the catalog through an open handle.
// The handle must come from a pgx or lib/pq driver. Without schemas only the
// schemas of the models are read.
func NewEngine(db *sql.DB, provider Provider, schemas ...string) *Engine {
	if len(schemas) == 0 {
		schemas = model.Schemas(provider)
	}
	return merge.NewEngine(provider, catalog.NewIntrospector(sqlx.NewDb(db, "pgx"), nil, schemas...))
}

// Reconcile computes the actions bringing the database of db into agreement
// with the models of provider.
func Reconcile(ctx context.Context, db *sql.DB, provider Provider, schemas ...string) ([]Action, error) {
	return NewEngine(db, provider, schemas...).Reconcile(ctx)
}

// Migrate reconciles and executes in one call. Validation errors stop it
// before any statement runs.
func Migrate(ctx context.Context, db *sql.DB, provider Provider, schemas ...string) error {
	engine := NewEngine(db, provider, schemas...)
	actions, err := engine.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile: %w", err)
	}
	if len(actions) == 0 {
		return nil
	}
	return engine.Execute(ctx, actions, db)
}

// LoadPlan reads a plan saved with the JSON output of the plan command.
func LoadPlan(data []byte) (*PlanJSON, error) {
	return plan.FromJSON(data)
}
