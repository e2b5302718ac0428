package merge

import (
	"context"
	"fmt"

	"github.com/pgschema/pgmerge/internal/logger"
	"github.com/pgschema/pgmerge/model"
	"github.com/pgschema/pgmerge/schema"
)

// Introspector supplies the actual schema.
type Introspector interface {
	Actual(ctx context.Context) (*schema.Schema, error)
}

// Comparison is the outcome of one reconciliation: both schemas and the
// actions between them.
type Comparison struct {
	Desired *schema.Schema
	Actual  *schema.Schema
	Actions []Action
}

// Engine ties a model provider to a live catalog.
type Engine struct {
	provider     model.Provider
	introspector Introspector
}

// NewEngine returns an engine. Each call to Reconcile reads both schemas
// fresh; the engine keeps no state between runs.
func NewEngine(provider model.Provider, introspector Introspector) *Engine {
	return &Engine{provider: provider, introspector: introspector}
}

// Compare reads both schemas and diffs them.
func (e *Engine) Compare(ctx context.Context) (*Comparison, error) {
	desired, err := e.provider.Desired()
	if err != nil {
		return nil, fmt.Errorf("failed to extract desired schema: %w", err)
	}
	actual, err := e.introspector.Actual(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read actual schema: %w", err)
	}

	actions := Diff(desired, actual)
	logger.Get().Debug("Reconciled schema",
		"desired_tables", len(desired.Tables),
		"actual_tables", len(actual.Tables),
		"actions", len(actions))
	return &Comparison{Desired: desired, Actual: actual, Actions: actions}, nil
}

// Reconcile returns the ordered actions that bring the database in line
// with the model.
func (e *Engine) Reconcile(ctx context.Context) ([]Action, error) {
	c, err := e.Compare(ctx)
	if err != nil {
		return nil, err
	}
	return c.Actions, nil
}

// Validate returns every validation error of actions.
func (e *Engine) Validate(actions []Action) ValidationErrors {
	return Validate(actions)
}

// RenderScript renders actions as a script.
func (e *Engine) RenderScript(actions []Action) string {
	return RenderScript(actions)
}

// Execute validates and runs actions, then creates any declared foreign key
// the catalog still lacks afterwards.
func (e *Engine) Execute(ctx context.Context, actions []Action, conn Execer) error {
	exec := NewExecutor(conn)
	if err := exec.Run(ctx, actions); err != nil {
		return err
	}

	desired, err := e.provider.Desired()
	if err != nil {
		return fmt.Errorf("failed to extract desired schema: %w", err)
	}
	after, err := e.introspector.Actual(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema after execution: %w", err)
	}

	missing := missingForeignKeys(desired, after)
	if len(missing) > 0 {
		logger.Get().Debug("Creating deferred foreign keys", "count", len(missing))
	}
	return exec.Run(ctx, missing)
}
