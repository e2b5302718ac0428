package pgmerge

import (
	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/internal/plan"
	"github.com/pgschema/pgmerge/model"
)

// Re-export important types for external consumption

// Plan is a migration plan: the ordered actions and the fingerprint of the
// state they were computed from.
type Plan = plan.Plan

// PlanJSON is the serialized form of a plan.
type PlanJSON = plan.PlanJSON

// Engine computes and executes actions for one model scope.
type Engine = merge.Engine

// Action is one schema change.
type Action = merge.Action

// ValidationErrors is returned when an action is unsafe to run.
type ValidationErrors = merge.ValidationErrors

// ExecError reports the statement that failed during execution.
type ExecError = merge.ExecError

// Provider supplies the desired schema.
type Provider = model.Provider

// Scope is the set of registered model types.
type Scope = model.Scope

// Options is the type-level metadata a model returns from ModelOptions.
type Options = model.Options

// UniqueKey is a multi-column unique constraint.
type UniqueKey = model.UniqueKey

// ForeignKey declares a reference to another model.
type ForeignKey = model.ForeignKey

// NewScope returns a scope of models whose tables default to defaultSchema.
func NewScope(defaultSchema string, models ...any) *Scope {
	return model.NewScope(defaultSchema, models...)
}
