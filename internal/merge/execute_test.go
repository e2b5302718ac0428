package merge

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/pgmerge/model"
	"github.com/pgschema/pgmerge/schema"
)

// recorder is an Execer that records statements and fails on demand.
type recorder struct {
	statements []string
	failOn     string
}

func (r *recorder) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return nil, errors.New("relation already exists")
	}
	r.statements = append(r.statements, query)
	return driverResult{}, nil
}

type driverResult struct{}

func (driverResult) LastInsertId() (int64, error) { return 0, nil }
func (driverResult) RowsAffected() (int64, error) { return 0, nil }

type staticIntrospector struct {
	schemas []*schema.Schema
	calls   int
}

func (s *staticIntrospector) Actual(context.Context) (*schema.Schema, error) {
	i := s.calls
	if i >= len(s.schemas) {
		i = len(s.schemas) - 1
	}
	s.calls++
	return s.schemas[i], nil
}

type badKey struct {
	model.Record[int64]
	Code string `pgmerge:"unique"`
}

func TestRenderScript(t *testing.T) {
	actions := Diff(desiredOf(t, Organization{}, Customer{}), schema.New())
	script := RenderScript(actions)

	if got := strings.Count(script, BatchSeparator+"\n"); got != len(actions) {
		t.Errorf("expected %d separators, got %d", len(actions), got)
	}
	if !strings.HasPrefix(script, "-- Create Table: public.customer\nCREATE TABLE public.customer (") {
		t.Errorf("unexpected script start:\n%s", script)
	}
	if !strings.Contains(script, "REFERENCES public.organization (id);\n"+BatchSeparator) {
		t.Errorf("expected terminated foreign key statement:\n%s", script)
	}
}

func TestSplitScriptRoundTrip(t *testing.T) {
	actions := Diff(desiredOf(t, Organization{}, customerWithEmail{}), populated(desiredOf(t, Organization{}, Customer{})))
	batches, err := SplitScript(RenderScript(actions))
	if err != nil {
		t.Fatalf("SplitScript failed: %v", err)
	}
	if len(batches) != len(actions) {
		t.Fatalf("expected %d batches, got %d", len(actions), len(batches))
	}
	for i, a := range actions {
		if len(batches[i]) != len(a.Commands()) {
			t.Errorf("batch %d: expected %d statements, got %d", i, len(a.Commands()), len(batches[i]))
		}
	}
}

func TestExecutorRunsStatementsInOrder(t *testing.T) {
	actions := Diff(desiredOf(t, Organization{}, Customer{}), schema.New())
	rec := &recorder{}

	if err := NewExecutor(rec).Run(context.Background(), actions); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var want []string
	for _, a := range actions {
		want = append(want, a.Commands()...)
	}
	if diff := cmp.Diff(want, rec.statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestExecutorRejectsInvalidBatch(t *testing.T) {
	actions := Diff(desiredOf(t, Organization{}, badKey{}), schema.New())
	rec := &recorder{}

	err := NewExecutor(rec).Run(context.Background(), actions)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(verrs) != 1 || !strings.Contains(verrs[0].Message, "unbounded") {
		t.Errorf("unexpected validation errors: %v", verrs)
	}
	if len(rec.statements) != 0 {
		t.Errorf("expected no statements, got %v", rec.statements)
	}
	if !strings.Contains(err.Error(), "1 validation error(s)") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestExecutorReportsFailingStatement(t *testing.T) {
	actions := Diff(desiredOf(t, Organization{}, Customer{}), schema.New())
	rec := &recorder{failOn: "CREATE TABLE public.organization"}

	err := NewExecutor(rec).Run(context.Background(), actions)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Action.String() != "Create Table: public.organization" {
		t.Errorf("unexpected action %s", execErr.Action)
	}
	if !strings.HasPrefix(execErr.SQL, "CREATE TABLE public.organization") {
		t.Errorf("unexpected SQL %s", execErr.SQL)
	}
	if len(rec.statements) != 1 {
		t.Errorf("expected only the first table to be created, got %v", rec.statements)
	}
}

func TestEngineExecuteCreatesDeferredKeys(t *testing.T) {
	scope := model.NewScope("public", Organization{}, Customer{})
	// After the run the catalog has both tables but no foreign key.
	after := desiredOf(t, Organization{}, Customer{})
	after.Table(schema.NewTableIdentity("public", "customer")).ForeignKeys = nil

	intro := &staticIntrospector{schemas: []*schema.Schema{schema.New(), after}}
	engine := NewEngine(scope, intro)

	actions, err := engine.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	tablesOnly := actions[:2]

	rec := &recorder{}
	if err := engine.Execute(context.Background(), tablesOnly, rec); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	last := rec.statements[len(rec.statements)-1]
	if !strings.HasPrefix(last, "ALTER TABLE public.customer ADD CONSTRAINT fk_customer_organization_id") {
		t.Errorf("expected deferred foreign key last, got %s", last)
	}
	if intro.calls != 2 {
		t.Errorf("expected catalog to be read again after execution, got %d reads", intro.calls)
	}
}

func TestEngineValidateAndRender(t *testing.T) {
	engine := NewEngine(model.NewScope("public", Organization{}), &staticIntrospector{schemas: []*schema.Schema{schema.New()}})
	c, err := engine.Compare(context.Background())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(engine.Validate(c.Actions)) != 0 {
		t.Error("expected valid actions")
	}
	if !strings.Contains(engine.RenderScript(c.Actions), "CREATE TABLE public.organization") {
		t.Error("expected rendered create table")
	}
	if !IsValid(c.Actions[0]) {
		t.Error("IsValid should agree with Validate")
	}
}

func TestValidationRules(t *testing.T) {
	type nullablePK struct {
		model.Record[int64]
		Code *string `pgmerge:"pk;size:5"`
	}
	type badDefault struct {
		model.Record[int64]
		Created string `pgmerge:"size:20;default:now("`
	}

	tests := []struct {
		name    string
		model   any
		message string
	}{
		{"unbounded unique", badKey{}, "unbounded"},
		{"nullable primary key", nullablePK{}, "nullable type cannot be a primary key"},
		{"invalid default", badDefault{}, "invalid default expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(Diff(desiredOf(t, tt.model), schema.New()))
			if len(errs) != 1 || !strings.Contains(errs[0].Message, tt.message) {
				t.Errorf("expected one error containing %q, got %v", tt.message, errs)
			}
		})
	}
}

func TestValidateRefusesTransplantWithDependents(t *testing.T) {
	actual := populated(desiredOf(t, Organization{}, Customer{}))
	actual.Table(schema.NewTableIdentity("public", "customer")).Dependents = []string{"trigger audit_customer"}

	actions := Diff(desiredOf(t, Organization{}, customerWithEmail{}), actual)
	errs := Validate(actions)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "trigger audit_customer") {
		t.Fatalf("expected one dependents error, got %v", errs)
	}
	if errs[0].Action.Kind() != KindAddColumns {
		t.Errorf("expected error on the transplant, got %s", errs[0].Action)
	}
}
