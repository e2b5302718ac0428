package plan

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/internal/version"
	"github.com/pgschema/pgmerge/model"
	"github.com/pgschema/pgmerge/schema"
)

type Warehouse struct {
	model.Record[int64]
	Code string `pgmerge:"size:8;unique"`
}

type Bin struct {
	model.Record[int64]
	WarehouseID int64  `pgmerge:"references:Warehouse"`
	Label       string `pgmerge:"size:20"`
}

type binWithNote struct {
	model.Record[int64]
	WarehouseID int64   `pgmerge:"references:Warehouse"`
	Label       string  `pgmerge:"size:20"`
	Note        *string `pgmerge:"size:200"`
}

func (binWithNote) ModelOptions() model.Options { return model.Options{Name: "bin"} }

func comparison(t *testing.T, actual *schema.Schema, models ...any) *merge.Comparison {
	t.Helper()
	desired, err := model.NewScope("public", models...).Desired()
	if err != nil {
		t.Fatalf("Desired failed: %v", err)
	}
	return &merge.Comparison{Desired: desired, Actual: actual, Actions: merge.Diff(desired, actual)}
}

func newPlan(t *testing.T, actual *schema.Schema, models ...any) *Plan {
	t.Helper()
	p, err := NewPlan(comparison(t, actual, models...))
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}
	return p
}

func TestNewPlan(t *testing.T) {
	p := newPlan(t, schema.New(), Warehouse{}, Bin{})

	if !p.HasChanges() {
		t.Error("Plan should have actions")
	}
	if p.CreatedAt.IsZero() {
		t.Error("Plan should have a creation timestamp")
	}
	if p.Fingerprint == nil || p.Fingerprint.Hash == "" {
		t.Error("Plan should carry a fingerprint")
	}
}

func TestPlanHumanOutput(t *testing.T) {
	p := newPlan(t, schema.New(), Warehouse{}, Bin{})
	out := p.HumanColored(false)

	for _, want := range []string{
		"Plan: 3 to add, 0 to modify, 0 to drop.",
		"tables: 2 to add, 0 to modify, 0 to drop",
		"foreign_keys: 1 to add, 0 to modify, 0 to drop",
		"  + Create Table: public.bin\n  + Create Table: public.warehouse\n  + Create ForeignKey: fk_bin_warehouse_id\n",
		"DDL to be executed:",
		"CREATE TABLE public.warehouse (",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "columns:") {
		t.Errorf("types without changes should be omitted:\n%s", out)
	}
}

func TestPlanNoChanges(t *testing.T) {
	desired, err := model.NewScope("public", Warehouse{}).Desired()
	if err != nil {
		t.Fatal(err)
	}
	p := newPlan(t, desired, Warehouse{})

	if got := p.HumanColored(false); got != "No changes detected.\n" {
		t.Errorf("unexpected output %q", got)
	}
	if p.ToSQL() != "" {
		t.Error("ToSQL should be empty without changes")
	}
}

func TestPlanToJSON(t *testing.T) {
	actual, err := model.NewScope("public", Warehouse{}, Bin{}).Desired()
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range actual.Tables {
		table.HasRows = true
	}
	p := newPlan(t, actual, Warehouse{}, binWithNote{})

	out, err := p.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	parsed, err := FromJSON([]byte(out))
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if parsed.Version != version.PlanFormat() || parsed.PgmergeVersion != version.App() {
		t.Errorf("unexpected versions %q %q", parsed.Version, parsed.PgmergeVersion)
	}
	if parsed.Fingerprint.Hash != p.Fingerprint.Hash {
		t.Error("fingerprint should survive the round trip")
	}

	var kinds []string
	for _, c := range parsed.ObjectChanges {
		kinds = append(kinds, c.Type+"/"+c.Action+"/"+c.Address)
	}
	want := []string{"columns/create/public.bin", "foreign_keys/create/fk_bin_warehouse_id"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("object changes mismatch (-want +got):\n%s", diff)
	}
	if len(parsed.ObjectChanges[0].SQL) == 0 {
		t.Error("object changes should carry their SQL")
	}
	if parsed.Summary.Total != 2 || parsed.Summary.Invalid != 0 {
		t.Errorf("unexpected summary %+v", parsed.Summary)
	}
}

func TestPlanReportsValidationErrors(t *testing.T) {
	type bucket struct {
		model.Record[int64]
		Name string `pgmerge:"unique"`
	}
	p := newPlan(t, schema.New(), bucket{})

	if !strings.Contains(p.HumanColored(false), "Validation errors:") {
		t.Error("human output should list validation errors")
	}
	out, err := p.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var parsed PlanJSON
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Summary.Invalid != 1 || len(parsed.ObjectChanges[0].ValidationErrors) != 1 {
		t.Errorf("expected one invalid action, got %+v", parsed.Summary)
	}
}

func TestFromJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "plan"},
		{"wrong version", `{"version":"0","fingerprint":{"hash":"x"}}`},
		{"no fingerprint", `{"version":"` + version.PlanFormat() + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromJSON([]byte(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
