package apply

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	planCmd "github.com/pgschema/pgmerge/cmd/plan"
	"github.com/pgschema/pgmerge/cmd/util"
	"github.com/pgschema/pgmerge/internal/config"
	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/model"
	"github.com/pgschema/pgmerge/testutil"
)

type Crate struct {
	model.Record[int64]
	PalletID *int64 `pgmerge:"references:Pallet"`
	Weight   int32
}

func planConfig(container *testutil.ContainerInfo) *planCmd.PlanConfig {
	return &planCmd.PlanConfig{
		Connection: &util.ConnectionConfig{
			Host:     container.Host,
			Port:     container.Port,
			Database: "testdb",
			User:     "testuser",
			Password: "testpass",
			SSLMode:  "disable",
		},
		Config:  &config.Config{},
		Schemas: []string{"public"},
	}
}

func TestApplyMigration_Integration(t *testing.T) {
	ctx := context.Background()
	container := testutil.SetupPostgresContainer(ctx, t)
	scope := model.NewScope("public", Pallet{}, Crate{})

	t.Run("dry run changes nothing", func(t *testing.T) {
		var out bytes.Buffer
		err := ApplyMigration(ctx, &ApplyConfig{PlanConfig: planConfig(container), DryRun: true, NoColor: true, Out: &out}, scope)
		if err != nil {
			t.Fatalf("dry run failed: %v", err)
		}
		if !strings.Contains(out.String(), "Plan: 3 to add") {
			t.Errorf("expected the plan to be printed:\n%s", out.String())
		}
		var tables int
		if err := container.DB.GetContext(ctx, &tables, `SELECT count(*) FROM pg_tables WHERE schemaname = 'public'`); err != nil {
			t.Fatal(err)
		}
		if tables != 0 {
			t.Errorf("dry run created %d tables", tables)
		}
	})

	t.Run("declined prompt changes nothing", func(t *testing.T) {
		var out bytes.Buffer
		err := ApplyMigration(ctx, &ApplyConfig{PlanConfig: planConfig(container), In: strings.NewReader("no\n"), Out: &out}, scope)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if !strings.Contains(out.String(), "Apply cancelled.") {
			t.Errorf("expected cancellation:\n%s", out.String())
		}
	})

	t.Run("saved plan is applied", func(t *testing.T) {
		engine := planCmd.NewEngine(container.DB, planConfig(container), scope)
		saved, err := planCmd.GeneratePlan(ctx, engine)
		if err != nil {
			t.Fatal(err)
		}
		data, err := saved.ToJSON()
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(t.TempDir(), "plan.json")
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}

		var out bytes.Buffer
		err = ApplyMigration(ctx, &ApplyConfig{
			PlanConfig:  planConfig(container),
			AutoApprove: true,
			LockTimeout: "5s",
			PlanFile:    path,
			Out:         &out,
		}, scope)
		if err != nil {
			t.Fatalf("apply failed: %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "Changes applied successfully!") {
			t.Errorf("unexpected output:\n%s", out.String())
		}

		// The saved plan no longer matches once it has been applied.
		err = ApplyMigration(ctx, &ApplyConfig{PlanConfig: planConfig(container), AutoApprove: true, PlanFile: path, Out: &out}, scope)
		if err == nil || !strings.Contains(err.Error(), "fingerprint mismatch") {
			t.Errorf("expected a stale plan to be refused, got %v", err)
		}
	})

	t.Run("up to date", func(t *testing.T) {
		var out bytes.Buffer
		if err := ApplyMigration(ctx, &ApplyConfig{PlanConfig: planConfig(container), Out: &out}, scope); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if !strings.Contains(out.String(), "already up to date") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("invalid plan is refused", func(t *testing.T) {
		type crateLabel struct {
			model.Record[int64]
			Label string `pgmerge:"unique"`
		}
		var out bytes.Buffer
		err := ApplyMigration(ctx, &ApplyConfig{PlanConfig: planConfig(container), AutoApprove: true, Out: &out},
			model.NewScope("public", Pallet{}, Crate{}, crateLabel{}))
		var verrs merge.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) != 1 {
			t.Fatalf("expected one validation error, got %v", err)
		}
		var exists bool
		if err := container.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM pg_tables WHERE tablename = 'crate_label')`); err != nil {
			t.Fatal(err)
		}
		if exists {
			t.Error("no statement should run when the plan is invalid")
		}
	})

	t.Run("script", func(t *testing.T) {
		script := "-- add a scratch table\nCREATE TABLE public.scratch (id integer);\n" + merge.BatchSeparator + "\n\nINSERT INTO public.scratch VALUES (1);\nINSERT INTO public.scratch VALUES (2);\n" + merge.BatchSeparator + "\n"
		path := filepath.Join(t.TempDir(), "script.sql")
		if err := os.WriteFile(path, []byte(script), 0644); err != nil {
			t.Fatal(err)
		}

		var out bytes.Buffer
		err := ApplyMigration(ctx, &ApplyConfig{PlanConfig: planConfig(container), AutoApprove: true, ScriptFile: path, Out: &out}, nil)
		if err != nil {
			t.Fatalf("script apply failed: %v", err)
		}
		if !strings.Contains(out.String(), "Applying 2 batches") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
		var rows int
		if err := container.DB.GetContext(ctx, &rows, `SELECT count(*) FROM public.scratch`); err != nil {
			t.Fatal(err)
		}
		if rows != 2 {
			t.Errorf("expected 2 rows, got %d", rows)
		}
	})
}
