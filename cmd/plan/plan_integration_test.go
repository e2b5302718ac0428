package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pgschema/pgmerge/internal/plan"
	"github.com/pgschema/pgmerge/model"
	"github.com/pgschema/pgmerge/testutil"
)

type Aisle struct {
	model.Record[int64]
	Code string `pgmerge:"size:4;unique"`
}

type shelfInAisle struct {
	model.Record[int64]
	AisleID *int64 `pgmerge:"references:Aisle"`
	Label   string `pgmerge:"size:20"`
}

func (shelfInAisle) ModelOptions() model.Options { return model.Options{Name: "shelf"} }

func TestPlanCommand_DatabaseIntegration(t *testing.T) {
	ctx := context.Background()
	container := testutil.SetupPostgresContainer(ctx, t)

	container.MustExec(ctx, t,
		`CREATE TABLE shelf (id bigint GENERATED ALWAYS AS IDENTITY, label character varying(20) NOT NULL, CONSTRAINT pk_shelf PRIMARY KEY (id))`,
		`INSERT INTO shelf (label) VALUES ('top'), ('bottom')`,
		`CREATE TABLE legacy (id integer)`,
	)

	tmpDir := t.TempDir()
	jsonFile := filepath.Join(tmpDir, "plan.json")

	var stdout bytes.Buffer
	cmd := NewPlanCmd(model.NewScope("public", Aisle{}, shelfInAisle{}))
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"--host", container.Host,
		"--port", strconv.Itoa(container.Port),
		"--db", "testdb",
		"--user", "testuser",
		"--password", "testpass",
		"--sslmode", "disable",
		"--schema", "public",
		"--output-human", "stdout",
		"--output-json", jsonFile,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("plan command failed: %v", err)
	}

	human := stdout.String()
	for _, want := range []string{
		"- Delete Table: public.legacy",
		"+ Create Table: public.aisle",
		"+ Create Column: public.shelf",
		"+ Create ForeignKey: fk_shelf_aisle_id",
	} {
		if !strings.Contains(human, want) {
			t.Errorf("human output should contain %q:\n%s", want, human)
		}
	}

	data, err := os.ReadFile(jsonFile)
	if err != nil {
		t.Fatalf("failed to read JSON plan: %v", err)
	}
	parsed, err := plan.FromJSON(data)
	if err != nil {
		t.Fatalf("invalid JSON plan: %v", err)
	}
	if parsed.Summary.Total != 4 {
		raw, _ := json.MarshalIndent(parsed.ObjectChanges, "", "  ")
		t.Errorf("expected 4 changes, got %d:\n%s", parsed.Summary.Total, raw)
	}

	// plan never executes anything
	var tables int
	if err := container.DB.GetContext(ctx, &tables, `SELECT count(*) FROM pg_tables WHERE schemaname = 'public'`); err != nil {
		t.Fatal(err)
	}
	if tables != 2 {
		t.Errorf("expected the catalog to be untouched, found %d tables", tables)
	}
}
