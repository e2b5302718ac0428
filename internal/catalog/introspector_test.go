package catalog

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/pgmerge/internal/ignore"
	"github.com/pgschema/pgmerge/schema"
	"github.com/pgschema/pgmerge/testutil"
)

func TestIntrospectEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	pg := testutil.SetupPostgresContainer(ctx, t)

	actual, err := NewIntrospector(pg.DB, nil).Actual(ctx)
	if err != nil {
		t.Fatalf("Actual failed: %v", err)
	}
	if len(actual.Tables) != 0 {
		t.Errorf("expected no tables, got %d", len(actual.Tables))
	}
}

func TestIntrospectTables(t *testing.T) {
	ctx := context.Background()
	pg := testutil.SetupPostgresContainer(ctx, t)

	pg.MustExec(ctx, t,
		`CREATE TABLE organization (
			id bigint GENERATED ALWAYS AS IDENTITY NOT NULL,
			name character varying(50) NOT NULL,
			CONSTRAINT pk_organization PRIMARY KEY (id),
			CONSTRAINT u_organization_name UNIQUE (name)
		)`,
		`CREATE TABLE customer (
			id bigint GENERATED ALWAYS AS IDENTITY NOT NULL,
			organization_id bigint NOT NULL,
			balance numeric(10,2) NOT NULL DEFAULT 0,
			notes text,
			total numeric(10,2) GENERATED ALWAYS AS (balance * 2) STORED,
			CONSTRAINT pk_customer PRIMARY KEY (id),
			CONSTRAINT fk_customer_organization_id FOREIGN KEY (organization_id)
				REFERENCES organization (id) ON DELETE CASCADE
		)`,
		`INSERT INTO organization (name) VALUES ('acme')`,
		`CREATE TABLE schema_migrations (version bigint)`,
		`CREATE TABLE pgmerge_staging_customer (id bigint)`,
		`CREATE TABLE audit_log (id bigint)`,
		`CREATE INDEX ix_customer_notes ON customer (notes)`,
		`CREATE VIEW customer_notes AS SELECT id, notes FROM customer`,
	)

	cfg := &ignore.Config{Tables: []string{"audit_*"}}
	actual, err := NewIntrospector(pg.DB, cfg, "public").Actual(ctx)
	if err != nil {
		t.Fatalf("Actual failed: %v", err)
	}

	var names []string
	for _, table := range actual.SortedTables() {
		names = append(names, table.Identity.String())
	}
	if diff := cmp.Diff([]string{"public.customer", "public.organization"}, names); diff != "" {
		t.Fatalf("tables mismatch (-want +got):\n%s", diff)
	}

	org := actual.Table(schema.NewTableIdentity("public", "organization"))
	if !org.HasRows {
		t.Error("organization should report rows")
	}
	if org.ObjectID == 0 {
		t.Error("expected object id")
	}
	if diff := cmp.Diff(&schema.PrimaryKey{Name: "pk_organization", Columns: []string{"id"}}, org.PrimaryKey); diff != "" {
		t.Errorf("primary key mismatch (-want +got):\n%s", diff)
	}
	if got := org.Column("name").Signature(); got != "character varying(50) NOT NULL" {
		t.Errorf("name signature = %q", got)
	}
	if !org.Column("name").Unique || !org.Column("id").Identity {
		t.Error("expected unique name and identity id")
	}

	cust := actual.Table(schema.NewTableIdentity("public", "customer"))
	if cust.HasRows {
		t.Error("customer should be empty")
	}
	if got := cust.Column("balance").Signature(); got != "numeric(10,2) NOT NULL" {
		t.Errorf("balance signature = %q", got)
	}
	if got := cust.Column("notes").Signature(); got != "text NULL" {
		t.Errorf("notes signature = %q", got)
	}
	if cust.Column("total").Computed == "" {
		t.Error("expected generated column expression")
	}

	wantDependents := []string{"index ix_customer_notes", "view public.customer_notes"}
	if diff := cmp.Diff(wantDependents, cust.Dependents); diff != "" {
		t.Errorf("dependents mismatch (-want +got):\n%s", diff)
	}
	if len(org.Dependents) != 0 {
		t.Errorf("organization should have no dependents, got %v", org.Dependents)
	}

	if len(cust.ForeignKeys) != 1 {
		t.Fatalf("expected one foreign key, got %d", len(cust.ForeignKeys))
	}
	fk := cust.ForeignKeys[0]
	if fk.Name != "fk_customer_organization_id" || fk.Column != "organization_id" || fk.ReferencedColumn != "id" || !fk.CascadeDelete {
		t.Errorf("unexpected foreign key %+v", fk)
	}
	if !fk.References.Equal(org.Identity) {
		t.Errorf("foreign key references %s", fk.References)
	}

	// Drop actions look keys up in the introspected schema.
	if refs := actual.ReferencingForeignKeys(org.Identity); len(refs) != 1 {
		t.Errorf("expected one referencing key, got %d", len(refs))
	}
	if actual.ForeignKeyOnColumn(cust.Identity, "ORGANIZATION_ID") == nil {
		t.Error("expected foreign key on organization_id")
	}
}

func TestOriginDescribe(t *testing.T) {
	id := schema.NewTableIdentity("public", "customer")
	if got := (Origin{Table: id}).Describe(); got != "catalog public.customer" {
		t.Errorf("Describe() = %q", got)
	}
	if got := (Origin{Table: id, Column: "email"}).Describe(); got != "catalog public.customer.email" {
		t.Errorf("Describe() = %q", got)
	}
}
