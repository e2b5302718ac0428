// Package catalog reads the actual schema of a live PostgreSQL database.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/pgschema/pgmerge/internal/ignore"
	"github.com/pgschema/pgmerge/internal/logger"
	"github.com/pgschema/pgmerge/schema"
)

// Origin points a descriptor back at the catalog row it was read from.
type Origin struct {
	OID    uint32
	Table  schema.TableIdentity
	Column string
}

// Describe returns a readable location such as "catalog public.customer.email".
func (o Origin) Describe() string {
	if o.Column == "" {
		return "catalog " + o.Table.String()
	}
	return "catalog " + o.Table.String() + "." + o.Column
}

// Introspector builds a schema.Schema from pg_catalog.
type Introspector struct {
	db      sqlx.QueryerContext
	schemas []string
	ignore  *ignore.Config
}

// NewIntrospector returns an introspector over the given schemas, or every
// user schema when none are given.
func NewIntrospector(db sqlx.QueryerContext, ignoreConfig *ignore.Config, schemas ...string) *Introspector {
	return &Introspector{db: db, schemas: schemas, ignore: ignoreConfig}
}

// Actual reads the current tables, columns and constraints. An empty
// database yields an empty schema.
func (i *Introspector) Actual(ctx context.Context) (*schema.Schema, error) {
	out := schema.New()

	byOID, err := i.buildTables(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("failed to build tables: %w", err)
	}
	if len(byOID) == 0 {
		return out, nil
	}

	oids := make([]int64, 0, len(byOID))
	for _, t := range out.Tables {
		oids = append(oids, int64(t.ObjectID))
	}

	if err := i.buildColumns(ctx, byOID, oids); err != nil {
		return nil, fmt.Errorf("failed to build columns: %w", err)
	}
	if err := i.buildConstraints(ctx, byOID, oids); err != nil {
		return nil, fmt.Errorf("failed to build constraints: %w", err)
	}
	if err := i.buildDependents(ctx, byOID, oids); err != nil {
		return nil, fmt.Errorf("failed to build dependents: %w", err)
	}
	if err := i.buildRowPresence(ctx, out); err != nil {
		return nil, fmt.Errorf("failed to check table rows: %w", err)
	}

	logger.Get().Debug("Introspected catalog", "tables", len(out.Tables))
	return out, nil
}

// selectIn expands the ? list arguments of query and scans all rows into dest.
func (i *Introspector) selectIn(ctx context.Context, dest any, query string, args ...any) error {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return fmt.Errorf("failed to expand query: %w", err)
	}
	return sqlx.SelectContext(ctx, i.db, dest, sqlx.Rebind(sqlx.DOLLAR, expanded), expandedArgs...)
}

func (i *Introspector) buildTables(ctx context.Context, out *schema.Schema) (map[int64]*schema.Table, error) {
	query := tablesQuery
	var args []any
	if len(i.schemas) > 0 {
		query += schemaFilter
		args = append(args, i.schemas)
	}
	query += tablesOrder

	var rows []tableRow
	if err := i.selectIn(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	byOID := make(map[int64]*schema.Table, len(rows))
	for _, row := range rows {
		if i.ignore.ShouldIgnoreSchema(row.Schema) || i.ignore.ShouldIgnoreTable(row.Schema, row.Name) {
			continue
		}
		id := schema.NewTableIdentity(row.Schema, row.Name)
		t := schema.NewTable(id)
		t.ObjectID = uint32(row.OID)
		t.Origin = Origin{OID: t.ObjectID, Table: id}
		out.AddTable(t)
		byOID[row.OID] = t
	}
	return byOID, nil
}

func (i *Introspector) buildColumns(ctx context.Context, byOID map[int64]*schema.Table, oids []int64) error {
	var rows []columnRow
	if err := i.selectIn(ctx, &rows, columnsQuery, oids); err != nil {
		return err
	}

	for _, row := range rows {
		t, ok := byOID[row.TableOID]
		if !ok {
			continue
		}
		col := &schema.Column{
			Table:    t.Identity,
			Name:     row.Name,
			Origin:   Origin{OID: t.ObjectID, Table: t.Identity, Column: row.Name},
			Nullable: !row.NotNull,
			Identity: row.IsIdentity,
		}

		spec, err := schema.ParseType(row.DataType)
		if err != nil {
			col.DataType = row.DataType
			col.Problems = append(col.Problems, err.Error())
		} else {
			col.DataType = spec.Name
			col.Length = spec.Length
			col.Precision = spec.Precision
			col.Scale = spec.Scale
		}

		if row.IsGenerated {
			col.Computed = row.Expression
		} else {
			col.Default = row.Expression
		}
		t.Columns = append(t.Columns, col)
	}
	return nil
}

func (i *Introspector) buildConstraints(ctx context.Context, byOID map[int64]*schema.Table, oids []int64) error {
	var rows []constraintRow
	if err := i.selectIn(ctx, &rows, constraintsQuery, oids); err != nil {
		return err
	}

	for _, row := range rows {
		t, ok := byOID[row.TableOID]
		if !ok {
			continue
		}

		switch row.Kind {
		case "p":
			if t.PrimaryKey == nil {
				t.PrimaryKey = &schema.PrimaryKey{Name: row.Name}
			}
			t.PrimaryKey.Columns = append(t.PrimaryKey.Columns, row.Column)
			if c := t.Column(row.Column); c != nil {
				c.PrimaryKey = true
			}
		case "u":
			u := findUnique(t, row.Name)
			if u == nil {
				u = &schema.UniqueConstraint{Name: row.Name}
				t.Uniques = append(t.Uniques, u)
			}
			u.Columns = append(u.Columns, row.Column)
		case "f":
			// Multi-column keys are described by their first column.
			if row.Position > 1 {
				continue
			}
			t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{
				Name:             row.Name,
				Table:            t.Identity,
				Column:           row.Column,
				References:       schema.NewTableIdentity(row.RefSchema, row.RefTable),
				ReferencedColumn: row.RefColumn,
				CascadeDelete:    row.CascadeDelete,
			})
		}
	}

	for _, t := range byOID {
		for _, u := range t.Uniques {
			if len(u.Columns) != 1 {
				continue
			}
			if c := t.Column(u.Columns[0]); c != nil {
				c.Unique = true
			}
		}
	}
	return nil
}

func findUnique(t *schema.Table, name string) *schema.UniqueConstraint {
	for _, u := range t.Uniques {
		if strings.EqualFold(u.Name, name) {
			return u
		}
	}
	return nil
}

func (i *Introspector) buildDependents(ctx context.Context, byOID map[int64]*schema.Table, oids []int64) error {
	var rows []dependentRow
	if err := i.selectIn(ctx, &rows, dependentsQuery, oids, oids, oids); err != nil {
		return err
	}
	for _, row := range rows {
		if t, ok := byOID[row.TableOID]; ok {
			t.Dependents = append(t.Dependents, row.Description)
		}
	}
	return nil
}

func (i *Introspector) buildRowPresence(ctx context.Context, out *schema.Schema) error {
	for _, t := range out.Tables {
		var hasRows bool
		query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s)", t.Identity.Quoted())
		if err := sqlx.GetContext(ctx, i.db, &hasRows, query); err != nil {
			return fmt.Errorf("failed to check rows of %s: %w", t.Identity, err)
		}
		t.HasRows = hasRows
	}
	return nil
}
