package merge

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgmerge/internal/ignore"
	"github.com/pgschema/pgmerge/schema"
)

// createTableCommands renders CREATE TABLE with its columns, primary key and
// unique constraints. A non-default schema is created first.
func createTableCommands(p CreateTable) []string {
	var cmds []string
	if s := p.Table.Identity.Schema; !strings.EqualFold(s, schema.DefaultSchema) {
		cmds = append(cmds, "CREATE SCHEMA IF NOT EXISTS "+schema.QuoteIdentifier(s))
	}
	return append(cmds, createTableSQL(p.Table))
}

func createTableSQL(t *schema.Table) string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, c.DefinitionSQL())
	}
	if t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0 {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)",
			schema.QuoteIdentifier(t.PrimaryKey.Name), schema.QuoteColumns(t.PrimaryKey.Columns)))
	}
	for _, u := range t.Uniques {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)",
			schema.QuoteIdentifier(u.Name), schema.QuoteColumns(u.Columns)))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", t.Identity.Quoted(), strings.Join(lines, ",\n    "))
}

func dropConstraintSQL(fk *schema.ForeignKey) string {
	return fmt.Sprintf("ALTER TABLE IF EXISTS %s DROP CONSTRAINT IF EXISTS %s",
		fk.Table.Quoted(), schema.QuoteIdentifier(fk.Name))
}

// dependentKeyCommands drops the keys that reference a table from other
// tables. Keys owned by the table go with it.
func dependentKeyCommands(owner schema.TableIdentity, keys []*schema.ForeignKey) []string {
	var cmds []string
	for _, fk := range keys {
		if fk.Table.Equal(owner) {
			continue
		}
		cmds = append(cmds, dropConstraintSQL(fk))
	}
	return cmds
}

func dropTableCommands(p DropTable) []string {
	cmds := dependentKeyCommands(p.Table.Identity, p.DependentKeys)
	return append(cmds, "DROP TABLE "+p.Table.Identity.Quoted())
}

// stagingTable names the copy that holds rows during a transplant.
func stagingTable(id schema.TableIdentity) schema.TableIdentity {
	return schema.NewTableIdentity(id.Schema, ignore.StagingPrefix+id.Name)
}

// addColumnsCommands stages the rows, recreates the table from the model and
// reinserts the rows with their identity values. New columns get their fill
// expression, or NULL.
func addColumnsCommands(p AddColumns) []string {
	id := p.Table.Identity
	staging := stagingTable(id).Quoted()

	cmds := dependentKeyCommands(id, p.DependentKeys)
	cmds = append(cmds,
		"DROP TABLE IF EXISTS "+staging,
		fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", staging, id.Quoted()),
		"DROP TABLE "+id.Quoted(),
	)
	cmds = append(cmds, createTableCommands(CreateTable{Table: p.Table})...)

	var columns, values []string
	for _, c := range p.Table.WritableColumns() {
		columns = append(columns, schema.QuoteIdentifier(c.Name))
		if existing := p.Actual.Column(c.Name); existing != nil && existing.Computed == "" {
			values = append(values, schema.QuoteIdentifier(existing.Name))
		} else if fill := c.FillExpression(); fill != "" {
			values = append(values, fill)
		} else {
			values = append(values, "NULL")
		}
	}

	overriding := ""
	identity := p.Table.IdentityColumn()
	if identity != nil && identity.IsIntegerIdentity() {
		overriding = " OVERRIDING SYSTEM VALUE"
	}
	cmds = append(cmds, fmt.Sprintf("INSERT INTO %s (%s)%s\nSELECT %s FROM %s",
		id.Quoted(), strings.Join(columns, ", "), overriding, strings.Join(values, ", "), staging))

	if overriding != "" {
		cmds = append(cmds, resetIdentitySQL(id, identity.Name))
	}
	return append(cmds, "DROP TABLE "+staging)
}

// resetIdentitySQL moves the identity sequence past the reinserted keys.
func resetIdentitySQL(id schema.TableIdentity, column string) string {
	return fmt.Sprintf("SELECT setval(pg_get_serial_sequence(%s, %s), COALESCE(MAX(%s), 0) + 1, false) FROM %s",
		schema.QuoteLiteral(id.Quoted()), schema.QuoteLiteral(column), schema.QuoteIdentifier(column), id.Quoted())
}

func dropColumnCommands(p DropColumn) []string {
	var cmds []string
	if p.ForeignKey != nil {
		cmds = append(cmds, dropConstraintSQL(p.ForeignKey))
	}
	return append(cmds, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		p.Column.Table.Quoted(), schema.QuoteIdentifier(p.Column.Name)))
}

// retypeColumnCommands alters only what differs. Rows left NULL by a column
// becoming NOT NULL are filled first when the column has a fill expression.
func retypeColumnCommands(p RetypeColumn) []string {
	table := p.Actual.Table.Quoted()
	column := schema.QuoteIdentifier(p.Actual.Name)

	var cmds []string
	if typ := p.Desired.TypeSQL(); !strings.EqualFold(typ, p.Actual.TypeSQL()) {
		cmds = append(cmds, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
			table, column, typ, column, typ))
	}
	if p.Desired.Nullable != p.Actual.Nullable && p.Desired.Computed == "" {
		if p.Desired.Nullable {
			cmds = append(cmds, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, column))
		} else {
			if fill := p.Desired.FillExpression(); fill != "" {
				cmds = append(cmds, fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL", table, column, fill, column))
			}
			cmds = append(cmds, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, column))
		}
	}
	return cmds
}

func createForeignKeyCommands(p CreateForeignKey) []string {
	fk := p.ForeignKey
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		fk.Table.Quoted(), schema.QuoteIdentifier(fk.Name), schema.QuoteIdentifier(fk.Column),
		fk.References.Quoted(), schema.QuoteIdentifier(fk.ReferencedColumn))
	if fk.CascadeDelete {
		stmt += " ON DELETE CASCADE"
	}
	return []string{stmt}
}
