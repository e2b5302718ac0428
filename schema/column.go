package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Origin identifies where a descriptor came from: a declared struct field or a
// catalog row.
type Origin interface {
	Describe() string
}

// Column describes one column of a table. Equality for diffing is on
// (Table, Name) only; type and nullability are compared separately.
type Column struct {
	Table      TableIdentity `json:"table"`
	Name       string        `json:"name"`
	Origin     Origin        `json:"-"`
	DataType   string        `json:"data_type"`
	Length     int           `json:"length,omitempty"`
	Precision  int           `json:"precision,omitempty"`
	Scale      int           `json:"scale,omitempty"`
	Nullable   bool          `json:"nullable"`
	PrimaryKey bool          `json:"primary_key,omitempty"`
	Unique     bool          `json:"unique,omitempty"`
	Identity   bool          `json:"identity,omitempty"`
	Default    string        `json:"default,omitempty"`
	InsertExpr string        `json:"insert_expr,omitempty"`
	Computed   string        `json:"computed,omitempty"`
	// NullableGeneric is set for fields declared with a pointer or sql.Null* type.
	NullableGeneric bool `json:"-"`
	// Problems carries metadata errors found while extracting the column.
	Problems []string `json:"-"`
}

// Key returns the case-insensitive identity of the column.
func (c *Column) Key() string {
	return c.Table.ColumnKey(c.Name)
}

// Same reports whether both columns have the same identity.
func (c *Column) Same(other *Column) bool {
	return c.Table.Equal(other.Table) && strings.EqualFold(c.Name, other.Name)
}

// TypeSpec returns the column's type as a TypeSpec.
func (c *Column) TypeSpec() TypeSpec {
	return TypeSpec{Name: CanonicalType(c.DataType), Length: c.Length, Precision: c.Precision, Scale: c.Scale}
}

// TypeSQL renders the column type.
func (c *Column) TypeSQL() string {
	return c.TypeSpec().SQL()
}

// Signature renders type and nullability, e.g. "character varying(50) NOT NULL".
// Two columns need a retype when their signatures differ ignoring case.
func (c *Column) Signature() string {
	if c.Nullable {
		return c.TypeSQL() + " NULL"
	}
	return c.TypeSQL() + " NOT NULL"
}

// HasDefault reports whether a new row can be populated without a value for
// this column.
func (c *Column) HasDefault() bool {
	return c.Default != "" || c.InsertExpr != "" || c.Identity || c.Computed != ""
}

var (
	parameterPattern = regexp.MustCompile(`\$\d+`)
	// literalPattern matches single-quoted strings, with '' as an escaped quote.
	literalPattern = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// takesParameters reports whether expr has $n placeholders outside string literals.
func takesParameters(expr string) bool {
	return parameterPattern.MatchString(literalPattern.ReplaceAllString(expr, "''"))
}

// FillExpression returns the expression used to populate the column on rows
// that existed before it was added, or "" when there is none. Insert
// expressions that take parameters cannot be used.
func (c *Column) FillExpression() string {
	if c.InsertExpr != "" && !takesParameters(c.InsertExpr) {
		return c.InsertExpr
	}
	return c.Default
}

// DefinitionSQL renders the column as it appears inside CREATE TABLE.
func (c *Column) DefinitionSQL() string {
	var b strings.Builder
	b.WriteString(QuoteIdentifier(c.Name))
	b.WriteString(" ")
	b.WriteString(c.TypeSQL())

	if c.Computed != "" {
		fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s) STORED", c.Computed)
		return b.String()
	}
	if c.Identity && isIntegerType(c.DataType) {
		b.WriteString(" GENERATED ALWAYS AS IDENTITY")
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// String returns schema.table.column.
func (c *Column) String() string {
	return c.Table.String() + "." + c.Name
}

func isIntegerType(name string) bool {
	switch CanonicalType(name) {
	case TypeSmallint, TypeInteger, TypeBigint:
		return true
	}
	return false
}

// IsIntegerIdentity reports whether the column is a generated integer identity.
func (c *Column) IsIntegerIdentity() bool {
	return c.Identity && isIntegerType(c.DataType)
}
