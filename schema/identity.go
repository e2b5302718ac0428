// Package schema holds the canonical descriptors shared by the model extractor,
// the catalog introspector and the merge engine. Descriptors are plain data;
// identity comparison is case-insensitive throughout.
package schema

import (
	"strings"
)

// DefaultSchema is the schema used when a model does not name one.
const DefaultSchema = "public"

// MaxIdentifierLength is the byte length past which PostgreSQL truncates an
// identifier (NAMEDATALEN - 1).
const MaxIdentifierLength = 63

// TableIdentity names a table. Two identities are equal when schema and name
// match ignoring case.
type TableIdentity struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// NewTableIdentity returns an identity, substituting DefaultSchema for an empty schema.
func NewTableIdentity(schemaName, name string) TableIdentity {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	return TableIdentity{Schema: schemaName, Name: name}
}

// Equal reports whether both identities name the same table.
func (t TableIdentity) Equal(other TableIdentity) bool {
	return strings.EqualFold(t.Schema, other.Schema) && strings.EqualFold(t.Name, other.Name)
}

// Key returns a lower-cased map key for the identity.
func (t TableIdentity) Key() string {
	return strings.ToLower(t.Schema) + "." + strings.ToLower(t.Name)
}

// String returns the unquoted qualified name.
func (t TableIdentity) String() string {
	return t.Schema + "." + t.Name
}

// Quoted returns the qualified name quoted for use in SQL.
func (t TableIdentity) Quoted() string {
	return QualifiedName(t.Schema, t.Name)
}

// ConstraintBase returns the table-derived part of constraint names. Tables in
// a non-default schema are prefixed with the schema name, so sales.orders
// becomes sales_orders.
func (t TableIdentity) ConstraintBase() string {
	if t.Schema == "" || strings.EqualFold(t.Schema, DefaultSchema) {
		return t.Name
	}
	return t.Schema + "_" + t.Name
}

// ColumnKey returns a lower-cased map key for a column of this table.
func (t TableIdentity) ColumnKey(column string) string {
	return t.Key() + "." + strings.ToLower(column)
}

// TableSet is a set of table identities keyed case-insensitively.
type TableSet map[string]TableIdentity

// Add inserts id into the set.
func (s TableSet) Add(id TableIdentity) {
	s[id.Key()] = id
}

// Has reports whether id is in the set.
func (s TableSet) Has(id TableIdentity) bool {
	_, ok := s[id.Key()]
	return ok
}
