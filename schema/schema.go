package schema

import (
	"sort"
	"strings"
)

// PrimaryKey is the primary-key column set of a table.
type PrimaryKey struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// UniqueConstraint is a single- or multi-column unique constraint.
type UniqueConstraint struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// ForeignKey is a relationship from one column of a table to the key of
// another table.
type ForeignKey struct {
	Name             string        `json:"name"`
	Table            TableIdentity `json:"table"`
	Column           string        `json:"column"`
	References       TableIdentity `json:"references"`
	ReferencedColumn string        `json:"referenced_column"`
	CascadeDelete    bool          `json:"cascade_delete,omitempty"`
	Problems         []string      `json:"-"`
}

// String returns the constraint name.
func (fk *ForeignKey) String() string {
	return fk.Name
}

// Table describes one table of either the desired or the actual schema.
type Table struct {
	Identity    TableIdentity       `json:"identity"`
	ObjectID    uint32              `json:"-"`
	Origin      Origin              `json:"-"`
	Columns     []*Column           `json:"columns"`
	PrimaryKey  *PrimaryKey         `json:"primary_key,omitempty"`
	Uniques     []*UniqueConstraint `json:"uniques,omitempty"`
	ForeignKeys []*ForeignKey       `json:"foreign_keys,omitempty"`
	AllowDrop   bool                `json:"allow_drop,omitempty"`
	HasRows     bool                `json:"-"`
	Problems    []string            `json:"-"`
	// Dependents lists catalog objects outside the engine's model that hang
	// off the table, e.g. "trigger audit_insert".
	Dependents  []string            `json:"-"`
}

// NewTable returns an empty table with the given identity.
func NewTable(id TableIdentity) *Table {
	return &Table{Identity: id}
}

// Column returns the named column, matching case-insensitively.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// WritableColumns returns the columns that accept inserted values.
func (t *Table) WritableColumns() []*Column {
	var cols []*Column
	for _, c := range t.Columns {
		if c.Computed == "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// IdentityColumn returns the identity column, if any.
func (t *Table) IdentityColumn() *Column {
	for _, c := range t.Columns {
		if c.Identity {
			return c
		}
	}
	return nil
}

// IsPrimaryKeyColumn reports whether the column belongs to the primary key.
func (t *Table) IsPrimaryKeyColumn(name string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, col := range t.PrimaryKey.Columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

// Schema is a set of tables and the foreign keys between them.
type Schema struct {
	Tables []*Table `json:"tables"`
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{}
}

// AddTable appends a table.
func (s *Schema) AddTable(t *Table) {
	s.Tables = append(s.Tables, t)
}

// Table returns the table with the given identity, or nil.
func (s *Schema) Table(id TableIdentity) *Table {
	if s == nil {
		return nil
	}
	for _, t := range s.Tables {
		if t.Identity.Equal(id) {
			return t
		}
	}
	return nil
}

// HasTable reports whether the schema contains the table.
func (s *Schema) HasTable(id TableIdentity) bool {
	return s.Table(id) != nil
}

// SortedTables returns the tables ordered by qualified name.
func (s *Schema) SortedTables() []*Table {
	if s == nil {
		return nil
	}
	tables := make([]*Table, len(s.Tables))
	copy(tables, s.Tables)
	sort.SliceStable(tables, func(i, j int) bool {
		return tables[i].Identity.Key() < tables[j].Identity.Key()
	})
	return tables
}

// ForeignKeys returns every foreign key in the schema, ordered by table then name.
func (s *Schema) ForeignKeys() []*ForeignKey {
	var fks []*ForeignKey
	for _, t := range s.SortedTables() {
		fks = append(fks, t.ForeignKeys...)
	}
	return fks
}

// ForeignKey returns the foreign key with the given constraint name, or nil.
func (s *Schema) ForeignKey(name string) *ForeignKey {
	for _, fk := range s.ForeignKeys() {
		if strings.EqualFold(fk.Name, name) {
			return fk
		}
	}
	return nil
}

// ReferencingForeignKeys returns the foreign keys that reference id.
func (s *Schema) ReferencingForeignKeys(id TableIdentity) []*ForeignKey {
	var fks []*ForeignKey
	for _, fk := range s.ForeignKeys() {
		if fk.References.Equal(id) {
			fks = append(fks, fk)
		}
	}
	return fks
}

// ForeignKeyOnColumn returns the foreign key declared on table.column, or nil.
func (s *Schema) ForeignKeyOnColumn(id TableIdentity, column string) *ForeignKey {
	t := s.Table(id)
	if t == nil {
		return nil
	}
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.Column, column) {
			return fk
		}
	}
	return nil
}
