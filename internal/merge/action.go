// Package merge computes, validates, renders and executes the actions that
// bring a live schema into agreement with the desired one.
package merge

import (
	"fmt"

	"github.com/pgschema/pgmerge/schema"
)

// ObjectKind is the kind of database object an action changes.
type ObjectKind int

const (
	ObjectTable ObjectKind = iota
	ObjectColumn
	ObjectPrimaryKey
	ObjectForeignKey
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectTable:
		return "Table"
	case ObjectColumn:
		return "Column"
	case ObjectPrimaryKey:
		return "PrimaryKey"
	case ObjectForeignKey:
		return "ForeignKey"
	}
	return fmt.Sprintf("ObjectKind(%d)", int(k))
}

// ChangeKind is what an action does to its object.
type ChangeKind int

const (
	ChangeCreate ChangeKind = iota
	ChangeRename
	ChangeRetype
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreate:
		return "Create"
	case ChangeRename:
		return "Rename"
	case ChangeRetype:
		return "Retype"
	case ChangeDelete:
		return "Delete"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Kind tags an action variant.
type Kind struct {
	Object ObjectKind
	Change ChangeKind
}

func (k Kind) String() string {
	return k.Change.String() + " " + k.Object.String()
}

// The action variants.
var (
	KindCreateTable      = Kind{ObjectTable, ChangeCreate}
	KindDropTable        = Kind{ObjectTable, ChangeDelete}
	KindAddColumns       = Kind{ObjectColumn, ChangeCreate}
	KindDropColumn       = Kind{ObjectColumn, ChangeDelete}
	KindRetypeColumn     = Kind{ObjectColumn, ChangeRetype}
	KindCreateForeignKey = Kind{ObjectForeignKey, ChangeCreate}
	KindDropForeignKey   = Kind{ObjectForeignKey, ChangeDelete}
)

// Payloads. Each is built once from the descriptors that justified it and
// never modified afterwards.

// CreateTable creates a table with its columns, primary key and unique
// constraints. Foreign keys are created separately. Added is set when the
// table is rebuilt and lists the columns the rebuild introduces.
type CreateTable struct {
	Table *schema.Table
	Added []*schema.Column
}

// DropTable drops a live table after the foreign keys referencing it.
type DropTable struct {
	Table         *schema.Table
	ObjectID      uint32
	DependentKeys []*schema.ForeignKey
}

// AddColumns adds columns to a populated table by transplanting its rows
// through a staging copy.
type AddColumns struct {
	Table         *schema.Table
	Actual        *schema.Table
	Added         []*schema.Column
	DependentKeys []*schema.ForeignKey
}

// DropColumn drops a live column, and first the foreign key declared on it.
type DropColumn struct {
	Column     *schema.Column
	ForeignKey *schema.ForeignKey
}

// RetypeColumn changes the type or nullability of a column in place.
type RetypeColumn struct {
	Desired *schema.Column
	Actual  *schema.Column
	// PrimaryKey is set when the column belongs to a primary key.
	PrimaryKey bool
	// Populated is set when the live table holds rows.
	Populated bool
}

// CreateForeignKey adds a foreign key constraint.
type CreateForeignKey struct {
	ForeignKey *schema.ForeignKey
}

// DropForeignKey drops a foreign key that is no longer declared.
type DropForeignKey struct {
	ForeignKey *schema.ForeignKey
}

// handler is the dispatch entry of one action kind.
type handler struct {
	name     func(any) string
	table    func(any) schema.TableIdentity
	commands func(any) []string
	validate func(any) []string
}

func typed[P any, R any](f func(P) R) func(any) R {
	return func(p any) R { return f(p.(P)) }
}

var handlers = map[Kind]handler{
	KindCreateTable: {
		name:     typed(func(p CreateTable) string { return p.Table.Identity.String() }),
		table:    typed(func(p CreateTable) schema.TableIdentity { return p.Table.Identity }),
		commands: typed(createTableCommands),
		validate: typed(validateCreateTable),
	},
	KindDropTable: {
		name:     typed(func(p DropTable) string { return p.Table.Identity.String() }),
		table:    typed(func(p DropTable) schema.TableIdentity { return p.Table.Identity }),
		commands: typed(dropTableCommands),
		validate: typed(func(DropTable) []string { return nil }),
	},
	KindAddColumns: {
		name:     typed(func(p AddColumns) string { return p.Table.Identity.String() }),
		table:    typed(func(p AddColumns) schema.TableIdentity { return p.Table.Identity }),
		commands: typed(addColumnsCommands),
		validate: typed(validateAddColumns),
	},
	KindDropColumn: {
		name:     typed(func(p DropColumn) string { return p.Column.String() }),
		table:    typed(func(p DropColumn) schema.TableIdentity { return p.Column.Table }),
		commands: typed(dropColumnCommands),
		validate: typed(func(DropColumn) []string { return nil }),
	},
	KindRetypeColumn: {
		name:     typed(func(p RetypeColumn) string { return p.Desired.String() }),
		table:    typed(func(p RetypeColumn) schema.TableIdentity { return p.Desired.Table }),
		commands: typed(retypeColumnCommands),
		validate: typed(validateRetypeColumn),
	},
	KindCreateForeignKey: {
		name:     typed(func(p CreateForeignKey) string { return p.ForeignKey.Name }),
		table:    typed(func(p CreateForeignKey) schema.TableIdentity { return p.ForeignKey.Table }),
		commands: typed(createForeignKeyCommands),
		validate: typed(validateCreateForeignKey),
	},
	KindDropForeignKey: {
		name:     typed(func(p DropForeignKey) string { return p.ForeignKey.Name }),
		table:    typed(func(p DropForeignKey) schema.TableIdentity { return p.ForeignKey.Table }),
		commands: typed(func(p DropForeignKey) []string { return []string{dropConstraintSQL(p.ForeignKey)} }),
		validate: typed(func(DropForeignKey) []string { return nil }),
	},
}

// Action is one schema change: a kind tag plus its payload.
type Action struct {
	kind    Kind
	payload any
}

func newAction(kind Kind, payload any) Action {
	return Action{kind: kind, payload: payload}
}

// Kind returns the variant tag.
func (a Action) Kind() Kind { return a.kind }

// Payload returns the variant payload, one of the payload types of this package.
func (a Action) Payload() any { return a.payload }

// Name is the human-readable identity of the changed object.
func (a Action) Name() string { return handlers[a.kind].name(a.payload) }

// Table is the table the action changes.
func (a Action) Table() schema.TableIdentity { return handlers[a.kind].table(a.payload) }

// Commands returns the SQL statements that realize the action, in order.
func (a Action) Commands() []string { return handlers[a.kind].commands(a.payload) }

// ValidationErrors returns the reasons the action is unsafe to run.
func (a Action) ValidationErrors() []string { return handlers[a.kind].validate(a.payload) }

// IsValid reports whether the action has no validation errors.
func (a Action) IsValid() bool { return len(a.ValidationErrors()) == 0 }

// String returns e.g. "Create Table: public.customer".
func (a Action) String() string {
	return a.kind.String() + ": " + a.Name()
}
