package model

// Position places the identity column in the table.
type Position int

const (
	// PositionStart puts the identity column first.
	PositionStart Position = iota
	// PositionEnd puts the identity column after every other column.
	PositionEnd
)

// Options is the type-level metadata of a model. A model supplies it by
// implementing Optioner.
type Options struct {
	// Schema and Name override the table identity.
	Schema string
	Name   string

	// Exclude removes the type from reconciliation.
	Exclude bool

	// AllowDrop lets the engine rebuild the table destructively even when it
	// holds rows.
	AllowDrop bool

	// IdentityColumn renames the identity column (default "id").
	IdentityColumn   string
	IdentityPosition Position

	UniqueKeys  []UniqueKey
	ForeignKeys []ForeignKey

	// Defaults maps a column (field or column name) to its default expression.
	Defaults map[string]string
}

// UniqueKey is a multi-column unique constraint. Columns may be given as field
// names or column names.
type UniqueKey struct {
	Name    string
	Columns []string
}

// ForeignKey declares that Column references the identity of another model.
// References is either a model value such as Organization{} or a type name.
type ForeignKey struct {
	Column     string
	References any
	Cascade    bool
}

// Optioner is implemented by models that carry type-level metadata.
type Optioner interface {
	ModelOptions() Options
}

// Access restricts when a column is written.
type Access string

const (
	AccessReadWrite  Access = ""
	AccessInsertOnly Access = "insertonly"
	AccessUpdateOnly Access = "updateonly"
	AccessReadOnly   Access = "readonly"
)
