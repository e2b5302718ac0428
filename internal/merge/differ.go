package merge

import (
	"github.com/pgschema/pgmerge/schema"
)

// phase is one independent step of the differ.
type phase struct {
	name string
	run  func(*RunContext) []Action
}

// phases run in this fixed order; later phases rely on the sets recorded by
// earlier ones.
var phases = []phase{
	{"deleted tables", deletedTables},
	{"new tables", newTables},
	{"retyped columns", retypedColumns},
	{"new columns", newColumns},
	{"deleted foreign keys", deletedForeignKeys},
	{"deleted columns", deletedColumns},
	{"foreign keys", foreignKeys},
}

// Diff returns the ordered actions that turn actual into desired.
func Diff(desired, actual *schema.Schema) []Action {
	return DiffContext(NewRunContext(desired, actual))
}

// DiffContext runs every phase against rc.
func DiffContext(rc *RunContext) []Action {
	var actions []Action
	for _, p := range phases {
		actions = append(actions, p.run(rc)...)
	}
	return actions
}
