package merge

import (
	"github.com/pgschema/pgmerge/schema"
)

// addedColumns returns the declared columns missing from the live table.
func addedColumns(desired, actual *schema.Table) []*schema.Column {
	var added []*schema.Column
	for _, c := range desired.Columns {
		if !actual.HasColumn(c.Name) {
			added = append(added, c)
		}
	}
	return added
}

// rebuildsDestructively reports whether new columns are applied by dropping
// and recreating the table: it holds no rows or allows dropping.
func rebuildsDestructively(desired, actual *schema.Table) bool {
	if len(addedColumns(desired, actual)) == 0 {
		return false
	}
	return !actual.HasRows || desired.AllowDrop
}

// newColumns applies added columns either by a destructive rebuild or by a
// staging transplant that keeps the rows. A table takes exactly one path.
func newColumns(rc *RunContext) []Action {
	var actions []Action
	for _, desired := range rc.Desired.SortedTables() {
		actual := rc.Actual.Table(desired.Identity)
		if actual == nil || rc.Scheduled(desired.Identity) {
			continue
		}
		added := addedColumns(desired, actual)
		if len(added) == 0 {
			continue
		}

		if rebuildsDestructively(desired, actual) {
			actions = append(actions,
				rc.dropTable(actual),
				newAction(KindCreateTable, CreateTable{Table: desired, Added: added}),
			)
		} else {
			keys := rc.dependentKeys(desired.Identity)
			for _, fk := range keys {
				rc.keyDropped(fk)
			}
			for _, fk := range actual.ForeignKeys {
				rc.keyDropped(fk)
			}
			actions = append(actions, newAction(KindAddColumns, AddColumns{
				Table:         desired,
				Actual:        actual,
				Added:         added,
				DependentKeys: keys,
			}))
		}
		rc.Rebuilt.Add(desired.Identity)
	}
	return actions
}
