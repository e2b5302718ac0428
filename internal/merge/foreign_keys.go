package merge

import (
	"github.com/pgschema/pgmerge/schema"
)

// foreignKeys creates declared keys that are missing, owned by a rebuilt
// table, or dropped earlier in the run. It always runs last.
func foreignKeys(rc *RunContext) []Action {
	var actions []Action
	for _, fk := range rc.Desired.ForeignKeys() {
		if !needsForeignKey(rc, fk) {
			continue
		}
		actions = append(actions, newAction(KindCreateForeignKey, CreateForeignKey{ForeignKey: fk}))
	}
	return actions
}

func needsForeignKey(rc *RunContext, fk *schema.ForeignKey) bool {
	if rc.Created.Has(fk.Table) || rc.Rebuilt.Has(fk.Table) || rc.KeyDropped(fk.Name) {
		return true
	}
	return rc.Actual.ForeignKey(fk.Name) == nil
}

// missingForeignKeys compares declared keys against a catalog read after the
// run and returns the ones still absent whose tables both exist.
func missingForeignKeys(desired, after *schema.Schema) []Action {
	var actions []Action
	for _, fk := range desired.ForeignKeys() {
		if after.ForeignKey(fk.Name) != nil || !after.HasTable(fk.Table) || !after.HasTable(fk.References) {
			continue
		}
		actions = append(actions, newAction(KindCreateForeignKey, CreateForeignKey{ForeignKey: fk}))
	}
	return actions
}
