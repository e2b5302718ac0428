package merge

// deletedForeignKeys drops live foreign keys on surviving columns of
// surviving tables whose declaration was removed.
func deletedForeignKeys(rc *RunContext) []Action {
	var actions []Action
	for _, actual := range rc.Actual.SortedTables() {
		desired := rc.Desired.Table(actual.Identity)
		if desired == nil || rc.Scheduled(actual.Identity) {
			continue
		}
		for _, fk := range actual.ForeignKeys {
			if !desired.HasColumn(fk.Column) || rc.KeyDropped(fk.Name) || rc.Desired.ForeignKey(fk.Name) != nil {
				continue
			}
			actions = append(actions, newAction(KindDropForeignKey, DropForeignKey{ForeignKey: fk}))
			rc.keyDropped(fk)
		}
	}
	return actions
}
