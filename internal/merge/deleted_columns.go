package merge

// deletedColumns drops live columns no longer declared on tables that stay
// and are not rebuilt. The foreign key on a dropped column goes first.
func deletedColumns(rc *RunContext) []Action {
	var actions []Action
	for _, actual := range rc.Actual.SortedTables() {
		desired := rc.Desired.Table(actual.Identity)
		if desired == nil || rc.Scheduled(actual.Identity) {
			continue
		}
		for _, c := range actual.Columns {
			if desired.HasColumn(c.Name) {
				continue
			}
			fk := rc.Actual.ForeignKeyOnColumn(actual.Identity, c.Name)
			if fk != nil {
				rc.keyDropped(fk)
			}
			actions = append(actions, newAction(KindDropColumn, DropColumn{Column: c, ForeignKey: fk}))
		}
	}
	return actions
}
