package merge

// newTables creates declared tables missing from the catalog.
func newTables(rc *RunContext) []Action {
	var actions []Action
	for _, t := range rc.Desired.SortedTables() {
		if rc.Actual.HasTable(t.Identity) || rc.Scheduled(t.Identity) {
			continue
		}
		actions = append(actions, newAction(KindCreateTable, CreateTable{Table: t}))
		rc.Created.Add(t.Identity)
	}
	return actions
}
