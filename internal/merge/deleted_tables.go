package merge

// deletedTables drops live tables that no model declares.
func deletedTables(rc *RunContext) []Action {
	var actions []Action
	for _, t := range rc.Actual.SortedTables() {
		if rc.Desired.HasTable(t.Identity) || rc.Deleted.Has(t.Identity) {
			continue
		}
		actions = append(actions, rc.dropTable(t))
		rc.Deleted.Add(t.Identity)
	}
	return actions
}
