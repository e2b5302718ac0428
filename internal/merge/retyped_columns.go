package merge

import (
	"strings"

	"github.com/pgschema/pgmerge/schema"
)

// retypedColumns alters columns whose type or nullability differs. Tables
// that will be rebuilt destructively are skipped since the rebuild creates
// every column from the model.
func retypedColumns(rc *RunContext) []Action {
	var actions []Action
	for _, desired := range rc.Desired.SortedTables() {
		actual := rc.Actual.Table(desired.Identity)
		if actual == nil || rc.Scheduled(desired.Identity) || rebuildsDestructively(desired, actual) {
			continue
		}

		for _, dc := range desired.Columns {
			ac := actual.Column(dc.Name)
			if ac == nil || !needsRetype(dc, ac) {
				continue
			}
			actions = append(actions, newAction(KindRetypeColumn, RetypeColumn{
				Desired:    dc,
				Actual:     ac,
				PrimaryKey: dc.PrimaryKey || ac.PrimaryKey || actual.IsPrimaryKeyColumn(ac.Name),
				Populated:  actual.HasRows,
			}))
		}
	}
	return actions
}

// needsRetype compares signatures ignoring case. Generated columns are
// compared on type alone since the catalog always reports them nullable.
func needsRetype(desired, actual *schema.Column) bool {
	if desired.Computed != "" || actual.Computed != "" {
		return !strings.EqualFold(desired.TypeSQL(), actual.TypeSQL())
	}
	return !strings.EqualFold(desired.Signature(), actual.Signature())
}
