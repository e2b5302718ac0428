package merge

import (
	"strings"

	"github.com/pgschema/pgmerge/schema"
)

// RunContext carries the state of one reconciliation run between phases: the
// two schemas and the tables and keys already scheduled for change.
type RunContext struct {
	Desired *schema.Schema
	Actual  *schema.Schema

	Created schema.TableSet
	Deleted schema.TableSet
	// Rebuilt holds tables recreated by a destructive rebuild or a transplant.
	Rebuilt schema.TableSet

	droppedKeys map[string]bool
}

// NewRunContext starts a run. A nil schema is treated as empty.
func NewRunContext(desired, actual *schema.Schema) *RunContext {
	if desired == nil {
		desired = schema.New()
	}
	if actual == nil {
		actual = schema.New()
	}
	return &RunContext{
		Desired:     desired,
		Actual:      actual,
		Created:     make(schema.TableSet),
		Deleted:     make(schema.TableSet),
		Rebuilt:     make(schema.TableSet),
		droppedKeys: make(map[string]bool),
	}
}

// keyDropped records that an earlier action removes the foreign key.
func (rc *RunContext) keyDropped(fk *schema.ForeignKey) {
	rc.droppedKeys[strings.ToLower(fk.Name)] = true
}

// KeyDropped reports whether an action of this run removes the named key.
func (rc *RunContext) KeyDropped(name string) bool {
	return rc.droppedKeys[strings.ToLower(name)]
}

// Scheduled reports whether the table is already created, deleted or rebuilt.
func (rc *RunContext) Scheduled(id schema.TableIdentity) bool {
	return rc.Created.Has(id) || rc.Deleted.Has(id) || rc.Rebuilt.Has(id)
}

// dependentKeys lists the live foreign keys of other tables that reference id.
func (rc *RunContext) dependentKeys(id schema.TableIdentity) []*schema.ForeignKey {
	var keys []*schema.ForeignKey
	for _, fk := range rc.Actual.ReferencingForeignKeys(id) {
		if !fk.Table.Equal(id) {
			keys = append(keys, fk)
		}
	}
	return keys
}

// dropTable schedules a live table for removal along with its dependents.
func (rc *RunContext) dropTable(t *schema.Table) Action {
	keys := rc.dependentKeys(t.Identity)
	for _, fk := range keys {
		rc.keyDropped(fk)
	}
	for _, fk := range t.ForeignKeys {
		rc.keyDropped(fk)
	}
	return newAction(KindDropTable, DropTable{Table: t, ObjectID: t.ObjectID, DependentKeys: keys})
}
