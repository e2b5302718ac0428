// Package plan presents the actions of a reconciliation as a reviewable
// plan: Terraform-style text, structured JSON, or the SQL script itself.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pgschema/pgmerge/internal/color"
	"github.com/pgschema/pgmerge/internal/fingerprint"
	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/internal/version"
)

// Plan is the set of actions between a model and a database at one point in time
type Plan struct {
	Actions     []merge.Action
	Fingerprint *fingerprint.SchemaFingerprint
	CreatedAt   time.Time
}

// ObjectChange is the JSON form of one action
type ObjectChange struct {
	Address          string   `json:"address"`
	Type             string   `json:"type"`
	Action           string   `json:"action"`
	Kind             string   `json:"kind"`
	Schema           string   `json:"schema"`
	Table            string   `json:"table"`
	SQL              []string `json:"sql"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
}

// PlanJSON represents the structured JSON output format
type PlanJSON struct {
	Version        string                         `json:"version"`
	PgmergeVersion string                         `json:"pgmerge_version"`
	CreatedAt      time.Time                      `json:"created_at"`
	Fingerprint    *fingerprint.SchemaFingerprint `json:"fingerprint,omitempty"`
	Summary        PlanSummary                    `json:"summary"`
	ObjectChanges  []ObjectChange                 `json:"object_changes"`
}

// PlanSummary provides counts of changes by type
type PlanSummary struct {
	Add     int                    `json:"add"`
	Change  int                    `json:"change"`
	Destroy int                    `json:"destroy"`
	Total   int                    `json:"total"`
	Invalid int                    `json:"invalid"`
	ByType  map[string]TypeSummary `json:"by_type"`
}

// TypeSummary provides counts for a specific object type
type TypeSummary struct {
	Add     int `json:"add"`
	Change  int `json:"change"`
	Destroy int `json:"destroy"`
}

// ObjectType groups actions by the kind of object they change
type ObjectType string

const (
	ObjectTypeTable      ObjectType = "tables"
	ObjectTypeColumn     ObjectType = "columns"
	ObjectTypeForeignKey ObjectType = "foreign_keys"
)

// getObjectOrder returns the display order of object types
func getObjectOrder() []ObjectType {
	return []ObjectType{
		ObjectTypeTable,
		ObjectTypeColumn,
		ObjectTypeForeignKey,
	}
}

// ========== PUBLIC METHODS ==========

// NewPlan creates a plan from a comparison, fingerprinting both of its schemas
func NewPlan(c *merge.Comparison) (*Plan, error) {
	fp, err := fingerprint.ComputeFingerprint(c.Desired, c.Actual)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Actions:     c.Actions,
		Fingerprint: fp,
		CreatedAt:   time.Now(),
	}, nil
}

// HasChanges reports whether the plan contains any action
func (p *Plan) HasChanges() bool {
	return len(p.Actions) > 0
}

// ValidationErrors returns the validation errors of every action in the plan
func (p *Plan) ValidationErrors() merge.ValidationErrors {
	return merge.Validate(p.Actions)
}

// HumanColored returns a human-readable summary of the plan with color support
func (p *Plan) HumanColored(enableColor bool) string {
	c := color.New(enableColor)
	var summary strings.Builder

	planJSON := p.convertToStructuredJSON()

	if planJSON.Summary.Total == 0 {
		summary.WriteString("No changes detected.\n")
		return summary.String()
	}

	summary.WriteString(c.FormatPlanHeader(planJSON.Summary.Add, planJSON.Summary.Change, planJSON.Summary.Destroy) + "\n\n")

	summary.WriteString(c.Bold("Summary by type:") + "\n")
	for _, objType := range getObjectOrder() {
		if ts, exists := planJSON.Summary.ByType[string(objType)]; exists {
			summary.WriteString(c.FormatSummaryLine(string(objType), ts.Add, ts.Change, ts.Destroy) + "\n")
		}
	}
	summary.WriteString("\n")

	// Execution order matters, so changes are listed as they will run.
	summary.WriteString(c.Bold("Changes:") + "\n")
	for _, change := range planJSON.ObjectChanges {
		fmt.Fprintf(&summary, "  %s %s %s\n", c.PlanSymbol(change.Action), c.Cyan(change.Kind+":"), change.Address)
	}
	summary.WriteString("\n")

	if errs := p.ValidationErrors(); len(errs) > 0 {
		summary.WriteString(c.Destroy(c.Bold("Validation errors:")) + "\n")
		for _, e := range errs {
			fmt.Fprintf(&summary, "  %s\n", c.Destroy(e.Error()))
		}
		summary.WriteString("\n")
	}

	summary.WriteString(c.Bold("DDL to be executed:") + "\n")
	summary.WriteString(strings.Repeat("-", 50) + "\n\n")
	summary.WriteString(p.ToSQL())

	return summary.String()
}

// ToJSON returns the plan as structured JSON
func (p *Plan) ToJSON() (string, error) {
	data, err := json.MarshalIndent(p.convertToStructuredJSON(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to JSON: %w", err)
	}
	return string(data), nil
}

// ToSQL returns the rendered script
func (p *Plan) ToSQL() string {
	if !p.HasChanges() {
		return ""
	}
	return merge.RenderScript(p.Actions)
}

// FromJSON parses a plan previously written by ToJSON
func FromJSON(data []byte) (*PlanJSON, error) {
	var planJSON PlanJSON
	if err := json.Unmarshal(data, &planJSON); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if planJSON.Version != version.PlanFormat() {
		return nil, fmt.Errorf("unsupported plan format version %q (expected %q)", planJSON.Version, version.PlanFormat())
	}
	if planJSON.Fingerprint == nil {
		return nil, fmt.Errorf("plan has no fingerprint")
	}
	return &planJSON, nil
}

// ========== PRIVATE METHODS ==========

// convertToStructuredJSON builds the JSON form of the plan, keeping action order
func (p *Plan) convertToStructuredJSON() *PlanJSON {
	planJSON := &PlanJSON{
		Version:        version.PlanFormat(),
		PgmergeVersion: version.App(),
		CreatedAt:      p.CreatedAt.Truncate(time.Second),
		Fingerprint:    p.Fingerprint,
		Summary: PlanSummary{
			ByType: make(map[string]TypeSummary),
		},
		ObjectChanges: []ObjectChange{},
	}

	for _, a := range p.Actions {
		planJSON.ObjectChanges = append(planJSON.ObjectChanges, objectChange(a))
	}

	calculateSummary(planJSON)
	return planJSON
}

func objectChange(a merge.Action) ObjectChange {
	table := a.Table()
	return ObjectChange{
		Address:          a.Name(),
		Type:             string(objectType(a.Kind().Object)),
		Action:           changeAction(a.Kind().Change),
		Kind:             a.Kind().String(),
		Schema:           table.Schema,
		Table:            table.Name,
		SQL:              a.Commands(),
		ValidationErrors: a.ValidationErrors(),
	}
}

func objectType(k merge.ObjectKind) ObjectType {
	switch k {
	case merge.ObjectColumn:
		return ObjectTypeColumn
	case merge.ObjectForeignKey:
		return ObjectTypeForeignKey
	default:
		return ObjectTypeTable
	}
}

func changeAction(k merge.ChangeKind) string {
	switch k {
	case merge.ChangeCreate:
		return "create"
	case merge.ChangeDelete:
		return "delete"
	default:
		return "update"
	}
}

// calculateSummary calculates the summary statistics
func calculateSummary(planJSON *PlanJSON) {
	for _, change := range planJSON.ObjectChanges {
		stats := planJSON.Summary.ByType[change.Type]
		switch change.Action {
		case "create":
			stats.Add++
			planJSON.Summary.Add++
		case "update":
			stats.Change++
			planJSON.Summary.Change++
		case "delete":
			stats.Destroy++
			planJSON.Summary.Destroy++
		}
		planJSON.Summary.ByType[change.Type] = stats
		if len(change.ValidationErrors) > 0 {
			planJSON.Summary.Invalid++
		}
	}
	planJSON.Summary.Total = planJSON.Summary.Add + planJSON.Summary.Change + planJSON.Summary.Destroy
}
