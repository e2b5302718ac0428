package merge

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pgschema/pgmerge/schema"
)

// ValidationError is one reason an action cannot run.
type ValidationError struct {
	Action  Action
	Message string
}

func (e ValidationError) Error() string {
	return e.Action.String() + ": " + e.Message
}

// ValidationErrors is the aggregate returned when any action is invalid. No
// statement runs while it is non-empty.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ve := range e {
		msgs = append(msgs, ve.Error())
	}
	return fmt.Sprintf("%d validation error(s):\n  %s", len(e), strings.Join(msgs, "\n  "))
}

// Validate collects the validation errors of every action, in action order.
func Validate(actions []Action) ValidationErrors {
	var errs ValidationErrors
	for _, a := range actions {
		for _, msg := range a.ValidationErrors() {
			errs = append(errs, ValidationError{Action: a, Message: msg})
		}
	}
	return errs
}

// IsValid reports whether the action has no validation errors.
func IsValid(a Action) bool {
	return a.IsValid()
}

// validateTable checks a table about to be created from the model.
func validateTable(t *schema.Table) []string {
	var msgs []string
	msgs = append(msgs, t.Problems...)
	msgs = append(msgs, tableIdentifierErrors(t)...)

	constrained := make(map[string]bool)
	if t.PrimaryKey != nil {
		for _, c := range t.PrimaryKey.Columns {
			constrained[strings.ToLower(c)] = true
		}
	}
	for _, u := range t.Uniques {
		for _, c := range u.Columns {
			constrained[strings.ToLower(c)] = true
		}
	}

	for _, c := range t.Columns {
		msgs = append(msgs, validateColumn(c)...)
		if constrained[strings.ToLower(c.Name)] && c.TypeSpec().IsUnbounded() {
			msgs = append(msgs, fmt.Sprintf("column %s: key or unique column cannot use unbounded type %s", c.Name, c.TypeSQL()))
		}
		if c.PrimaryKey && c.NullableGeneric {
			msgs = append(msgs, fmt.Sprintf("column %s: nullable type cannot be a primary key", c.Name))
		}
	}
	return msgs
}

// checkIdentifier rejects names the server would truncate. A truncated name
// never matches its declaration, so the object would be recreated every run.
func checkIdentifier(kind, name string) string {
	if len(name) <= schema.MaxIdentifierLength {
		return ""
	}
	return fmt.Sprintf("%s name %s is %d bytes, longer than the %d PostgreSQL keeps",
		kind, name, len(name), schema.MaxIdentifierLength)
}

func tableIdentifierErrors(t *schema.Table) []string {
	var msgs []string
	add := func(kind, name string) {
		if msg := checkIdentifier(kind, name); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	add("schema", t.Identity.Schema)
	add("table", t.Identity.Name)
	for _, c := range t.Columns {
		add("column", c.Name)
	}
	if t.PrimaryKey != nil {
		add("primary key", t.PrimaryKey.Name)
	}
	for _, u := range t.Uniques {
		add("unique constraint", u.Name)
	}
	return msgs
}

// validateColumn reports extraction problems and unparsable expressions.
func validateColumn(c *schema.Column) []string {
	var msgs []string
	for _, p := range c.Problems {
		msgs = append(msgs, fmt.Sprintf("column %s: %s", c.Name, p))
	}
	if c.DataType == "" && len(c.Problems) == 0 {
		msgs = append(msgs, fmt.Sprintf("column %s: missing type", c.Name))
	}
	for _, e := range []struct{ kind, expr string }{
		{"default", c.Default},
		{"insert", c.InsertExpr},
		{"computed", c.Computed},
	} {
		if e.expr == "" {
			continue
		}
		if err := checkExpression(e.expr); err != nil {
			msgs = append(msgs, fmt.Sprintf("column %s: invalid %s expression %q: %v", c.Name, e.kind, e.expr, err))
		}
	}
	return msgs
}

// checkExpression parses expr as a SELECT target.
func checkExpression(expr string) error {
	_, err := pg_query.Parse("SELECT " + expr)
	return err
}

func validateCreateTable(p CreateTable) []string {
	return append(validateTable(p.Table), validateAdded(p.Added)...)
}

func validateAddColumns(p AddColumns) []string {
	msgs := append(validateTable(p.Table), validateAdded(p.Added)...)
	if p.Actual != nil && len(p.Actual.Dependents) > 0 {
		msgs = append(msgs, fmt.Sprintf("rows cannot be transplanted while the table has dependent objects: %s",
			strings.Join(p.Actual.Dependents, ", ")))
	}
	return msgs
}

// validateAdded requires every new NOT NULL column of an existing table to
// have a value for the rows already there. Rebuilds of empty tables are held
// to the same rule so a plan stays valid if rows arrive before it is applied.
func validateAdded(added []*schema.Column) []string {
	var msgs []string
	for _, c := range added {
		if c.Nullable || c.Identity || c.Computed != "" {
			continue
		}
		if c.FillExpression() == "" {
			msgs = append(msgs, fmt.Sprintf("column %s: new NOT NULL column needs a default or an insert expression without parameters", c.Name))
		}
	}
	return msgs
}

func validateRetypeColumn(p RetypeColumn) []string {
	msgs := validateColumn(p.Desired)
	if p.PrimaryKey {
		msgs = append(msgs, fmt.Sprintf("column %s: primary key columns cannot be retyped in place (%s to %s)",
			p.Desired.Name, p.Actual.Signature(), p.Desired.Signature()))
	}
	if p.Populated && p.Actual.Nullable && !p.Desired.Nullable && p.Desired.Computed == "" && p.Desired.FillExpression() == "" {
		msgs = append(msgs, fmt.Sprintf("column %s: cannot become NOT NULL on a populated table without a default or an insert expression without parameters",
			p.Desired.Name))
	}
	if p.Desired.Unique && p.Desired.TypeSpec().IsUnbounded() {
		msgs = append(msgs, fmt.Sprintf("column %s: key or unique column cannot use unbounded type %s", p.Desired.Name, p.Desired.TypeSQL()))
	}
	return msgs
}

func validateCreateForeignKey(p CreateForeignKey) []string {
	msgs := append([]string(nil), p.ForeignKey.Problems...)
	if msg := checkIdentifier("foreign key", p.ForeignKey.Name); msg != "" {
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 && (p.ForeignKey.References.Name == "" || p.ForeignKey.ReferencedColumn == "") {
		msgs = append(msgs, "missing referenced table")
	}
	return msgs
}
