package schema

import (
	"strings"
	"unicode"

	"github.com/lib/pq"
)

// PostgreSQL reserved words that must be quoted when used as identifiers.
// Based on https://www.postgresql.org/docs/current/sql-keywords-appendix.html
var reservedWords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "asymmetric": true, "authorization": true,
	"between": true, "bigint": true, "binary": true, "boolean": true, "both": true,
	"case": true, "cast": true, "char": true, "character": true, "check": true,
	"collate": true, "collation": true, "column": true, "concurrently": true,
	"constraint": true, "create": true, "cross": true, "current_catalog": true,
	"current_date": true, "current_role": true, "current_schema": true,
	"current_time": true, "current_timestamp": true, "current_user": true,
	"default": true, "deferrable": true, "desc": true, "distinct": true, "do": true,
	"else": true, "end": true, "except": true, "exists": true, "false": true,
	"fetch": true, "for": true, "foreign": true, "freeze": true, "from": true,
	"full": true, "grant": true, "group": true, "having": true, "ilike": true,
	"in": true, "initially": true, "inner": true, "integer": true, "intersect": true,
	"into": true, "is": true, "isnull": true, "join": true, "lateral": true,
	"leading": true, "left": true, "like": true, "limit": true, "localtime": true,
	"localtimestamp": true, "natural": true, "not": true, "notnull": true,
	"null": true, "offset": true, "on": true, "only": true, "or": true, "order": true,
	"outer": true, "overlaps": true, "placing": true, "primary": true,
	"references": true, "returning": true, "right": true, "select": true,
	"session_user": true, "similar": true, "some": true, "symmetric": true,
	"table": true, "tablesample": true, "then": true, "time": true, "timestamp": true,
	"to": true, "trailing": true, "true": true, "union": true, "unique": true,
	"user": true, "using": true, "variadic": true, "verbose": true, "when": true,
	"where": true, "window": true, "with": true,
}

// NeedsQuoting reports whether an identifier must be quoted to survive
// PostgreSQL's lower-case folding or to avoid a reserved word.
func NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}
	if reservedWords[strings.ToLower(identifier)] {
		return true
	}
	for i, r := range identifier {
		if unicode.IsUpper(r) {
			return true
		}
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}
	return false
}

// QuoteIdentifier quotes an identifier only when needed.
func QuoteIdentifier(identifier string) string {
	if NeedsQuoting(identifier) {
		return pq.QuoteIdentifier(identifier)
	}
	return identifier
}

// QualifiedName returns schema.name with each part quoted as needed.
func QualifiedName(schemaName, name string) string {
	if schemaName == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(schemaName) + "." + QuoteIdentifier(name)
}

// QuoteLiteral quotes a string literal.
func QuoteLiteral(s string) string {
	return pq.QuoteLiteral(s)
}

// QuoteColumns quotes and joins a column list.
func QuoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}
