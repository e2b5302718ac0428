package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// TagName is the struct tag key read by the extractor.
const TagName = "pgmerge"

// fieldTag holds the parsed pgmerge and db tags of one field.
type fieldTag struct {
	Skip       bool
	Column     string
	PrimaryKey bool
	Unique     bool
	Size       int
	Precision  int
	Scale      int
	Type       string
	References string
	Cascade    bool
	Default    string
	Insert     string
	Computed   string
	Access     Access
}

// parseTag reads the pgmerge and db tags of a field. Problems with the tag
// contents are returned as messages rather than failing the whole model.
func parseTag(f reflect.StructField) (fieldTag, []string) {
	var tag fieldTag
	var problems []string

	if db, ok := f.Tag.Lookup("db"); ok {
		name, _, _ := strings.Cut(db, ",")
		if name == "-" {
			tag.Skip = true
			return tag, nil
		}
		tag.Column = name
	}

	raw, ok := f.Tag.Lookup(TagName)
	if !ok {
		return tag, nil
	}
	if strings.TrimSpace(raw) == "-" {
		tag.Skip = true
		return tag, nil
	}

	for _, part := range splitOptions(raw) {
		key, value, _ := strings.Cut(part, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "":
		case "pk", "primarykey", "primary_key":
			tag.PrimaryKey = true
		case "unique":
			tag.Unique = true
		case "cascade":
			tag.Cascade = true
		case "column":
			tag.Column = value
		case "size", "precision", "scale":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				problems = append(problems, fmt.Sprintf("invalid %s %q", key, value))
				continue
			}
			switch key {
			case "size":
				tag.Size = n
			case "precision":
				tag.Precision = n
			default:
				tag.Scale = n
			}
		case "type":
			tag.Type = value
		case "references":
			tag.References = value
		case "default":
			tag.Default = value
		case "insert":
			tag.Insert = value
		case "computed":
			tag.Computed = value
		case "access":
			switch a := Access(strings.ToLower(value)); a {
			case AccessInsertOnly, AccessUpdateOnly, AccessReadOnly:
				tag.Access = a
			default:
				problems = append(problems, fmt.Sprintf("unknown access %q", value))
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown tag option %q", key))
		}
	}
	return tag, problems
}

// splitOptions splits on ';' outside of parentheses and quotes, so that
// expressions such as default:concat('a;b') survive.
func splitOptions(raw string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	quoted := false

	for _, r := range raw {
		switch {
		case r == '\'':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// SnakeCase converts a Go identifier to snake_case, keeping acronyms together:
// OrganizationID becomes organization_id and HTTPServer becomes http_server.
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
