package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical type names as printed by format_type().
const (
	TypeText        = "text"
	TypeVarchar     = "character varying"
	TypeChar        = "character"
	TypeBoolean     = "boolean"
	TypeSmallint    = "smallint"
	TypeInteger     = "integer"
	TypeBigint      = "bigint"
	TypeReal        = "real"
	TypeDouble      = "double precision"
	TypeNumeric     = "numeric"
	TypeTimestamp   = "timestamp without time zone"
	TypeTimestampTZ = "timestamp with time zone"
	TypeTime        = "time without time zone"
	TypeDate        = "date"
	TypeUUID        = "uuid"
	TypeBytea       = "bytea"
)

// typeSynonyms maps alternate spellings to the canonical name.
var typeSynonyms = map[string]string{
	"varchar":     TypeVarchar,
	"char":        TypeChar,
	"bpchar":      TypeChar,
	"int":         TypeInteger,
	"int4":        TypeInteger,
	"int2":        TypeSmallint,
	"int8":        TypeBigint,
	"serial":      TypeInteger,
	"serial4":     TypeInteger,
	"smallserial": TypeSmallint,
	"serial2":     TypeSmallint,
	"bigserial":   TypeBigint,
	"serial8":     TypeBigint,
	"float4":      TypeReal,
	"float8":      TypeDouble,
	"float":       TypeDouble,
	"bool":        TypeBoolean,
	"decimal":     TypeNumeric,
	"timestamp":   TypeTimestamp,
	"timestamptz": TypeTimestampTZ,
	"time":        TypeTime,
	"timetz":      "time with time zone",
}

// CanonicalType returns the canonical lower-case spelling of a base type name.
func CanonicalType(name string) string {
	n := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if canonical, ok := typeSynonyms[n]; ok {
		return canonical
	}
	return n
}

// TypeSpec is a parsed SQL type: base name plus optional modifiers.
type TypeSpec struct {
	Name      string
	Length    int
	Precision int
	Scale     int
}

// ParseType parses a type such as "VARCHAR(50)" or "numeric(10, 2)".
func ParseType(s string) (TypeSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeSpec{}, fmt.Errorf("empty type name")
	}

	base, args := s, ""
	if open := strings.Index(s, "("); open >= 0 {
		close := strings.LastIndex(s, ")")
		if close < open {
			return TypeSpec{}, fmt.Errorf("unbalanced parentheses in type %q", s)
		}
		base = s[:open] + s[close+1:]
		args = s[open+1 : close]
	}

	spec := TypeSpec{Name: CanonicalType(base)}
	if args == "" {
		return spec, nil
	}

	var nums []int
	for _, part := range strings.Split(args, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return TypeSpec{}, fmt.Errorf("invalid type modifier in %q: %w", s, err)
		}
		nums = append(nums, n)
	}

	switch spec.Name {
	case TypeNumeric:
		spec.Precision = nums[0]
		if len(nums) > 1 {
			spec.Scale = nums[1]
		}
	default:
		spec.Length = nums[0]
	}
	return spec, nil
}

// SQL renders the type the way format_type() prints it.
func (t TypeSpec) SQL() string {
	switch t.Name {
	case TypeVarchar, TypeChar:
		if t.Length > 0 {
			return fmt.Sprintf("%s(%d)", t.Name, t.Length)
		}
	case TypeNumeric:
		if t.Precision > 0 {
			return fmt.Sprintf("%s(%d,%d)", t.Name, t.Precision, t.Scale)
		}
	}
	return t.Name
}

// IsUnbounded reports whether the type has no maximum length.
func (t TypeSpec) IsUnbounded() bool {
	switch t.Name {
	case TypeText, TypeBytea:
		return true
	case TypeVarchar:
		return t.Length == 0
	}
	return false
}
