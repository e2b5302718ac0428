package model

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgschema/pgmerge/schema"
)

// Default precision and scale for decimal columns without a precision tag.
const (
	DefaultPrecision = 5
	DefaultScale     = 2
)

var (
	timeType     = reflect.TypeFor[time.Time]()
	pgTimeType   = reflect.TypeFor[pgtype.Time]()
	numericType  = reflect.TypeFor[pgtype.Numeric]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	charType     = reflect.TypeFor[Char]()
	nullUUIDType = reflect.TypeFor[uuid.NullUUID]()
)

// nullTypes maps the database/sql nullable wrappers to the type they carry.
var nullTypes = map[reflect.Type]reflect.Type{
	reflect.TypeFor[sql.NullString]():  reflect.TypeFor[string](),
	reflect.TypeFor[sql.NullBool]():    reflect.TypeFor[bool](),
	reflect.TypeFor[sql.NullByte]():    reflect.TypeFor[uint8](),
	reflect.TypeFor[sql.NullInt16]():   reflect.TypeFor[int16](),
	reflect.TypeFor[sql.NullInt32]():   reflect.TypeFor[int32](),
	reflect.TypeFor[sql.NullInt64]():   reflect.TypeFor[int64](),
	reflect.TypeFor[sql.NullFloat64](): reflect.TypeFor[float64](),
	reflect.TypeFor[sql.NullTime]():    timeType,
	nullUUIDType:                       uuidType,
}

// columnType is the SQL type and nullability derived from a Go field type.
type columnType struct {
	spec     schema.TypeSpec
	nullable bool
	// generic is set when nullability comes from a pointer or wrapper type.
	generic bool
}

// nullableInner unwraps sql.Null[T] and the fixed sql.Null* wrappers.
func nullableInner(t reflect.Type) (reflect.Type, bool) {
	if inner, ok := nullTypes[t]; ok {
		return inner, true
	}
	if t.PkgPath() == "database/sql" && strings.HasPrefix(t.Name(), "Null[") {
		if f, ok := t.FieldByName("V"); ok {
			return f.Type, true
		}
	}
	return nil, false
}

// mapType derives the column type of a field. An explicit type tag replaces
// the derived type but nullability still follows the Go type.
func mapType(t reflect.Type, tag fieldTag) (columnType, error) {
	var ct columnType

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		if t.Kind() == reflect.Pointer {
			return ct, fmt.Errorf("unsupported type **%s", t.Elem())
		}
		ct.nullable, ct.generic = true, true
	} else if inner, ok := nullableInner(t); ok {
		t = inner
		ct.nullable, ct.generic = true, true
	}

	if tag.Type != "" {
		spec, err := schema.ParseType(tag.Type)
		if err != nil {
			return ct, fmt.Errorf("invalid type tag: %w", err)
		}
		ct.spec = spec
		return ct, nil
	}

	spec, err := baseType(t, tag)
	if err != nil {
		return ct, err
	}
	ct.spec = spec
	return ct, nil
}

func baseType(t reflect.Type, tag fieldTag) (schema.TypeSpec, error) {
	switch t {
	case timeType:
		return schema.TypeSpec{Name: schema.TypeTimestamp}, nil
	case pgTimeType:
		return schema.TypeSpec{Name: schema.TypeTime}, nil
	case uuidType:
		return schema.TypeSpec{Name: schema.TypeUUID}, nil
	case charType:
		return schema.TypeSpec{Name: schema.TypeChar, Length: 1}, nil
	case numericType:
		spec := schema.TypeSpec{Name: schema.TypeNumeric, Precision: DefaultPrecision, Scale: DefaultScale}
		if tag.Precision > 0 {
			spec.Precision, spec.Scale = tag.Precision, tag.Scale
		}
		if spec.Scale > spec.Precision {
			return spec, fmt.Errorf("scale %d exceeds precision %d", spec.Scale, spec.Precision)
		}
		return spec, nil
	}

	switch t.Kind() {
	case reflect.String:
		if tag.Size > 0 {
			return schema.TypeSpec{Name: schema.TypeVarchar, Length: tag.Size}, nil
		}
		return schema.TypeSpec{Name: schema.TypeText}, nil
	case reflect.Bool:
		return schema.TypeSpec{Name: schema.TypeBoolean}, nil
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return schema.TypeSpec{Name: schema.TypeSmallint}, nil
	case reflect.Int32, reflect.Uint16:
		return schema.TypeSpec{Name: schema.TypeInteger}, nil
	case reflect.Int, reflect.Int64, reflect.Uint32:
		return schema.TypeSpec{Name: schema.TypeBigint}, nil
	case reflect.Float32:
		return schema.TypeSpec{Name: schema.TypeReal}, nil
	case reflect.Float64:
		return schema.TypeSpec{Name: schema.TypeDouble}, nil
	}
	return schema.TypeSpec{}, fmt.Errorf("unsupported type %s", t)
}

// keyColumnType maps a Record key type to its column type and default.
func keyColumnType(k reflect.Type) (schema.TypeSpec, string) {
	switch k {
	case uuidType:
		return schema.TypeSpec{Name: schema.TypeUUID}, "gen_random_uuid()"
	}
	if k.Kind() == reflect.Int32 {
		return schema.TypeSpec{Name: schema.TypeInteger}, ""
	}
	return schema.TypeSpec{Name: schema.TypeBigint}, ""
}
