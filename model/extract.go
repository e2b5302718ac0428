package model

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pgschema/pgmerge/schema"
)

// FieldOrigin points a column back at the struct field that declared it.
type FieldOrigin struct {
	Model reflect.Type
	Field string
}

// Describe returns Type.Field.
func (o FieldOrigin) Describe() string {
	return o.Model.Name() + "." + o.Field
}

// TypeOrigin points a table back at its model type.
type TypeOrigin struct {
	Model reflect.Type
}

// Describe returns the qualified type name.
func (o TypeOrigin) Describe() string {
	return o.Model.String()
}

// leafTypes are struct types mapped to a single column even when embedded.
var leafTypes = map[reflect.Type]bool{
	timeType:     true,
	pgTimeType:   true,
	numericType:  true,
	uuidType:     true,
	nullUUIDType: true,
}

type extractor struct {
	info     *modelInfo
	resolver *resolver
	table    *schema.Table
	columns  []*schema.Column
	// fields maps lower-cased Go field names to column names.
	fields map[string]string
}

func extract(info *modelInfo, r *resolver) *schema.Table {
	e := &extractor{
		info:     info,
		resolver: r,
		table:    schema.NewTable(info.id),
		fields:   make(map[string]string),
	}
	e.table.Origin = TypeOrigin{Model: info.typ}
	e.table.AllowDrop = info.opts.AllowDrop

	identity := e.identityColumn()
	e.walk(info.typ)

	if info.opts.IdentityPosition == PositionEnd {
		e.table.Columns = append(e.columns, identity)
	} else {
		e.table.Columns = append([]*schema.Column{identity}, e.columns...)
	}

	e.applyDefaults()
	e.primaryKey(identity)
	e.uniques()
	e.typeForeignKeys()
	return e.table
}

func (e *extractor) identityColumn() *schema.Column {
	spec, def := keyColumnType(e.info.keyType)
	return &schema.Column{
		Table:    e.info.id,
		Name:     e.info.identityColumn,
		Origin:   FieldOrigin{Model: e.info.typ, Field: "ID"},
		DataType: spec.Name,
		Identity: true,
		Default:  def,
	}
}

// walk visits exported fields in declaration order, flattening embedded
// structs the way sqlx does.
func (e *extractor) walk(t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && !leafTypes[ft] {
				if isRecord(ft) {
					continue
				}
				if tag, _ := parseTag(f); tag.Skip {
					continue
				}
				e.walk(ft)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		e.field(f)
	}
}

func (e *extractor) field(f reflect.StructField) {
	tag, problems := parseTag(f)
	if tag.Skip {
		return
	}
	// Read-only fields are never written and have no column of their own.
	if tag.Access == AccessReadOnly && tag.Computed == "" {
		return
	}

	name := tag.Column
	if name == "" {
		name = SnakeCase(f.Name)
	}
	if strings.EqualFold(name, e.info.identityColumn) {
		e.table.Problems = append(e.table.Problems,
			fmt.Sprintf("field %s maps to the identity column %q", f.Name, name))
		return
	}
	if e.column(name) != nil {
		e.table.Problems = append(e.table.Problems,
			fmt.Sprintf("field %s duplicates column %q", f.Name, name))
		return
	}
	e.fields[strings.ToLower(f.Name)] = name

	col := &schema.Column{
		Table:      e.info.id,
		Name:       name,
		Origin:     FieldOrigin{Model: e.info.typ, Field: f.Name},
		PrimaryKey: tag.PrimaryKey,
		Unique:     tag.Unique,
		Default:    tag.Default,
		InsertExpr: tag.Insert,
		Computed:   tag.Computed,
		Problems:   problems,
	}

	ct, err := mapType(f.Type, tag)
	if err != nil {
		col.Problems = append(col.Problems, err.Error())
	}
	col.DataType = ct.spec.Name
	col.Length = ct.spec.Length
	col.Precision = ct.spec.Precision
	col.Scale = ct.spec.Scale
	col.Nullable = ct.nullable && !tag.PrimaryKey
	col.NullableGeneric = ct.generic

	if tag.Cascade && tag.References == "" {
		col.Problems = append(col.Problems, "cascade requires references")
	}
	if tag.References != "" {
		e.addForeignKey(name, tag.References, tag.Cascade)
	}

	e.columns = append(e.columns, col)
}

// column looks up a column by column name or Go field name.
func (e *extractor) column(name string) *schema.Column {
	if mapped, ok := e.fields[strings.ToLower(name)]; ok {
		name = mapped
	}
	if strings.EqualFold(name, e.info.identityColumn) || strings.EqualFold(name, "ID") {
		for _, c := range e.table.Columns {
			if c.Identity {
				return c
			}
		}
	}
	for _, c := range e.columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func (e *extractor) applyDefaults() {
	keys := make([]string, 0, len(e.info.opts.Defaults))
	for k := range e.info.opts.Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col := e.column(k)
		if col == nil {
			e.table.Problems = append(e.table.Problems, fmt.Sprintf("default for unknown column %q", k))
			continue
		}
		if col.Default == "" {
			col.Default = e.info.opts.Defaults[k]
		}
	}
}

func (e *extractor) primaryKey(identity *schema.Column) {
	base := e.info.id.ConstraintBase()

	var pk []string
	for _, c := range e.columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}

	if len(pk) == 0 {
		identity.PrimaryKey = true
		pk = []string{identity.Name}
	} else {
		identity.Unique = true
		e.table.Uniques = append(e.table.Uniques, &schema.UniqueConstraint{
			Name:    fmt.Sprintf("u_%s_%s", base, identity.Name),
			Columns: []string{identity.Name},
		})
	}
	e.table.PrimaryKey = &schema.PrimaryKey{Name: "pk_" + base, Columns: pk}
}

func (e *extractor) uniques() {
	base := e.info.id.ConstraintBase()

	for _, c := range e.columns {
		if c.Unique {
			e.table.Uniques = append(e.table.Uniques, &schema.UniqueConstraint{
				Name:    fmt.Sprintf("u_%s_%s", base, c.Name),
				Columns: []string{c.Name},
			})
		}
	}

	for i, uk := range e.info.opts.UniqueKeys {
		name := uk.Name
		if name == "" {
			name = fmt.Sprintf("u_%s_%d", base, i)
		}
		if len(uk.Columns) == 0 {
			e.table.Problems = append(e.table.Problems, fmt.Sprintf("unique key %s has no columns", name))
			continue
		}

		var cols []string
		for _, ref := range uk.Columns {
			col := e.column(ref)
			if col == nil {
				e.table.Problems = append(e.table.Problems,
					fmt.Sprintf("unique key %s references unknown column %q", name, ref))
				continue
			}
			cols = append(cols, col.Name)
		}
		if len(cols) == len(uk.Columns) {
			e.table.Uniques = append(e.table.Uniques, &schema.UniqueConstraint{Name: name, Columns: cols})
		}
	}
}

func (e *extractor) typeForeignKeys() {
	for _, fk := range e.info.opts.ForeignKeys {
		col := e.column(fk.Column)
		if col == nil {
			e.table.Problems = append(e.table.Problems,
				fmt.Sprintf("foreign key references unknown column %q", fk.Column))
			continue
		}
		e.addForeignKey(col.Name, fk.References, fk.Cascade)
	}
}

func (e *extractor) addForeignKey(column string, ref any, cascade bool) {
	fk := &schema.ForeignKey{
		Name:          fmt.Sprintf("fk_%s_%s", e.info.id.ConstraintBase(), column),
		Table:         e.info.id,
		Column:        column,
		CascadeDelete: cascade,
	}
	target, problem := e.resolver.resolve(ref)
	if problem != "" {
		fk.Problems = append(fk.Problems, problem)
	} else {
		fk.References = target.id
		fk.ReferencedColumn = target.identityColumn
	}
	e.table.ForeignKeys = append(e.table.ForeignKeys, fk)
}
