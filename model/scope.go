package model

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pgschema/pgmerge/schema"
)

// Provider supplies the desired schema. Scope implements it by reflection;
// generated or hand-written providers satisfy the engine just as well.
type Provider interface {
	Desired() (*schema.Schema, error)
}

// Scope is the set of model types reconciled together. Go cannot enumerate
// the types of a package at run time, so models are registered explicitly.
type Scope struct {
	defaultSchema string
	types         []reflect.Type
}

// NewScope returns a scope whose models default to defaultSchema ("public"
// when empty). Values that are not models are ignored.
func NewScope(defaultSchema string, models ...any) *Scope {
	if defaultSchema == "" {
		defaultSchema = schema.DefaultSchema
	}
	s := &Scope{defaultSchema: defaultSchema}
	s.Register(models...)
	return s
}

// Register adds model types to the scope. A model may be given as a value, a
// pointer or a reflect.Type.
func (s *Scope) Register(models ...any) *Scope {
	for _, m := range models {
		var t reflect.Type
		if rt, ok := m.(reflect.Type); ok {
			t = rt
		} else {
			t = reflect.TypeOf(m)
		}
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil || !IsModel(t) || s.has(t) {
			continue
		}
		s.types = append(s.types, t)
	}
	return s
}

func (s *Scope) has(t reflect.Type) bool {
	for _, existing := range s.types {
		if existing == t {
			return true
		}
	}
	return false
}

// Schemas returns the distinct schemas of the tables p declares, sorted. A
// provider declaring no tables yields its default schema. Nil is returned when
// p fails; the engine reports that failure when it reads p itself.
func Schemas(p Provider) []string {
	desired, err := p.Desired()
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	for _, t := range desired.Tables {
		key := strings.ToLower(t.Identity.Schema)
		if !seen[key] {
			seen[key] = true
			names = append(names, t.Identity.Schema)
		}
	}
	if len(names) == 0 {
		if d, ok := p.(interface{ DefaultSchema() string }); ok {
			return []string{d.DefaultSchema()}
		}
		return []string{schema.DefaultSchema}
	}
	sort.Strings(names)
	return names
}

// DefaultSchema returns the schema used by models that do not name one.
func (s *Scope) DefaultSchema() string {
	return s.defaultSchema
}

// Types returns the registered model types that are not excluded.
func (s *Scope) Types() []reflect.Type {
	var types []reflect.Type
	for _, t := range s.types {
		if !optionsOf(t).Exclude {
			types = append(types, t)
		}
	}
	return types
}

var recordType = reflect.TypeFor[Record[int64]]()

// IsModel reports whether t is a struct embedding Record.
func IsModel(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || isRecord(t) {
		return false
	}
	return t.Implements(keyedType)
}

func isRecord(t reflect.Type) bool {
	return t.PkgPath() == recordType.PkgPath() && strings.HasPrefix(t.Name(), "Record[")
}

func optionsOf(t reflect.Type) Options {
	if o, ok := reflect.New(t).Interface().(Optioner); ok {
		return o.ModelOptions()
	}
	return Options{}
}

// modelInfo is what extraction of one model needs to know about every other.
type modelInfo struct {
	typ            reflect.Type
	opts           Options
	id             schema.TableIdentity
	identityColumn string
	keyType        reflect.Type
}

// Desired extracts the desired schema from the registered models. Problems
// with individual fields are attached to the descriptors; an error is only
// returned when two models claim the same table.
func (s *Scope) Desired() (*schema.Schema, error) {
	infos, err := s.infos()
	if err != nil {
		return nil, err
	}

	out := schema.New()
	r := newResolver(infos)
	for _, info := range infos {
		out.AddTable(extract(info, r))
	}
	return out, nil
}

func (s *Scope) infos() ([]*modelInfo, error) {
	var infos []*modelInfo
	seen := make(map[string]reflect.Type)

	for _, t := range s.Types() {
		opts := optionsOf(t)

		schemaName := opts.Schema
		if schemaName == "" {
			schemaName = s.defaultSchema
		}
		name := opts.Name
		if name == "" {
			name = SnakeCase(t.Name())
		}
		id := schema.NewTableIdentity(schemaName, name)
		if other, ok := seen[id.Key()]; ok {
			return nil, fmt.Errorf("models %s and %s both map to table %s", other, t, id)
		}
		seen[id.Key()] = t

		identity := opts.IdentityColumn
		if identity == "" {
			identity = identityColumnName(t)
		}

		infos = append(infos, &modelInfo{
			typ:            t,
			opts:           opts,
			id:             id,
			identityColumn: identity,
			keyType:        reflect.New(t).Elem().Interface().(keyed).keyType(),
		})
	}
	return infos, nil
}

// identityColumnName reads the db tag of the promoted ID field.
func identityColumnName(t reflect.Type) string {
	if f, ok := t.FieldByName("ID"); ok {
		if db, ok := f.Tag.Lookup("db"); ok && db != "" && db != "-" {
			name, _, _ := strings.Cut(db, ",")
			return name
		}
	}
	return "id"
}

// resolver finds referenced models by type, type name or table name.
type resolver struct {
	byType map[reflect.Type]*modelInfo
	byName map[string]*modelInfo
}

func newResolver(infos []*modelInfo) *resolver {
	r := &resolver{
		byType: make(map[reflect.Type]*modelInfo),
		byName: make(map[string]*modelInfo),
	}
	for _, info := range infos {
		r.byType[info.typ] = info
		r.byName[strings.ToLower(info.typ.Name())] = info
	}
	// Table names are a fallback and never shadow a type name.
	for _, info := range infos {
		for _, key := range []string{strings.ToLower(info.id.Name), info.id.Key()} {
			if _, ok := r.byName[key]; !ok {
				r.byName[key] = info
			}
		}
	}
	return r
}

func (r *resolver) resolve(ref any) (*modelInfo, string) {
	switch v := ref.(type) {
	case nil:
		return nil, "missing reference target"
	case string:
		if info, ok := r.byName[strings.ToLower(strings.TrimSpace(v))]; ok {
			return info, ""
		}
		return nil, fmt.Sprintf("references unknown model %q", v)
	case reflect.Type:
		return r.resolveType(v)
	default:
		return r.resolveType(reflect.TypeOf(v))
	}
}

func (r *resolver) resolveType(t reflect.Type) (*modelInfo, string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if info, ok := r.byType[t]; ok {
		return info, ""
	}
	return nil, fmt.Sprintf("references unregistered model %s", t)
}
