package sanitize

import (
	"reflect"
	"strings"
	"sync"
)

// Schema names the fields that must never leave the service. Field names are
// matched at every depth of the record; Refs switches to another schema when
// the walker descends into the named field (a populated reference).
type Schema struct {
	private map[string]struct{}
	refs    map[string]*Schema
}

// NewSchema returns a schema flagging the given field names as private.
func NewSchema(private ...string) *Schema {
	s := &Schema{
		private: make(map[string]struct{}, len(private)),
		refs:    make(map[string]*Schema),
	}
	for _, name := range private {
		s.private[name] = struct{}{}
	}
	return s
}

// WithRef attaches the schema used for a populated reference field.
func (s *Schema) WithRef(field string, ref *Schema) *Schema {
	s.refs[field] = ref
	return s
}

// IsPrivate reports whether name is flagged private.
func (s *Schema) IsPrivate(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.private[name]
	return ok
}

// Private lists the private field names.
func (s *Schema) Private() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.private))
	for name := range s.private {
		out = append(out, name)
	}
	return out
}

func (s *Schema) ref(field string) (*Schema, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.refs[field]
	return r, ok
}

var schemaCache sync.Map // reflect.Type -> *Schema

// SchemaOf builds a schema from the `private:"true"` tags of a struct type,
// including nested struct fields. Results are cached per type.
func SchemaOf(v any) *Schema {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return NewSchema()
	}
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*Schema)
	}
	s := NewSchema()
	collectPrivate(t, s, map[reflect.Type]bool{})
	schemaCache.Store(t, s)
	return s
}

func collectPrivate(t reflect.Type, s *Schema, seen map[reflect.Type]bool) {
	if seen[t] {
		return
	}
	seen[t] = true
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, skip := jsonName(f)
		if skip {
			continue
		}
		if f.Tag.Get("private") == "true" {
			s.private[name] = struct{}{}
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer || ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && !isLeafType(ft) {
			collectPrivate(ft, s, seen)
		}
	}
}

// jsonName resolves the wire name of a struct field the way encoding/json does.
func jsonName(f reflect.StructField) (name string, omitempty bool, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	if tag != "" {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitempty = true
			}
		}
	}
	return name, omitempty, false
}
