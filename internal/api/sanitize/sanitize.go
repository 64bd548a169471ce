// Package sanitize turns stored records into their public wire form.
//
// Every record leaving the service goes through Value: private fields are
// dropped at any depth, the storage identifier `_id` becomes `id`, actor
// references are rendered as strings and the document revision counter `__v`
// disappears. The result is made of plain maps, slices and leaf values, so
// running it through Value again yields the same thing.
package sanitize

import (
	"encoding"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	idKey      = "_id"
	publicID   = "id"
	versionKey = "__v"
)

var actorKeys = map[string]struct{}{
	"createdBy": {},
	"updatedBy": {},
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// Public is implemented by values with their own wire form, such as a
// reference that may or may not have been populated.
type Public interface {
	PublicValue() any
}

// Value sanitizes v against schema. A nil schema still applies the
// identifier rules and the struct `private` tags.
func Value(v any, schema *Schema) any {
	return walk(reflect.ValueOf(v), schema)
}

// Struct sanitizes a struct, or pointer to one, using the schema derived from
// its own tags. Non-map results are returned as nil.
func Struct(v any) map[string]any {
	out, _ := Value(v, SchemaOf(v)).(map[string]any)
	return out
}

// Slice sanitizes each element of a typed slice.
func Slice[T any](items []T, schema *Schema) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, Value(item, schema))
	}
	return out
}

func walk(v reflect.Value, schema *Schema) any {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	if p, ok := v.Interface().(Public); ok {
		return walk(reflect.ValueOf(p.PublicValue()), schema)
	}

	// bson.D keeps its order on the wire only through the driver; the public
	// form is a plain object.
	if d, ok := v.Interface().(primitive.D); ok {
		m := make(map[string]any, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return walkMap(reflect.ValueOf(m), schema)
	}

	if isLeafType(v.Type()) {
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		return walkMap(v, schema)
	case reflect.Struct:
		return walkStruct(v, schema)
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		return walkList(v, schema)
	case reflect.Array:
		return walkList(v, schema)
	default:
		return v.Interface()
	}
}

func walkList(v reflect.Value, schema *Schema) []any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = walk(v.Index(i), schema)
	}
	return out
}

// walkMap and walkStruct put `_id` last so it wins over a plain `id` key.
func walkMap(v reflect.Value, schema *Schema) map[string]any {
	out := make(map[string]any, v.Len())
	var id reflect.Value
	iter := v.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		switch {
		case schema.IsPrivate(key):
			continue
		case key == idKey:
			id = iter.Value()
			continue
		}
		put(out, key, iter.Value(), schema)
	}
	if id.IsValid() {
		put(out, idKey, id, schema)
	}
	return out
}

func walkStruct(v reflect.Value, schema *Schema) map[string]any {
	out := make(map[string]any, v.NumField())
	var id reflect.Value
	structFields(v, func(key string, fv reflect.Value, private bool) {
		switch {
		case private || schema.IsPrivate(key):
			return
		case key == idKey:
			id = fv
			return
		}
		put(out, key, fv, schema)
	})
	if id.IsValid() {
		put(out, idKey, id, schema)
	}
	return out
}

// structFields visits the exported fields of v under their json names,
// flattening embedded structs and honouring omitempty.
func structFields(v reflect.Value, visit func(key string, fv reflect.Value, private bool)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fv := v.Field(i)
		if f.Anonymous && f.Tag.Get("json") == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct && !isLeafType(inner.Type()) {
				structFields(inner, visit)
				continue
			}
		}
		name, omitempty, skip := jsonName(f)
		if skip {
			continue
		}
		if omitempty && isEmpty(fv) {
			continue
		}
		visit(name, fv, f.Tag.Get("private") == "true")
	}
}

func put(out map[string]any, key string, fv reflect.Value, schema *Schema) {
	switch {
	case key == versionKey:
		return
	case key == idKey:
		if id := idString(fv); id != "" {
			out[publicID] = id
		}
		return
	}
	if _, actor := actorKeys[key]; actor {
		if s := idString(fv); s != "" {
			out[key] = s
			return
		}
	}
	next := schema
	if ref, ok := schema.ref(key); ok {
		next = ref
	}
	out[key] = walk(fv, next)
}

// idString renders identifiers the way clients see them: ObjectIDs as hex,
// anything else through its text form.
func idString(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch id := v.Interface().(type) {
	case primitive.ObjectID:
		if id.IsZero() {
			return ""
		}
		return id.Hex()
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	}
	switch v.Kind() {
	case reflect.Map, reflect.Struct:
		// A populated actor reference: keep its identifier.
		if m, ok := walk(v, nil).(map[string]any); ok {
			if s, ok := m[publicID].(string); ok {
				return s
			}
		}
		return ""
	}
	return fmt.Sprint(v.Interface())
}

func isLeafType(t reflect.Type) bool {
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return true
	}
	return false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	case reflect.Struct:
		return false
	}
	return v.IsZero()
}
