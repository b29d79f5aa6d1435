package model

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// FieldAccessor gives the interception layer access to the raw fields of a
// model. Raw values that do not implement it must be struct pointers and are
// accessed through reflection.
type FieldAccessor interface {
	Field(name string) (interface{}, bool)
	CanSetField(name string, value interface{}) bool
	SetField(name string, value interface{}) bool
	ResetField(name string) bool
	DeleteField(name string) bool
	FieldNames() []string
}

// Record is a map-backed raw model for classes without a Go struct
type Record map[string]interface{}

func (r Record) Field(name string) (interface{}, bool) {
	v, ok := r[name]
	return v, ok
}

func (r Record) CanSetField(string, interface{}) bool { return true }

func (r Record) SetField(name string, value interface{}) bool {
	r[name] = value
	return true
}

// ResetField keeps the key so the field still counts as declared on the raw model
func (r Record) ResetField(name string) bool {
	if _, ok := r[name]; !ok {
		return false
	}
	r[name] = nil
	return true
}

func (r Record) DeleteField(name string) bool {
	if _, ok := r[name]; !ok {
		return false
	}
	delete(r, name)
	return true
}

func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// structFields accesses the exported fields of a struct pointer by attribute
// name. Field names resolve through the `model` tag, then the `json` tag, then
// the Go field name with a lowercase first letter.
type structFields struct {
	value  reflect.Value
	layout *structLayout
}

type structLayout struct {
	index map[string][]int
	names []string
}

var layoutCache sync.Map // map[reflect.Type]*structLayout

func newFieldAccessor(raw interface{}) (FieldAccessor, error) {
	if fa, ok := raw.(FieldAccessor); ok {
		return fa, nil
	}

	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, &InvalidRawError{Type: reflect.TypeOf(raw)}
	}
	return &structFields{value: v.Elem(), layout: layoutOf(v.Elem().Type())}, nil
}

func layoutOf(t reflect.Type) *structLayout {
	if cached, ok := layoutCache.Load(t); ok {
		return cached.(*structLayout)
	}

	layout := &structLayout{index: make(map[string][]int)}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := fieldName(f)
		if name == "" || name == "-" {
			continue
		}
		if _, exists := layout.index[name]; exists {
			// A shallower field shadows a promoted one
			continue
		}
		layout.index[name] = f.Index
		layout.names = append(layout.names, name)
	}
	sort.Strings(layout.names)

	actual, _ := layoutCache.LoadOrStore(t, layout)
	return actual.(*structLayout)
}

func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("model"); ok {
		return strings.Split(tag, ",")[0]
	}
	if tag, ok := f.Tag.Lookup("json"); ok {
		if name := strings.Split(tag, ",")[0]; name != "" {
			return name
		}
	}
	return lowerFirst(f.Name)
}

func (s *structFields) field(name string) (reflect.Value, bool) {
	index, ok := s.layout.index[name]
	if !ok {
		return reflect.Value{}, false
	}
	fv, err := s.value.FieldByIndexErr(index)
	if err != nil {
		// nil embedded pointer on the path
		return reflect.Value{}, false
	}
	return fv, true
}

func (s *structFields) Field(name string) (interface{}, bool) {
	fv, ok := s.field(name)
	if !ok {
		return nil, false
	}
	return fv.Interface(), true
}

func (s *structFields) CanSetField(name string, value interface{}) bool {
	fv, ok := s.field(name)
	if !ok || !fv.CanSet() {
		return false
	}
	_, ok = coerce(value, fv.Type())
	return ok
}

func (s *structFields) SetField(name string, value interface{}) bool {
	fv, ok := s.field(name)
	if !ok || !fv.CanSet() {
		return false
	}
	v, ok := coerce(value, fv.Type())
	if !ok {
		return false
	}
	fv.Set(v)
	return true
}

func (s *structFields) ResetField(name string) bool {
	fv, ok := s.field(name)
	if !ok || !fv.CanSet() {
		return false
	}
	fv.Set(reflect.Zero(fv.Type()))
	return true
}

// DeleteField resets the field, struct fields cannot be removed
func (s *structFields) DeleteField(name string) bool {
	return s.ResetField(name)
}

func (s *structFields) FieldNames() []string {
	names := make([]string, len(s.layout.names))
	copy(names, s.layout.names)
	return names
}

// method returns the bound exported method matching name
func method(raw interface{}, name string) (interface{}, bool) {
	if raw == nil || name == "" {
		return nil, false
	}
	m := reflect.ValueOf(raw).MethodByName(upperFirst(name))
	if !m.IsValid() {
		return nil, false
	}
	return m.Interface(), true
}

// coerce converts value to t. Numeric kinds convert between each other; other
// values must be assignable.
func coerce(value interface{}, t reflect.Type) (reflect.Value, bool) {
	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		default:
			return reflect.Value{}, false
		}
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, true
	}
	if isNumeric(v.Kind()) && isNumeric(t.Kind()) {
		return v.Convert(t), true
	}
	return reflect.Value{}, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
