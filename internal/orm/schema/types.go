// Package schema compiles declared attribute type metadata into storage-ready
// schema definitions. It defines the closed TypeMetadata variant set, the
// compiled Fragment tree, and the AttributeSchema and ModelSchema descriptors
// handed to persistence adapters.
package schema

import (
	"encoding/json"
	"fmt"
)

// StorageType represents the storage-level type of a compiled fragment
type StorageType int

const (
	// Opaque storage, accepts any value
	TypeMixed StorageType = iota

	// Scalar types
	TypeString
	TypeNumber
	TypeBoolean
	TypeDate
	TypeBuffer
	TypeBigInt
	TypeDecimal128

	// Identifiers
	TypeObjectID
	TypeUUID

	// Containers
	TypeMap
	TypeArray
	TypeSubdocument
)

// String returns the canonical name of the storage type
func (t StorageType) String() string {
	switch t {
	case TypeMixed:
		return "Mixed"
	case TypeString:
		return "String"
	case TypeNumber:
		return "Number"
	case TypeBoolean:
		return "Boolean"
	case TypeDate:
		return "Date"
	case TypeBuffer:
		return "Buffer"
	case TypeBigInt:
		return "BigInt"
	case TypeDecimal128:
		return "Decimal128"
	case TypeObjectID:
		return "ObjectId"
	case TypeUUID:
		return "UUID"
	case TypeMap:
		return "Map"
	case TypeArray:
		return "Array"
	case TypeSubdocument:
		return "Subdocument"
	default:
		return "unknown"
	}
}

// ParseStorageType converts a canonical name to a StorageType
func ParseStorageType(s string) (StorageType, error) {
	if t, ok := LookupStorageType(s); ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown storage type: %s", s)
}

// primitiveTypes is the fixed table of primitive names the resolver knows.
// The lowercase aliases are the keyword spellings emitted for built-in types.
var primitiveTypes = map[string]StorageType{
	"Mixed":       TypeMixed,
	"String":      TypeString,
	"Number":      TypeNumber,
	"Boolean":     TypeBoolean,
	"Date":        TypeDate,
	"Buffer":      TypeBuffer,
	"BigInt":      TypeBigInt,
	"Decimal128":  TypeDecimal128,
	"ObjectId":    TypeObjectID,
	"UUID":        TypeUUID,
	"Map":         TypeMap,
	"Array":       TypeArray,
	"Subdocument": TypeSubdocument,
	"string":      TypeString,
	"number":      TypeNumber,
	"boolean":     TypeBoolean,
	"bigint":      TypeBigInt,
}

// LookupStorageType looks a primitive name up in the fixed primitive table
func LookupStorageType(name string) (StorageType, bool) {
	t, ok := primitiveTypes[name]
	return t, ok
}

// MarshalJSON encodes the storage type by name
func (t StorageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a storage type name
func (t *StorageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseStorageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FragmentKind identifies the shape of a compiled fragment
type FragmentKind int

const (
	KindScalar FragmentKind = iota
	KindReference
	KindArray
	KindEnum
	KindObject
)

// String returns the string representation of the fragment kind
func (k FragmentKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindReference:
		return "reference"
	case KindArray:
		return "array"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the fragment kind by name
func (k FragmentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Fragment is the compiled, storage-ready definition of one attribute type
type Fragment struct {
	Kind FragmentKind `json:"kind"`
	Type StorageType  `json:"type"`

	// Ref is the identifier of the referenced model (KindReference)
	Ref string `json:"ref,omitempty"`

	// Enum holds the allowed values (KindEnum). A non-nil empty slice means
	// the enumeration is degenerate.
	Enum []interface{} `json:"enum,omitempty"`

	// Element is the compiled element type (KindArray)
	Element *Fragment `json:"element,omitempty"`

	// Fields and Order describe a nested sub-schema (KindObject)
	Fields map[string]*Fragment `json:"fields,omitempty"`
	Order  []string             `json:"order,omitempty"`
}

// Depth returns the nesting depth of the fragment. Leaves have depth 1.
func (f *Fragment) Depth() int {
	if f == nil {
		return 0
	}
	switch f.Kind {
	case KindArray:
		return 1 + f.Element.Depth()
	case KindObject:
		deepest := 0
		for _, field := range f.Fields {
			if d := field.Depth(); d > deepest {
				deepest = d
			}
		}
		return 1 + deepest
	default:
		return 1
	}
}

// Allows reports whether value is acceptable for an enum fragment.
// Non-enum fragments and enums without values accept every value.
func (f *Fragment) Allows(value interface{}) bool {
	if f == nil || f.Kind != KindEnum {
		return true
	}
	// A degenerate enumeration restricts nothing
	if len(f.Enum) == 0 {
		return true
	}
	for _, allowed := range f.Enum {
		if literalEqual(allowed, value) {
			return true
		}
	}
	return false
}

// MarshalJSON always emits the allowed values of an enum fragment, even
// when there are none
func (f *Fragment) MarshalJSON() ([]byte, error) {
	type plain Fragment
	if f.Kind != KindEnum {
		return json.Marshal((*plain)(f))
	}
	enum := f.Enum
	if enum == nil {
		enum = []interface{}{}
	}
	return json.Marshal(struct {
		*plain
		Enum []interface{} `json:"enum"`
	}{plain: (*plain)(f), Enum: enum})
}

// String returns a compact representation of the fragment
func (f *Fragment) String() string {
	if f == nil {
		return "<nil>"
	}
	switch f.Kind {
	case KindReference:
		return fmt.Sprintf("ref<%s>", f.Ref)
	case KindArray:
		return fmt.Sprintf("[%s]", f.Element.String())
	case KindEnum:
		return fmt.Sprintf("enum<%s>%v", f.Type, f.Enum)
	case KindObject:
		return fmt.Sprintf("object%v", f.Order)
	default:
		return f.Type.String()
	}
}

func literalEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return a == b
}
