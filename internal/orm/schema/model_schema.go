package schema

import (
	"encoding/json"
	"fmt"
)

// ModelSchema is the compiled schema of one model type
type ModelSchema struct {
	ClassName      string
	CollectionName string

	attributes map[string]*AttributeSchema
	order      []string
}

// NewModelSchema creates a ModelSchema from attribute schemas in declaration
// order. A later schema with the same name replaces the earlier one in place.
func NewModelSchema(className, collectionName string, attributes []*AttributeSchema) *ModelSchema {
	ms := &ModelSchema{
		ClassName:      className,
		CollectionName: collectionName,
		attributes:     make(map[string]*AttributeSchema, len(attributes)),
		order:          make([]string, 0, len(attributes)),
	}
	for _, attr := range attributes {
		if _, exists := ms.attributes[attr.Name]; !exists {
			ms.order = append(ms.order, attr.Name)
		}
		ms.attributes[attr.Name] = attr
	}
	return ms
}

// Attribute returns the schema of the named attribute
func (m *ModelSchema) Attribute(name string) (*AttributeSchema, bool) {
	if m == nil {
		return nil, false
	}
	attr, ok := m.attributes[name]
	return attr, ok
}

// Has returns true if the model declares the named attribute
func (m *ModelSchema) Has(name string) bool {
	_, ok := m.Attribute(name)
	return ok
}

// Names returns the declared attribute names in declaration order
func (m *ModelSchema) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Attributes returns the attribute schemas in declaration order
func (m *ModelSchema) Attributes() []*AttributeSchema {
	if m == nil {
		return nil
	}
	result := make([]*AttributeSchema, 0, len(m.order))
	for _, name := range m.order {
		result = append(result, m.attributes[name])
	}
	return result
}

// Len returns the number of declared attributes
func (m *ModelSchema) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Validate checks that every attribute carries a compiled type
func (m *ModelSchema) Validate() error {
	for _, name := range m.order {
		if m.attributes[name].Type == nil {
			return &CompilationError{Model: m.ClassName, Attribute: name, Err: ErrMissingType}
		}
	}
	return nil
}

// MarshalJSON encodes the schema with attributes in declaration order
func (m *ModelSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ClassName      string             `json:"className"`
		CollectionName string             `json:"collectionName"`
		Attributes     []*AttributeSchema `json:"attributes"`
	}{
		ClassName:      m.ClassName,
		CollectionName: m.CollectionName,
		Attributes:     m.Attributes(),
	})
}

// String returns a short description of the model schema
func (m *ModelSchema) String() string {
	return fmt.Sprintf("%s(%s) %v", m.ClassName, m.CollectionName, m.order)
}
