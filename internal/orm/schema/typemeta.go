package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TypeMetadata is the raw description of a declared attribute type as emitted
// by the metadata extractor. The set of variants is closed.
type TypeMetadata interface {
	// Identifier returns the declared type name used for primitive lookup
	Identifier() string

	typeMetadata()
}

// Primitive is a named scalar type such as String, Number or Date
type Primitive struct {
	Name string
}

// Literal is a numeric or string literal type. Value is a float64 or a string.
type Literal struct {
	Value interface{}
}

// ModelReference points to another model by its identifier
type ModelReference struct {
	Target string
}

// Array wraps an element type
type Array struct {
	Element TypeMetadata
}

// Union is a set of alternative member types
type Union struct {
	Name    string
	Members []TypeMetadata
}

// Interface is an inline object type
type Interface struct {
	Members map[string]TypeMetadata
}

// Mixed accepts any storable value
type Mixed struct{}

// Unresolved marks a type the extractor could not resolve
type Unresolved struct {
	Name string
}

func (Primitive) typeMetadata()      {}
func (Literal) typeMetadata()        {}
func (ModelReference) typeMetadata() {}
func (Array) typeMetadata()          {}
func (Union) typeMetadata()          {}
func (Interface) typeMetadata()      {}
func (Mixed) typeMetadata()          {}
func (Unresolved) typeMetadata()     {}

func (p Primitive) Identifier() string { return p.Name }

func (l Literal) Identifier() string {
	if l.IsString() {
		return "String"
	}
	return "Number"
}

func (r ModelReference) Identifier() string { return r.Target }
func (a Array) Identifier() string          { return "Array" }
func (u Union) Identifier() string          { return u.Name }
func (Interface) Identifier() string        { return "Object" }
func (Mixed) Identifier() string            { return "Mixed" }
func (u Unresolved) Identifier() string     { return u.Name }

// IsNumber reports whether the literal holds a numeric value
func (l Literal) IsNumber() bool {
	_, ok := toFloat(l.Value)
	return ok
}

// IsString reports whether the literal holds a string value
func (l Literal) IsString() bool {
	_, ok := l.Value.(string)
	return ok
}

// MemberNames returns the interface member names in a stable order
func (i Interface) MemberNames() []string {
	names := make([]string, 0, len(i.Members))
	for name := range i.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depth returns the nesting depth of a metadata tree. Leaves have depth 1.
func Depth(node TypeMetadata) int {
	switch n := node.(type) {
	case Array:
		return 1 + Depth(n.Element)
	case Interface:
		deepest := 0
		for _, member := range n.Members {
			if d := Depth(member); d > deepest {
				deepest = d
			}
		}
		return 1 + deepest
	default:
		return 1
	}
}

// metadataNode is the serialized form of a TypeMetadata node
type metadataNode struct {
	Kind       string                   `json:"kind" yaml:"kind"`
	Identifier string                   `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Value      interface{}              `json:"value,omitempty" yaml:"value,omitempty"`
	SubType    *metadataNode            `json:"subType,omitempty" yaml:"subType,omitempty"`
	SubTypes   []*metadataNode          `json:"subTypes,omitempty" yaml:"subTypes,omitempty"`
	Members    map[string]*metadataNode `json:"members,omitempty" yaml:"members,omitempty"`
}

// DecodeTypeMetadata decodes a JSON metadata node
func DecodeTypeMetadata(data []byte) (TypeMetadata, error) {
	var node metadataNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal type metadata: %w", err)
	}
	return node.toTypeMetadata()
}

// TypeMetadataFromMap converts a generic decoded document (JSON or YAML) into
// TypeMetadata
func TypeMetadataFromMap(raw map[string]interface{}) (TypeMetadata, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal type metadata: %w", err)
	}
	return DecodeTypeMetadata(data)
}

// EncodeTypeMetadata encodes a metadata tree into its JSON node form
func EncodeTypeMetadata(node TypeMetadata) ([]byte, error) {
	n, err := fromTypeMetadata(node)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func (n *metadataNode) toTypeMetadata() (TypeMetadata, error) {
	if n == nil {
		return nil, fmt.Errorf("missing type metadata node")
	}

	switch n.Kind {
	case "primitive":
		return Primitive{Name: n.Identifier}, nil
	case "literal":
		if _, ok := n.Value.(string); ok {
			return Literal{Value: n.Value}, nil
		}
		if f, ok := toFloat(n.Value); ok {
			return Literal{Value: f}, nil
		}
		return nil, fmt.Errorf("literal value must be a number or string, got %T", n.Value)
	case "model":
		return ModelReference{Target: n.Identifier}, nil
	case "array":
		elem, err := n.SubType.toTypeMetadata()
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return Array{Element: elem}, nil
	case "union":
		members := make([]TypeMetadata, 0, len(n.SubTypes))
		for i, sub := range n.SubTypes {
			member, err := sub.toTypeMetadata()
			if err != nil {
				return nil, fmt.Errorf("union member %d: %w", i, err)
			}
			members = append(members, member)
		}
		return Union{Name: n.Identifier, Members: members}, nil
	case "interface":
		members := make(map[string]TypeMetadata, len(n.Members))
		for name, sub := range n.Members {
			member, err := sub.toTypeMetadata()
			if err != nil {
				return nil, fmt.Errorf("interface member %s: %w", name, err)
			}
			members[name] = member
		}
		return Interface{Members: members}, nil
	case "mixed":
		return Mixed{}, nil
	case "unresolved":
		return Unresolved{Name: n.Identifier}, nil
	default:
		return nil, fmt.Errorf("unknown type metadata kind: %q", n.Kind)
	}
}

func fromTypeMetadata(node TypeMetadata) (*metadataNode, error) {
	switch t := node.(type) {
	case Primitive:
		return &metadataNode{Kind: "primitive", Identifier: t.Name}, nil
	case Literal:
		return &metadataNode{Kind: "literal", Value: t.Value}, nil
	case ModelReference:
		return &metadataNode{Kind: "model", Identifier: t.Target}, nil
	case Array:
		sub, err := fromTypeMetadata(t.Element)
		if err != nil {
			return nil, err
		}
		return &metadataNode{Kind: "array", SubType: sub}, nil
	case Union:
		n := &metadataNode{Kind: "union", Identifier: t.Name}
		for _, member := range t.Members {
			sub, err := fromTypeMetadata(member)
			if err != nil {
				return nil, err
			}
			n.SubTypes = append(n.SubTypes, sub)
		}
		return n, nil
	case Interface:
		n := &metadataNode{Kind: "interface", Members: make(map[string]*metadataNode, len(t.Members))}
		for name, member := range t.Members {
			sub, err := fromTypeMetadata(member)
			if err != nil {
				return nil, err
			}
			n.Members[name] = sub
		}
		return n, nil
	case Mixed:
		return &metadataNode{Kind: "mixed"}, nil
	case Unresolved:
		return &metadataNode{Kind: "unresolved", Identifier: t.Name}, nil
	default:
		return nil, fmt.Errorf("unsupported type metadata %T", node)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
