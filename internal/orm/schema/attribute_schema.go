package schema

import (
	"encoding/json"
	"fmt"
)

// Options is the raw option bag attached to an attribute declaration. Nil
// pointer fields are unset and do not override accumulated values on Merge.
type Options struct {
	Type           TypeMetadata
	Required       *bool
	ReadOnly       *bool
	RelationColumn string
	RelationOwner  *bool
	Cascade        *bool
	Extra          map[string]interface{}
}

// Merge returns a copy of o with every field set in next applied on top
func (o Options) Merge(next Options) Options {
	merged := o
	if next.Type != nil {
		merged.Type = next.Type
	}
	if next.Required != nil {
		merged.Required = next.Required
	}
	if next.ReadOnly != nil {
		merged.ReadOnly = next.ReadOnly
	}
	if next.RelationColumn != "" {
		merged.RelationColumn = next.RelationColumn
	}
	if next.RelationOwner != nil {
		merged.RelationOwner = next.RelationOwner
	}
	if next.Cascade != nil {
		merged.Cascade = next.Cascade
	}
	if len(o.Extra) > 0 || len(next.Extra) > 0 {
		merged.Extra = make(map[string]interface{}, len(o.Extra)+len(next.Extra))
		for k, v := range o.Extra {
			merged.Extra[k] = v
		}
		for k, v := range next.Extra {
			merged.Extra[k] = v
		}
	}
	return merged
}

// IsRequired reports whether the required option is set to true
func (o Options) IsRequired() bool {
	return o.Required != nil && *o.Required
}

// IsReadOnly reports whether the read-only option is set to true
func (o Options) IsReadOnly() bool {
	return o.ReadOnly != nil && *o.ReadOnly
}

// Bool returns a pointer to b, for use in Options literals
func Bool(b bool) *bool {
	return &b
}

// AttributeSchema is the compiled, storage-ready descriptor of one attribute.
// It is not modified after it has been stored in a registry.
type AttributeSchema struct {
	Name     string
	Required bool
	ReadOnly bool
	Type     *Fragment
	Options  Options
}

// NewAttributeSchema compiles opts.Type and builds the schema for attribute
// name of model
func NewAttributeSchema(resolver *Resolver, model ModelType, name string, opts Options) (*AttributeSchema, error) {
	if resolver == nil {
		resolver = NewResolver(nil)
	}

	fragment, err := resolver.Compile(model, name, opts.Type)
	if err != nil {
		return nil, err
	}

	return &AttributeSchema{
		Name:     name,
		Required: opts.IsRequired(),
		ReadOnly: opts.IsReadOnly(),
		Type:     fragment,
		Options:  opts,
	}, nil
}

// IsRelation reports whether the attribute references another model, either
// directly or as an array of references
func (a *AttributeSchema) IsRelation() bool {
	f := a.Type
	for f != nil && f.Kind == KindArray {
		f = f.Element
	}
	return f != nil && f.Kind == KindReference
}

// MarshalJSON encodes the compiled part of the schema
func (a *AttributeSchema) MarshalJSON() ([]byte, error) {
	out := struct {
		Name           string                 `json:"name"`
		Required       bool                   `json:"required"`
		ReadOnly       bool                   `json:"readOnly"`
		Type           *Fragment              `json:"type"`
		RelationColumn string                 `json:"relationColumn,omitempty"`
		RelationOwner  *bool                  `json:"isRelationOwner,omitempty"`
		Cascade        *bool                  `json:"cascade,omitempty"`
		Extra          map[string]interface{} `json:"extra,omitempty"`
	}{
		Name:           a.Name,
		Required:       a.Required,
		ReadOnly:       a.ReadOnly,
		Type:           a.Type,
		RelationColumn: a.Options.RelationColumn,
		RelationOwner:  a.Options.RelationOwner,
		Cascade:        a.Options.Cascade,
		Extra:          a.Options.Extra,
	}
	return json.Marshal(out)
}

// String returns a compact representation of the attribute schema
func (a *AttributeSchema) String() string {
	flags := ""
	if a.Required {
		flags += "!"
	}
	if a.ReadOnly {
		flags += " readonly"
	}
	return fmt.Sprintf("%s: %s%s", a.Name, a.Type, flags)
}
