package model

import (
	"fmt"

	"github.com/conduit-lang/modelkit/internal/orm/registry"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// Declarer records attribute declarations of raw classes in a registry
type Declarer struct {
	registry *registry.Registry
	resolver *schema.Resolver
}

// NewDeclarer creates a Declarer. A nil resolver logs nothing.
func NewDeclarer(reg *registry.Registry, resolver *schema.Resolver) *Declarer {
	if reg == nil {
		reg = registry.Default()
	}
	if resolver == nil {
		resolver = schema.NewResolver(reg.Logger())
	}
	return &Declarer{registry: reg, resolver: resolver}
}

// Attr declares attribute name on class. Options accumulated for the same
// name are merged first, opts last.
func (d *Declarer) Attr(class *Class, name string, opts schema.Options) (*schema.AttributeSchema, error) {
	if class == nil {
		return nil, ErrNilClass
	}
	if name == "" {
		return nil, fmt.Errorf("class %s: attribute name cannot be empty", class.Name())
	}

	raw := class.Base()
	params := d.registry.ConstructAttributeSchemaParams(name, opts)
	s, err := schema.NewAttributeSchema(d.resolver, raw, name, params)
	if err != nil {
		return nil, err
	}
	d.registry.SetAttributeSchema(raw, name, s)
	return s, nil
}

// MustAttr is like Attr but panics on error. Intended for package-level
// model declarations.
func (d *Declarer) MustAttr(class *Class, name string, opts schema.Options) *schema.AttributeSchema {
	s, err := d.Attr(class, name, opts)
	if err != nil {
		panic(err)
	}
	return s
}
