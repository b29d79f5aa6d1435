// Package model wraps plain model types into model classes whose instances
// route declared attribute access through per-attribute logic.
//
// A Class describes a raw model type: its name, the class it extends and a
// constructor for raw values. Factory.Wrap produces the model class view of
// a raw class; only model classes construct Instances.
package model

import (
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// Constructor creates a raw model value: a struct pointer or a value
// implementing FieldAccessor such as Record
type Constructor func() interface{}

// Class is a declared model type
type Class struct {
	name      string
	super     *Class
	construct Constructor

	// set on classes produced by Factory.Wrap
	modelClass     bool
	base           *Class
	className      string
	collectionName string
	factory        *Factory
}

// NewClass declares a raw model type. super may be nil.
func NewClass(name string, super *Class, ctor Constructor) *Class {
	return &Class{
		name:      name,
		super:     super,
		construct: ctor,
	}
}

// Extend declares a raw model type extending c
func (c *Class) Extend(name string, ctor Constructor) *Class {
	return NewClass(name, c, ctor)
}

// TypeName returns the declared type name
func (c *Class) TypeName() string {
	return c.name
}

// Super returns the type c extends. Model classes in the chain are replaced
// by their raw base so declarations are never inherited through a wrapper.
func (c *Class) Super() schema.ModelType {
	if p := c.Parent(); p != nil {
		return p
	}
	return nil
}

// Parent returns the class c extends with wrappers flattened
func (c *Class) Parent() *Class {
	if c.modelClass {
		return c.base
	}
	p := c.super
	for p != nil && p.modelClass {
		p = p.base
	}
	return p
}

// IsModelClass reports whether c was produced by a Factory
func (c *Class) IsModelClass() bool {
	return c.modelClass
}

// Base returns the raw class a model class wraps, or c itself
func (c *Class) Base() *Class {
	if c.modelClass {
		return c.base
	}
	return c
}

// Layers returns the number of interception layers instances of c carry
func (c *Class) Layers() int {
	n := 0
	for k := c; k != nil && k.modelClass; k = k.base {
		n++
	}
	return n
}

// Name returns the class name of a model class and the type name otherwise
func (c *Class) Name() string {
	if c.modelClass && c.className != "" {
		return c.className
	}
	return c.name
}

// ClassName returns the class name the model schema is registered under
func (c *Class) ClassName() string {
	return c.Name()
}

// CollectionName returns the storage collection of a model class
func (c *Class) CollectionName() string {
	return c.collectionName
}

// Factory returns the factory that produced c
func (c *Class) Factory() *Factory {
	return c.factory
}

// Schema returns the compiled model schema of a model class
func (c *Class) Schema() (*schema.ModelSchema, bool) {
	if !c.modelClass || c.factory == nil {
		return nil, false
	}
	return c.factory.registry.ModelSchema(c.base, c.className)
}

// String implements fmt.Stringer
func (c *Class) String() string {
	return c.Name()
}
