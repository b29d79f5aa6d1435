// Package attribute provides the runtime objects bound to one attribute of
// one model instance. An Attribute owns the current value and the change
// history and decides whether an assignment is accepted.
package attribute

import (
	"github.com/conduit-lang/modelkit/internal/orm/schema"
	"github.com/conduit-lang/modelkit/internal/orm/tracking"
)

// Owner is the model instance an attribute belongs to
type Owner interface {
	ClassName() string
	Get(name string) (interface{}, bool)
}

// OwnerRef resolves the owning instance. It must not keep the owner alive;
// ok is false once the owner has been collected or disposed.
type OwnerRef func() (owner Owner, ok bool)

// Attribute is the runtime behaviour of one (instance, attribute) pair
type Attribute interface {
	Name() string
	Schema() *schema.AttributeSchema

	// Get returns the current value
	Get() interface{}

	// Set assigns a new value and reports whether it was accepted
	Set(value interface{}) bool

	// Initialized reports whether a value has been assigned at least once
	Initialized() bool

	Changes() []tracking.Change
	RemoveChanges()

	// Net reports whether the value differs from the one it had before the
	// first recorded change
	Net() bool

	// Restore replaces the value without acceptance checks or history
	Restore(value interface{})
}

// Constructor creates the attribute object for one instance
type Constructor func(owner OwnerRef, name string, s *schema.AttributeSchema) Attribute

// Base is the generic Attribute implementation. Specialized variants embed it
// and override Get or Set.
type Base struct {
	owner       OwnerRef
	name        string
	schema      *schema.AttributeSchema
	value       interface{}
	initialized bool
	log         tracking.Log
}

// NewBase creates the generic attribute
func NewBase(owner OwnerRef, name string, s *schema.AttributeSchema) *Base {
	return &Base{
		owner:  owner,
		name:   name,
		schema: s,
	}
}

// New is the default Constructor
func New(owner OwnerRef, name string, s *schema.AttributeSchema) Attribute {
	return NewBase(owner, name, s)
}

// Name returns the attribute name
func (b *Base) Name() string {
	return b.name
}

// Schema returns the compiled attribute schema
func (b *Base) Schema() *schema.AttributeSchema {
	return b.schema
}

// Owner returns the owning instance if it is still reachable
func (b *Base) Owner() (Owner, bool) {
	if b.owner == nil {
		return nil, false
	}
	return b.owner()
}

// Get returns the current value
func (b *Base) Get() interface{} {
	return b.value
}

// Set assigns value if Accepts allows it and records the change
func (b *Base) Set(value interface{}) bool {
	if !b.Accepts(value) {
		return false
	}
	if b.initialized && tracking.DeepEqual(b.value, value) {
		return true
	}

	old := b.value
	if !b.initialized {
		old = nil
	}
	b.log.Record(b.name, old, value)
	b.value = value
	b.initialized = true
	return true
}

// Accepts reports whether value may be assigned in the current state
func (b *Base) Accepts(value interface{}) bool {
	if b.schema == nil {
		return true
	}
	if b.initialized && b.schema.ReadOnly {
		return false
	}
	if value == nil {
		return !(b.initialized && b.schema.Required)
	}
	return b.schema.Type.Allows(value)
}

// Initialized reports whether the attribute has been assigned
func (b *Base) Initialized() bool {
	return b.initialized
}

// Changes returns the change history in order
func (b *Base) Changes() []tracking.Change {
	return b.log.Entries()
}

// HasChanges returns true if any change has been recorded
func (b *Base) HasChanges() bool {
	return b.log.Len() > 0
}

// RemoveChanges discards the change history without touching the value
func (b *Base) RemoveChanges() {
	b.log.Reset()
}

// Net reports whether the recorded changes amount to a different value
func (b *Base) Net() bool {
	return b.log.Net()
}

// Restore sets a value that comes from storage. Read-only attributes take
// it even when initialized and no change is recorded.
func (b *Base) Restore(value interface{}) {
	b.value = value
	b.initialized = true
}
