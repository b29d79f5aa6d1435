package attribute

import (
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// Variants maps attribute names to specialized attribute constructors.
// Attributes without a registered variant use the generic Base.
type Variants struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewVariants creates an empty variant catalog
func NewVariants() *Variants {
	return &Variants{
		constructors: make(map[string]Constructor),
	}
}

// Register registers a specialized constructor for the named attribute
func (v *Variants) Register(name string, ctor Constructor) error {
	if ctor == nil {
		return fmt.Errorf("attribute variant %s: constructor cannot be nil", name)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.constructors[name]; exists {
		return fmt.Errorf("attribute variant %s is already registered", name)
	}
	v.constructors[name] = ctor
	return nil
}

// Lookup returns the specialized constructor for the named attribute
func (v *Variants) Lookup(name string) (Constructor, bool) {
	if v == nil {
		return nil, false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	ctor, ok := v.constructors[name]
	return ctor, ok
}

// Create instantiates the attribute for name, using the registered variant
// if any and the generic Base otherwise
func (v *Variants) Create(owner OwnerRef, name string, s *schema.AttributeSchema) Attribute {
	if ctor, ok := v.Lookup(name); ok {
		return ctor(owner, name, s)
	}
	return New(owner, name, s)
}

// Names returns the attribute names with a registered variant
func (v *Variants) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	names := make([]string, 0, len(v.constructors))
	for name := range v.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
