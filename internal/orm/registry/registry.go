// Package registry provides the metadata store shared by schema compilation
// and instance construction. It holds accumulated attribute declarations,
// compiled model schemas and the attribute objects of live instances.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/modelkit/internal/orm/attribute"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// Key identifies a live model instance in the instance store
type Key uint64

// Holder is implemented by model instances that own registry-managed
// attributes
type Holder interface {
	RegistryKey() Key
}

// Registry stores attribute schemas, model schemas and per-instance
// attributes. The instance store never references the instance itself, so
// entries do not extend its lifetime; owners call Release when they go away.
type Registry struct {
	mu     sync.RWMutex
	logger *zap.Logger

	// attribute name -> every schema declared under that name, in order
	accumulated map[string][]*schema.AttributeSchema

	// model type -> definitive attribute schemas declared on that type
	definitions map[schema.ModelType]*attributeSet

	modelsByName map[string]*schema.ModelSchema
	modelsByType map[schema.ModelType]*schema.ModelSchema

	instances map[Key]*instanceAttributes
}

type attributeSet struct {
	byName map[string]*schema.AttributeSchema
	order  []string
}

type instanceAttributes struct {
	byName map[string]attribute.Attribute
	order  []string
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry, creating it on first use
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(nil)
	})
	return defaultRegistry
}

// New creates an independent registry. A nil logger disables logging.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger}
	r.init()
	return r
}

func (r *Registry) init() {
	r.accumulated = make(map[string][]*schema.AttributeSchema)
	r.definitions = make(map[schema.ModelType]*attributeSet)
	r.modelsByName = make(map[string]*schema.ModelSchema)
	r.modelsByType = make(map[schema.ModelType]*schema.ModelSchema)
	r.instances = make(map[Key]*instanceAttributes)
}

// Logger returns the registry logger
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}

// SetAttributeSchema appends s to the accumulation for its name and stores it
// as the definitive schema of name on model
func (r *Registry) SetAttributeSchema(model schema.ModelType, name string, s *schema.AttributeSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accumulated[name] = append(r.accumulated[name], s)

	set, ok := r.definitions[model]
	if !ok {
		set = &attributeSet{byName: make(map[string]*schema.AttributeSchema)}
		r.definitions[model] = set
	}
	if _, exists := set.byName[name]; !exists {
		set.order = append(set.order, name)
	}
	set.byName[name] = s

	r.logger.Debug("attribute schema registered",
		zap.String("model", typeName(model)),
		zap.String("attribute", name),
		zap.Stringer("type", s.Type),
	)
}

// AttributeSchema returns the definitive schema of name for model, looking
// through the types model extends
func (r *Registry) AttributeSchema(model schema.ModelType, name string) (*schema.AttributeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for t := model; t != nil; t = t.Super() {
		if set, ok := r.definitions[t]; ok {
			if s, ok := set.byName[name]; ok {
				return s, true
			}
		}
	}
	return nil, false
}

// AttributeSchemas returns one schema per attribute name visible on model.
// Inherited attributes come first; a redeclaration keeps the position of the
// original declaration and replaces its schema.
func (r *Registry) AttributeSchemas(model schema.ModelType) []*schema.AttributeSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []schema.ModelType
	for t := model; t != nil; t = t.Super() {
		chain = append(chain, t)
	}

	var order []string
	latest := make(map[string]*schema.AttributeSchema)
	for i := len(chain) - 1; i >= 0; i-- {
		set, ok := r.definitions[chain[i]]
		if !ok {
			continue
		}
		for _, name := range set.order {
			if _, seen := latest[name]; !seen {
				order = append(order, name)
			}
			latest[name] = set.byName[name]
		}
	}

	result := make([]*schema.AttributeSchema, 0, len(order))
	for _, name := range order {
		result = append(result, latest[name])
	}
	return result
}

// ConstructAttributeSchemaParams folds every option set accumulated for name
// in declaration order and applies next last
func (r *Registry) ConstructAttributeSchemaParams(name string, next schema.Options) schema.Options {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var merged schema.Options
	for _, s := range r.accumulated[name] {
		merged = merged.Merge(s.Options)
	}
	return merged.Merge(next)
}

// SetModelSchema stores the compiled schema of model under name
func (r *Registry) SetModelSchema(model schema.ModelType, name string, s *schema.ModelSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name != "" {
		r.modelsByName[name] = s
	}
	if model != nil {
		r.modelsByType[model] = s
	}

	r.logger.Debug("model schema registered",
		zap.String("model", typeName(model)),
		zap.String("className", s.ClassName),
		zap.String("collection", s.CollectionName),
		zap.Int("attributes", s.Len()),
	)
}

// ModelSchema looks a model schema up by name first and by model type second.
// Either key may be empty.
func (r *Registry) ModelSchema(model schema.ModelType, name string) (*schema.ModelSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		if s, ok := r.modelsByName[name]; ok {
			return s, true
		}
	}
	if model != nil {
		if s, ok := r.modelsByType[model]; ok {
			return s, true
		}
	}
	return nil, false
}

// Models returns every registered model schema ordered by class name
func (r *Registry) Models() []*schema.ModelSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modelsByName))
	for name := range r.modelsByName {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*schema.ModelSchema, 0, len(names))
	for _, name := range names {
		result = append(result, r.modelsByName[name])
	}
	return result
}

// SetAttribute stores the attribute object name for owner
func (r *Registry) SetAttribute(owner Holder, name string, attr attribute.Attribute) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := owner.RegistryKey()
	attrs, ok := r.instances[key]
	if !ok {
		attrs = &instanceAttributes{byName: make(map[string]attribute.Attribute)}
		r.instances[key] = attrs
	}
	if _, exists := attrs.byName[name]; !exists {
		attrs.order = append(attrs.order, name)
	}
	attrs.byName[name] = attr
}

// Attribute returns the attribute object name of owner
func (r *Registry) Attribute(owner Holder, name string) (attribute.Attribute, bool) {
	if owner == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	attrs, ok := r.instances[owner.RegistryKey()]
	if !ok {
		return nil, false
	}
	attr, ok := attrs.byName[name]
	return attr, ok
}

// Attributes returns the attribute objects of owner in registration order
func (r *Registry) Attributes(owner Holder) []attribute.Attribute {
	if owner == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	attrs, ok := r.instances[owner.RegistryKey()]
	if !ok {
		return nil
	}
	result := make([]attribute.Attribute, 0, len(attrs.order))
	for _, name := range attrs.order {
		result = append(result, attrs.byName[name])
	}
	return result
}

// Release drops the attributes stored for key
func (r *Registry) Release(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.instances, key)
}

// Clear removes everything from the registry (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.init()
}

// Stats describes the registry contents
type Stats struct {
	Models         int
	AttributeNames int
	DeclaredTypes  int
	LiveInstances  int
	LiveAttributes int
}

// GetStats returns statistics about the registry
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Models:         len(r.modelsByName),
		AttributeNames: len(r.accumulated),
		DeclaredTypes:  len(r.definitions),
		LiveInstances:  len(r.instances),
	}
	for _, attrs := range r.instances {
		stats.LiveAttributes += len(attrs.order)
	}
	return stats
}

func typeName(model schema.ModelType) string {
	if model == nil {
		return ""
	}
	return model.TypeName()
}
