package model

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/modelkit/internal/orm/attribute"
	"github.com/conduit-lang/modelkit/internal/orm/naming"
	"github.com/conduit-lang/modelkit/internal/orm/registry"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

const (
	// DefaultIDKey is the attribute that identifies persisted records
	DefaultIDKey = "id"

	// DefaultTempIDKey receives the generated identifier of unsaved instances
	DefaultTempIDKey = "dummyId"

	// ConstructorKey reads the model class of an instance through Get
	ConstructorKey = "constructor"
)

// Reactor is invoked on every new instance before its attributes exist
type Reactor func(inst *Instance)

// Options configures a wrapped class
type Options struct {
	ClassName      string
	CollectionName string
}

// Factory wraps classes into model classes and constructs their instances
type Factory struct {
	registry  *registry.Registry
	resolver  *schema.Resolver
	variants  *attribute.Variants
	logger    *zap.Logger
	reactor   Reactor
	idKey     string
	tempIDKey string
	newID     func() string
}

// Option configures a Factory
type Option func(*Factory)

// WithLogger sets the factory logger
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithVariants sets the catalog of specialized attribute constructors
func WithVariants(v *attribute.Variants) Option {
	return func(f *Factory) {
		f.variants = v
	}
}

// WithReactor sets the reactivity hook
func WithReactor(r Reactor) Option {
	return func(f *Factory) {
		f.reactor = r
	}
}

// WithIDKey overrides the identifier attribute name
func WithIDKey(key string) Option {
	return func(f *Factory) {
		f.idKey = key
	}
}

// WithTempIDKey overrides the temporary identifier property name
func WithTempIDKey(key string) Option {
	return func(f *Factory) {
		f.tempIDKey = key
	}
}

// WithIDGenerator overrides temporary identifier generation
func WithIDGenerator(gen func() string) Option {
	return func(f *Factory) {
		f.newID = gen
	}
}

// NewFactory creates a factory bound to reg. A nil registry uses
// registry.Default().
func NewFactory(reg *registry.Registry, opts ...Option) *Factory {
	if reg == nil {
		reg = registry.Default()
	}
	f := &Factory{
		registry:  reg,
		logger:    reg.Logger(),
		idKey:     DefaultIDKey,
		tempIDKey: DefaultTempIDKey,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.variants == nil {
		f.variants = attribute.NewVariants()
	}
	f.resolver = schema.NewResolver(f.logger)
	return f
}

// Registry returns the registry the factory reads schemas from
func (f *Factory) Registry() *registry.Registry {
	return f.registry
}

// Resolver returns the type resolver used for declarations
func (f *Factory) Resolver() *schema.Resolver {
	return f.resolver
}

// Variants returns the attribute variant catalog
func (f *Factory) Variants() *attribute.Variants {
	return f.variants
}

// IDKey returns the identifier attribute name
func (f *Factory) IDKey() string {
	return f.idKey
}

// TempIDKey returns the temporary identifier property name
func (f *Factory) TempIDKey() string {
	return f.tempIDKey
}

// Declarer returns a Declarer writing to the factory registry
func (f *Factory) Declarer() *Declarer {
	return NewDeclarer(f.registry, f.resolver)
}

// Wrap produces the model class of base. Wrapping a model class wraps its
// raw base again, so instances never carry more than one interception layer.
func (f *Factory) Wrap(base *Class, opts Options) (*Class, error) {
	if base == nil {
		return nil, ErrNilClass
	}

	raw := base.Base()
	if raw.construct == nil {
		return nil, fmt.Errorf("class %s has no constructor", raw.name)
	}
	if base.modelClass {
		f.logger.Debug("collapsing wrapped class",
			zap.String("class", base.Name()),
			zap.String("base", raw.name),
		)
		if opts.ClassName == "" {
			opts.ClassName = base.className
		}
		if opts.CollectionName == "" {
			opts.CollectionName = base.collectionName
		}
	}

	className := opts.ClassName
	if className == "" {
		className = raw.name
	}
	collection := opts.CollectionName
	if collection == "" {
		collection = naming.Collection(className)
	}

	return &Class{
		name:           raw.name,
		super:          raw,
		modelClass:     true,
		base:           raw,
		className:      className,
		collectionName: collection,
		factory:        f,
	}, nil
}

// Model compiles the model schema of base from its attribute declarations,
// registers it and wraps base
func (f *Factory) Model(base *Class, opts Options) (*Class, error) {
	if base == nil {
		return nil, ErrNilClass
	}

	wrapped, err := f.Wrap(base, opts)
	if err != nil {
		return nil, err
	}

	raw := wrapped.base
	ms := schema.NewModelSchema(wrapped.className, wrapped.collectionName, f.registry.AttributeSchemas(raw))
	if err := ms.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", wrapped.className, err)
	}
	f.registry.SetModelSchema(raw, wrapped.className, ms)

	f.logger.Info("model registered",
		zap.String("class", wrapped.className),
		zap.String("collection", wrapped.collectionName),
		zap.Strings("attributes", ms.Names()),
	)
	return wrapped, nil
}
