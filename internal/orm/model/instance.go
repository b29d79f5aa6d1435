package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync/atomic"
	"time"
	"weak"

	"go.uber.org/zap"

	"github.com/conduit-lang/modelkit/internal/orm/attribute"
	"github.com/conduit-lang/modelkit/internal/orm/registry"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
	"github.com/conduit-lang/modelkit/internal/orm/tracking"
)

// Properties are the initial or assigned values of an instance by name
type Properties map[string]interface{}

// ChangeFunc observes accepted changes of declared attributes
type ChangeFunc func(inst *Instance, change tracking.Change)

// PropertyMixin is implemented by raw models that rewrite the merged
// construction properties before they are assigned
type PropertyMixin interface {
	PrePropertyMixin(props Properties) Properties
}

// Self can be embedded in raw model structs to give their methods the
// un-intercepted value and the owning instance
type Self struct {
	raw      interface{}
	instance weak.Pointer[Instance]
}

func (s *Self) bindSelf(raw interface{}, inst *Instance) {
	s.raw = raw
	s.instance = weak.Make(inst)
}

// Unproxied returns the raw model value
func (s *Self) Unproxied() interface{} {
	return s.raw
}

// Instance returns the owning instance while it is alive
func (s *Self) Instance() (*Instance, bool) {
	inst := s.instance.Value()
	return inst, inst != nil
}

type selfBinder interface {
	bindSelf(raw interface{}, inst *Instance)
}

var nextKey atomic.Uint64

// Instance is the interception layer around one raw model value. Declared
// attributes are routed through their attribute objects; every other
// property is read from and written to the raw value.
//
// An Instance is not safe for concurrent use.
type Instance struct {
	key       registry.Key
	class     *Class
	schema    *schema.ModelSchema
	registry  *registry.Registry
	raw       interface{}
	fields    FieldAccessor
	extras    map[string]interface{}
	observers []ChangeFunc
	cleanup   runtime.Cleanup
	disposed  bool
}

// New constructs an instance of the model class c. Default values of the raw
// model are merged with props, props winning. Instances without an id get a
// temporary id; instances with one start with an empty change log.
func (c *Class) New(props Properties) (*Instance, error) {
	if !c.modelClass || c.factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotModelClass, c.Name())
	}
	f := c.factory

	ms, ok := c.Schema()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, c.className)
	}
	if err := ms.Validate(); err != nil {
		return nil, err
	}

	raw := c.base.construct()
	fields, err := newFieldAccessor(raw)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", c.className, err)
	}

	inst := &Instance{
		key:      registry.Key(nextKey.Add(1)),
		class:    c,
		schema:   ms,
		registry: f.registry,
		raw:      raw,
		fields:   fields,
	}
	if b, ok := raw.(selfBinder); ok {
		b.bindSelf(raw, inst)
	}
	if f.reactor != nil {
		f.reactor(inst)
	}

	reg := f.registry
	inst.cleanup = runtime.AddCleanup(inst, func(key registry.Key) {
		reg.Release(key)
	}, inst.key)

	owner := ownerRef(inst)
	for _, s := range ms.Attributes() {
		reg.SetAttribute(inst, s.Name, f.variants.Create(owner, s.Name, s))
	}

	// Defaults are whatever the raw constructor left in declared fields.
	// Every declared attribute gets one so that all of them are initialized
	// once construction is done.
	defaults := make(Properties, len(ms.Names())+1)
	for _, s := range ms.Attributes() {
		v, ok := fields.Field(s.Name)
		if ok {
			fields.ResetField(s.Name)
		}
		defaults[s.Name] = defaultValue(s, v)
	}

	hasID := !isZero(props[f.idKey])
	if !hasID {
		defaults[f.tempIDKey] = f.newID()
	}

	merged := make(Properties, len(defaults)+len(props))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range props {
		merged[k] = v
	}
	if m, ok := raw.(PropertyMixin); ok {
		merged = m.PrePropertyMixin(merged)
	}

	if err := inst.Assign(merged); err != nil {
		inst.Dispose()
		return nil, fmt.Errorf("model %s: %w", c.className, err)
	}
	if hasID {
		inst.RemoveChanges()
	}

	f.logger.Debug("instance created",
		zap.String("class", c.className),
		zap.Uint64("key", uint64(inst.key)),
		zap.Bool("persisted", hasID),
	)
	return inst, nil
}

func ownerRef(inst *Instance) attribute.OwnerRef {
	wp := weak.Make(inst)
	return func() (attribute.Owner, bool) {
		i := wp.Value()
		if i == nil || i.disposed {
			return nil, false
		}
		return i, true
	}
}

// RegistryKey returns the key of the instance in the registry instance store
func (i *Instance) RegistryKey() registry.Key {
	if i == nil {
		return 0
	}
	return i.key
}

// Class returns the model class of the instance
func (i *Instance) Class() *Class {
	return i.class
}

// ClassName returns the class name of the model
func (i *Instance) ClassName() string {
	return i.class.ClassName()
}

// Schema returns the model schema the instance was built from
func (i *Instance) Schema() *schema.ModelSchema {
	return i.schema
}

// Raw returns the un-intercepted model value
func (i *Instance) Raw() interface{} {
	return i.raw
}

// Attribute returns the attribute object of a declared attribute
func (i *Instance) Attribute(name string) (attribute.Attribute, bool) {
	return i.registry.Attribute(i, name)
}

// Attributes returns the attribute objects in declaration order
func (i *Instance) Attributes() []attribute.Attribute {
	return i.registry.Attributes(i)
}

// Get reads a property. Declared attributes are read from their attribute
// object; other names fall through to raw fields, extra properties and raw
// methods. ConstructorKey returns the model class.
func (i *Instance) Get(name string) (interface{}, bool) {
	if name == ConstructorKey {
		return i.class, true
	}
	if attr, ok := i.Attribute(name); ok {
		return attr.Get(), true
	}
	if v, ok := i.fields.Field(name); ok {
		return v, true
	}
	if v, ok := i.extras[name]; ok {
		return v, true
	}
	return method(i.raw, name)
}

// Set assigns a property and reports whether the assignment was accepted.
// Accepted values of declared attributes are written through to the raw
// field of the same name.
func (i *Instance) Set(name string, value interface{}) bool {
	if name == ConstructorKey {
		return false
	}

	attr, ok := i.Attribute(name)
	if !ok {
		return i.setPlain(name, value)
	}

	_, hasField := i.fields.Field(name)
	if hasField && value != nil && !i.fields.CanSetField(name, value) {
		return false
	}

	initialized := attr.Initialized()
	before := attr.Get()
	if !initialized {
		before = nil
	}
	if !attr.Set(value) {
		return false
	}

	after := attr.Get()
	i.writeThrough(name, after, hasField)

	if !initialized || !tracking.DeepEqual(before, after) {
		i.notify(tracking.Change{Attribute: name, Old: before, New: after, At: time.Now()})
	}
	return true
}

// Restore sets a declared attribute to a value assigned by storage, such as
// a generated id. Assignment rules, change logs and observers are skipped.
func (i *Instance) Restore(name string, value interface{}) bool {
	attr, ok := i.Attribute(name)
	if !ok {
		return false
	}
	_, hasField := i.fields.Field(name)
	if hasField && value != nil && !i.fields.CanSetField(name, value) {
		return false
	}
	attr.Restore(value)
	i.writeThrough(name, attr.Get(), hasField)
	return true
}

// writeThrough mirrors an attribute value into the raw field of the same name
func (i *Instance) writeThrough(name string, value interface{}, hasField bool) {
	if hasField {
		if value == nil {
			i.fields.ResetField(name)
		} else {
			i.fields.SetField(name, value)
		}
	} else if _, isRecord := i.fields.(Record); isRecord {
		i.fields.SetField(name, value)
	}
}

func (i *Instance) setPlain(name string, value interface{}) bool {
	if _, ok := i.fields.Field(name); ok {
		if value == nil {
			return i.fields.ResetField(name)
		}
		return i.fields.SetField(name, value)
	}
	if _, isRecord := i.fields.(Record); isRecord {
		return i.fields.SetField(name, value)
	}
	if i.extras == nil {
		i.extras = make(map[string]interface{})
	}
	i.extras[name] = value
	return true
}

// Has reports whether name is a declared attribute, a raw field or an extra
// property
func (i *Instance) Has(name string) bool {
	if i.schema.Has(name) {
		return true
	}
	if _, ok := i.fields.Field(name); ok {
		return true
	}
	_, ok := i.extras[name]
	return ok
}

// Delete removes an extra property or clears a raw field. Attribute objects
// are not affected.
func (i *Instance) Delete(name string) bool {
	if _, ok := i.extras[name]; ok {
		delete(i.extras, name)
		return true
	}
	return i.fields.DeleteField(name)
}

// Keys returns the declared attribute names in declaration order
func (i *Instance) Keys() []string {
	return i.schema.Names()
}

// Assign sets every property of props. Declared attributes are assigned in
// declaration order, other properties after them in name order. Rejections
// do not stop the assignment; they are returned together.
func (i *Instance) Assign(props Properties) error {
	errs := NewAssignmentErrors()
	for _, name := range i.assignOrder(props) {
		value := props[name]
		if !i.Set(name, value) {
			errs.Add(name, i.rejection(name, value))
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (i *Instance) assignOrder(props Properties) []string {
	order := make([]string, 0, len(props))
	for _, name := range i.schema.Names() {
		if _, ok := props[name]; ok {
			order = append(order, name)
		}
	}
	var rest []string
	for name := range props {
		if !i.schema.Has(name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func (i *Instance) rejection(name string, value interface{}) string {
	attr, ok := i.Attribute(name)
	if !ok {
		return fmt.Sprintf("cannot assign %T", value)
	}
	s := attr.Schema()
	switch {
	case s != nil && s.ReadOnly && attr.Initialized():
		return "attribute is read-only"
	case value == nil && s != nil && s.Required:
		return "attribute is required"
	case s != nil && s.Type != nil && !s.Type.Allows(value):
		return fmt.Sprintf("value %v is not allowed by %s", value, s.Type)
	default:
		return fmt.Sprintf("cannot assign %T", value)
	}
}

// ID returns the identifier of a persisted record
func (i *Instance) ID() (interface{}, bool) {
	v, ok := i.Get(i.class.factory.idKey)
	if !ok || isZero(v) {
		return nil, false
	}
	return v, true
}

// IsNew reports whether the instance has no identifier yet
func (i *Instance) IsNew() bool {
	_, ok := i.ID()
	return !ok
}

// TempID returns the temporary identifier generated at construction
func (i *Instance) TempID() string {
	v, _ := Value[string](i, i.class.factory.tempIDKey)
	return v
}

// Changes returns the change log of every attribute that has one
func (i *Instance) Changes() map[string][]tracking.Change {
	changes := make(map[string][]tracking.Change)
	for _, attr := range i.Attributes() {
		if entries := attr.Changes(); len(entries) > 0 {
			changes[attr.Name()] = entries
		}
	}
	return changes
}

// Changed reports whether attribute name has recorded changes
func (i *Instance) Changed(name string) bool {
	attr, ok := i.Attribute(name)
	return ok && len(attr.Changes()) > 0
}

// HasChanges reports whether any attribute has recorded changes
func (i *Instance) HasChanges() bool {
	for _, attr := range i.Attributes() {
		if len(attr.Changes()) > 0 {
			return true
		}
	}
	return false
}

// ChangedData returns the current values of the attributes whose value
// differs from the one before their first recorded change
func (i *Instance) ChangedData() Properties {
	data := make(Properties)
	for _, attr := range i.Attributes() {
		if attr.Net() {
			data[attr.Name()] = attr.Get()
		}
	}
	return data
}

// RemoveChanges clears the change log of every attribute
func (i *Instance) RemoveChanges() {
	for _, attr := range i.Attributes() {
		attr.RemoveChanges()
	}
}

// OnChange registers an observer for accepted attribute changes
func (i *Instance) OnChange(fn ChangeFunc) {
	if fn != nil {
		i.observers = append(i.observers, fn)
	}
}

func (i *Instance) notify(change tracking.Change) {
	for _, fn := range i.observers {
		fn(i, change)
	}
}

// ToMap returns the declared attribute values by name
func (i *Instance) ToMap() Properties {
	data := make(Properties, i.schema.Len())
	for _, name := range i.schema.Names() {
		if attr, ok := i.Attribute(name); ok {
			data[name] = attr.Get()
		}
	}
	return data
}

// MarshalJSON encodes the declared attributes
func (i *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.ToMap())
}

// Dispose releases the attribute objects of the instance. Instances that are
// never disposed are released when they become unreachable.
func (i *Instance) Dispose() {
	if i.disposed {
		return
	}
	i.disposed = true
	i.cleanup.Stop()
	i.registry.Release(i.key)
}

// Disposed reports whether Dispose has been called
func (i *Instance) Disposed() bool {
	return i.disposed
}

// String implements fmt.Stringer
func (i *Instance) String() string {
	return fmt.Sprintf("%s#%d", i.ClassName(), i.key)
}

// defaultValue returns the construction default of an attribute from the raw
// field value v. Zero scalars are kept when the attribute type allows them;
// zero composites and disallowed zeros become nil.
func defaultValue(s *schema.AttributeSchema, v interface{}) interface{} {
	if !isZero(v) {
		return v
	}
	if v == nil {
		return nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if s.Type.Allows(v) {
			return v
		}
	}
	return nil
}

func isZero(v interface{}) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
