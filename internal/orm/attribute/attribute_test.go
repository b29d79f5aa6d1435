package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

type fakeOwner struct {
	values map[string]interface{}
}

func (o *fakeOwner) ClassName() string { return "Fake" }

func (o *fakeOwner) Get(name string) (interface{}, bool) {
	v, ok := o.values[name]
	return v, ok
}

func compile(t *testing.T, name string, opts schema.Options) *schema.AttributeSchema {
	t.Helper()
	s, err := schema.NewAttributeSchema(nil, nil, name, opts)
	require.NoError(t, err)
	return s
}

func TestBase_SetAndGet(t *testing.T) {
	attr := New(nil, "title", compile(t, "title", schema.Options{Type: schema.Primitive{Name: "String"}}))

	assert.Equal(t, "title", attr.Name())
	assert.False(t, attr.Initialized())
	assert.Nil(t, attr.Get())

	assert.True(t, attr.Set("hello"))
	assert.True(t, attr.Initialized())
	assert.Equal(t, "hello", attr.Get())

	changes := attr.Changes()
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].Old)
	assert.Equal(t, "hello", changes[0].New)
	assert.Equal(t, "title", changes[0].Attribute)
}

func TestBase_SetSameValueIsNotLogged(t *testing.T) {
	attr := NewBase(nil, "tags", compile(t, "tags", schema.Options{Type: schema.Array{Element: schema.Primitive{Name: "String"}}}))

	require.True(t, attr.Set([]string{"a"}))
	require.True(t, attr.Set([]string{"a"}))

	assert.Len(t, attr.Changes(), 1)
	assert.True(t, attr.HasChanges())
}

func TestBase_Rejections(t *testing.T) {
	status := schema.Union{Members: []schema.TypeMetadata{schema.Literal{Value: "open"}, schema.Literal{Value: "closed"}}}

	tests := []struct {
		name     string
		opts     schema.Options
		initial  interface{}
		next     interface{}
		accepted bool
	}{
		{"read-only after init", schema.Options{Type: schema.Primitive{Name: "String"}, ReadOnly: schema.Bool(true)}, "a", "b", false},
		{"required to nil", schema.Options{Type: schema.Primitive{Name: "String"}, Required: schema.Bool(true)}, "a", nil, false},
		{"optional to nil", schema.Options{Type: schema.Primitive{Name: "String"}}, "a", nil, true},
		{"enum member", schema.Options{Type: status}, "open", "closed", true},
		{"enum outsider", schema.Options{Type: status}, "open", "pending", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := NewBase(nil, "field", compile(t, "field", tt.opts))
			require.True(t, attr.Set(tt.initial))

			assert.Equal(t, tt.accepted, attr.Set(tt.next))
			if !tt.accepted {
				assert.Equal(t, tt.initial, attr.Get(), "rejected value must not be stored")
				assert.Len(t, attr.Changes(), 1)
			}
		})
	}
}

func TestBase_ReadOnlyAcceptsFirstAssignment(t *testing.T) {
	attr := NewBase(nil, "id", compile(t, "id", schema.Options{Type: schema.Primitive{Name: "String"}, ReadOnly: schema.Bool(true)}))

	assert.True(t, attr.Accepts("x"))
	assert.True(t, attr.Set("x"))
	assert.False(t, attr.Accepts("y"))
}

func TestBase_EnumRejectsInitialOutsider(t *testing.T) {
	opts := schema.Options{Type: schema.Union{Members: []schema.TypeMetadata{schema.Literal{Value: 1.0}}}}
	attr := NewBase(nil, "level", compile(t, "level", opts))

	assert.False(t, attr.Set(2))
	assert.False(t, attr.Initialized())
	assert.True(t, attr.Set(1))
}

func TestBase_RemoveChanges(t *testing.T) {
	attr := NewBase(nil, "n", nil)
	attr.Set(1)
	attr.Set(2)

	attr.RemoveChanges()
	assert.Empty(t, attr.Changes())
	assert.Equal(t, 2, attr.Get())
}

func TestBase_Owner(t *testing.T) {
	owner := &fakeOwner{values: map[string]interface{}{"other": 1}}
	alive := true
	ref := func() (Owner, bool) {
		if !alive {
			return nil, false
		}
		return owner, true
	}

	attr := NewBase(ref, "n", nil)
	got, ok := attr.Owner()
	require.True(t, ok)
	assert.Equal(t, "Fake", got.ClassName())

	alive = false
	_, ok = attr.Owner()
	assert.False(t, ok)

	_, ok = NewBase(nil, "n", nil).Owner()
	assert.False(t, ok)
}

type counterAttribute struct {
	*Base
	sets int
}

func (c *counterAttribute) Set(value interface{}) bool {
	c.sets++
	return c.Base.Set(value)
}

func TestVariants(t *testing.T) {
	v := NewVariants()
	s := compile(t, "count", schema.Options{Type: schema.Primitive{Name: "Number"}})

	ctor := func(owner OwnerRef, name string, s *schema.AttributeSchema) Attribute {
		return &counterAttribute{Base: NewBase(owner, name, s)}
	}
	require.NoError(t, v.Register("count", ctor))
	assert.Error(t, v.Register("count", ctor))
	assert.Error(t, v.Register("other", nil))

	attr := v.Create(nil, "count", s)
	counter, ok := attr.(*counterAttribute)
	require.True(t, ok)
	attr.Set(1)
	assert.Equal(t, 1, counter.sets)

	generic := v.Create(nil, "plain", s)
	_, ok = generic.(*Base)
	assert.True(t, ok)

	assert.Equal(t, []string{"count"}, v.Names())

	var none *Variants
	_, ok = none.Lookup("count")
	assert.False(t, ok)
	_, ok = none.Create(nil, "count", s).(*Base)
	assert.True(t, ok)
}
