package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Merge(t *testing.T) {
	base := Options{
		Type:     Primitive{Name: "String"},
		Required: Bool(true),
		Extra:    map[string]interface{}{"index": true},
	}
	next := Options{
		Required:       Bool(false),
		RelationColumn: "author",
		Extra:          map[string]interface{}{"unique": true},
	}

	merged := base.Merge(next)

	assert.Equal(t, Primitive{Name: "String"}, merged.Type)
	assert.False(t, merged.IsRequired())
	assert.Equal(t, "author", merged.RelationColumn)
	assert.Equal(t, map[string]interface{}{"index": true, "unique": true}, merged.Extra)

	// Merge never mutates its receiver
	assert.True(t, base.IsRequired())
	assert.Len(t, base.Extra, 1)
}

func TestOptions_MergeLastWriteWins(t *testing.T) {
	var accumulated Options
	accumulated = accumulated.Merge(Options{Required: Bool(true)})
	result := accumulated.Merge(Options{Required: Bool(false)})

	require.NotNil(t, result.Required)
	assert.False(t, *result.Required)
}

func TestNewAttributeSchema(t *testing.T) {
	model := &testModel{name: "Post"}

	s, err := NewAttributeSchema(nil, model, "authors", Options{
		Type:          Array{Element: ModelReference{Target: "User"}},
		Required:      Bool(true),
		ReadOnly:      Bool(true),
		RelationOwner: Bool(true),
		Cascade:       Bool(false),
	})
	require.NoError(t, err)

	assert.Equal(t, "authors", s.Name)
	assert.True(t, s.Required)
	assert.True(t, s.ReadOnly)
	assert.True(t, s.IsRelation())
	assert.Equal(t, KindArray, s.Type.Kind)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "authors", decoded["name"])
	assert.Equal(t, true, decoded["isRelationOwner"])
	assert.Equal(t, false, decoded["cascade"])
	assert.NotContains(t, decoded, "relationColumn")
}

func TestNewAttributeSchema_Unresolved(t *testing.T) {
	_, err := NewAttributeSchema(NewResolver(nil), &testModel{name: "Post"}, "x", Options{Type: Unresolved{Name: "Y"}})
	assert.True(t, errors.Is(err, ErrUnresolvedType))
}

func TestModelSchema(t *testing.T) {
	r := NewResolver(nil)
	model := &testModel{name: "Example"}

	mk := func(name string, opts Options) *AttributeSchema {
		s, err := NewAttributeSchema(r, model, name, opts)
		require.NoError(t, err)
		return s
	}

	first := mk("name", Options{Type: Primitive{Name: "String"}})
	override := mk("name", Options{Type: Primitive{Name: "String"}, Required: Bool(true)})
	count := mk("count", Options{Type: Primitive{Name: "Number"}})

	ms := NewModelSchema("Example", "examples", []*AttributeSchema{first, count, override})

	assert.Equal(t, []string{"name", "count"}, ms.Names())
	assert.Equal(t, 2, ms.Len())
	assert.True(t, ms.Has("count"))
	assert.False(t, ms.Has("missing"))

	got, ok := ms.Attribute("name")
	require.True(t, ok)
	assert.Same(t, override, got)
	assert.NoError(t, ms.Validate())

	data, err := json.Marshal(ms)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"className":"Example"`)
	assert.Contains(t, string(data), `"collectionName":"examples"`)

	var nilSchema *ModelSchema
	assert.Nil(t, nilSchema.Names())
	assert.False(t, nilSchema.Has("name"))
	assert.Equal(t, 0, nilSchema.Len())
}

func TestModelSchema_ValidateMissingType(t *testing.T) {
	ms := NewModelSchema("Broken", "brokens", []*AttributeSchema{{Name: "untyped"}})

	err := ms.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingType))
}
