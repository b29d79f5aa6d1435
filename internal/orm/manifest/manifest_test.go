package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/modelkit/internal/orm/model"
	"github.com/conduit-lang/modelkit/internal/orm/registry"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

const blogManifest = `
models:
  - class: Post
    collection: posts
    extends: Document
    attributes:
      - name: title
        type: String
        required: true
      - name: status
        type: "'draft' | 'published'"
      - name: author
        type: "@User"
      - name: tags
        type: String[]
      - name: meta
        type:
          kind: interface
          members:
            views: {kind: primitive, identifier: Number}
  - class: Document
    attributes:
      - name: id
        type: String
        readOnly: true
      - name: createdAt
        type: Date
  - class: User
    collection: users
    attributes:
      - name: email
        type: String
        required: true
`

func TestParseType(t *testing.T) {
	tests := []struct {
		input    interface{}
		expected schema.TypeMetadata
	}{
		{"String", schema.Primitive{Name: "String"}},
		{"@User", schema.ModelReference{Target: "User"}},
		{"Number[]", schema.Array{Element: schema.Primitive{Name: "Number"}}},
		{"@Tag[]", schema.Array{Element: schema.ModelReference{Target: "Tag"}}},
		{"Mixed", schema.Mixed{}},
		{"'a' | 'b|c'", schema.Union{Members: []schema.TypeMetadata{
			schema.Literal{Value: "a"}, schema.Literal{Value: "b|c"},
		}}},
		{"1 | 2.5", schema.Union{Members: []schema.TypeMetadata{
			schema.Literal{Value: 1.0}, schema.Literal{Value: 2.5},
		}}},
		{map[string]interface{}{"kind": "model", "identifier": "User"}, schema.ModelReference{Target: "User"}},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.input)
		require.NoError(t, err, "%v", tt.input)
		assert.Equal(t, tt.expected, got, "%v", tt.input)
	}

	for _, bad := range []interface{}{"", "@", 42, map[string]interface{}{"kind": "bogus"}} {
		_, err := ParseType(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		errMsg   string
	}{
		{"missing class", "models:\n  - attributes: []\n", "class name is required"},
		{"duplicate", "models:\n  - class: A\n  - class: A\n", "declared twice"},
		{"unknown parent", "models:\n  - class: A\n    extends: B\n", "unknown parent B"},
		{"unnamed attribute", "models:\n  - class: A\n    attributes:\n      - type: String\n", "name is required"},
		{"invalid yaml", "models: [", "failed to parse manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestManifest_Declare(t *testing.T) {
	m, err := Parse([]byte(blogManifest))
	require.NoError(t, err)

	f := model.NewFactory(registry.New(nil))
	classes, err := m.Declare(f)
	require.NoError(t, err)
	require.Len(t, classes, 3)

	post := classes["Post"]
	ms, ok := post.Schema()
	require.True(t, ok)
	assert.Equal(t, "posts", ms.CollectionName)
	assert.Equal(t, []string{"id", "createdAt", "title", "status", "author", "tags", "meta"}, ms.Names())

	status, _ := ms.Attribute("status")
	assert.Equal(t, schema.KindEnum, status.Type.Kind)
	assert.Equal(t, []interface{}{"draft", "published"}, status.Type.Enum)

	author, _ := ms.Attribute("author")
	assert.Equal(t, schema.KindReference, author.Type.Kind)
	assert.Equal(t, "User", author.Type.Ref)

	meta, _ := ms.Attribute("meta")
	assert.Equal(t, schema.KindObject, meta.Type.Kind)

	doc, ok := classes["Document"].Schema()
	require.True(t, ok)
	assert.Equal(t, "documents", doc.CollectionName)

	inst, err := post.New(model.Properties{"title": "Hello", "status": "draft"})
	require.NoError(t, err)
	assert.False(t, inst.Set("status", "archived"))
	assert.True(t, inst.Set("tags", []interface{}{"go"}))
	assert.Equal(t, "Hello", inst.Raw().(model.Record)["title"])

	_, err = post.New(model.Properties{"status": "unknown"})
	assert.True(t, model.IsAssignmentErrors(err))
}

func TestManifest_DeclareInvalidType(t *testing.T) {
	m, err := Parse([]byte("models:\n  - class: A\n    attributes:\n      - name: broken\n        type: {kind: array}\n"))
	require.NoError(t, err)

	_, err = m.Declare(model.NewFactory(registry.New(nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model A")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yml")
	require.NoError(t, os.WriteFile(path, []byte(blogManifest), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Models, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.json")
	data := `{"models": [{"class": "Tag", "attributes": [{"name": "label", "type": "String", "required": true}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Models, 1)
	require.NotNil(t, m.Models[0].Attributes[0].Required)
	assert.True(t, *m.Models[0].Attributes[0].Required)
}
