package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTypeMetadata(t *testing.T) {
	data := []byte(`{
		"kind": "interface",
		"members": {
			"status": {"kind": "union", "identifier": "Status", "subTypes": [
				{"kind": "literal", "value": "draft"},
				{"kind": "literal", "value": 2}
			]},
			"owners": {"kind": "array", "subType": {"kind": "model", "identifier": "User"}},
			"meta": {"kind": "mixed"},
			"title": {"kind": "primitive", "identifier": "String"}
		}
	}`)

	node, err := DecodeTypeMetadata(data)
	require.NoError(t, err)

	iface, ok := node.(Interface)
	require.True(t, ok)
	assert.Equal(t, []string{"meta", "owners", "status", "title"}, iface.MemberNames())

	status := iface.Members["status"].(Union)
	assert.Equal(t, "Status", status.Name)
	assert.Equal(t, Literal{Value: "draft"}, status.Members[0])
	assert.Equal(t, Literal{Value: 2.0}, status.Members[1])

	owners := iface.Members["owners"].(Array)
	assert.Equal(t, ModelReference{Target: "User"}, owners.Element)
	assert.Equal(t, Mixed{}, iface.Members["meta"])
	assert.Equal(t, 3, Depth(node))
}

func TestDecodeTypeMetadata_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{`},
		{"unknown kind", `{"kind": "tuple"}`},
		{"array without element", `{"kind": "array"}`},
		{"boolean literal", `{"kind": "literal", "value": true}`},
		{"bad union member", `{"kind": "union", "subTypes": [{"kind": "nope"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTypeMetadata([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestEncodeTypeMetadata(t *testing.T) {
	node := Array{Element: Union{Name: "Level", Members: []TypeMetadata{Literal{Value: 1.0}, Literal{Value: 2.0}}}}

	data, err := EncodeTypeMetadata(node)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"array","subType":{"kind":"union","identifier":"Level","subTypes":[{"kind":"literal","value":1},{"kind":"literal","value":2}]}}`, string(data))

	_, err = EncodeTypeMetadata(nil)
	assert.Error(t, err)
}

func TestTypeMetadataFromMap(t *testing.T) {
	node, err := TypeMetadataFromMap(map[string]interface{}{
		"kind":       "unresolved",
		"identifier": "Ghost",
	})
	require.NoError(t, err)
	assert.Equal(t, Unresolved{Name: "Ghost"}, node)
}

func TestLiteral(t *testing.T) {
	assert.True(t, Literal{Value: 3}.IsNumber())
	assert.False(t, Literal{Value: 3}.IsString())
	assert.True(t, Literal{Value: "x"}.IsString())
	assert.Equal(t, "Number", Literal{Value: 3}.Identifier())
	assert.Equal(t, "String", Literal{Value: "x"}.Identifier())
}

func TestStorageType(t *testing.T) {
	parsed, err := ParseStorageType("ObjectId")
	require.NoError(t, err)
	assert.Equal(t, TypeObjectID, parsed)

	_, err = ParseStorageType("Duration")
	assert.Error(t, err)

	var decoded StorageType
	require.NoError(t, decoded.UnmarshalJSON([]byte(`"Decimal128"`)))
	assert.Equal(t, TypeDecimal128, decoded)
	assert.Error(t, decoded.UnmarshalJSON([]byte(`"nope"`)))
	assert.Equal(t, "unknown", StorageType(99).String())
}
