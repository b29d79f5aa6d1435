package codegen

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

func attr(t *testing.T, name string, opts schema.Options) *schema.AttributeSchema {
	t.Helper()
	s, err := schema.NewAttributeSchema(nil, nil, name, opts)
	require.NoError(t, err)
	return s
}

func testModels(t *testing.T) []*schema.ModelSchema {
	user := schema.NewModelSchema("User", "users", []*schema.AttributeSchema{
		attr(t, "id", schema.Options{Type: schema.Primitive{Name: "String"}, ReadOnly: schema.Bool(true)}),
		attr(t, "email", schema.Options{Type: schema.Primitive{Name: "String"}, Required: schema.Bool(true)}),
	})
	post := schema.NewModelSchema("Post", "posts", []*schema.AttributeSchema{
		attr(t, "title", schema.Options{Type: schema.Primitive{Name: "String"}, Required: schema.Bool(true)}),
		attr(t, "status", schema.Options{Type: schema.Union{Members: []schema.TypeMetadata{
			schema.Literal{Value: "draft"}, schema.Literal{Value: "it's live"},
		}}}),
		attr(t, "priority", schema.Options{Type: schema.Union{Members: []schema.TypeMetadata{
			schema.Literal{Value: 1.0}, schema.Literal{Value: 2.5},
		}}}),
		attr(t, "authorId", schema.Options{Type: schema.ModelReference{Target: "User"}}),
		attr(t, "tags", schema.Options{Type: schema.Array{Element: schema.Primitive{Name: "String"}}}),
		attr(t, "meta", schema.Options{Type: schema.Interface{Members: map[string]schema.TypeMetadata{
			"views": schema.Primitive{Name: "Number"},
		}}}),
		attr(t, "publishedAt", schema.Options{Type: schema.Primitive{Name: "Date"}}),
	})
	return []*schema.ModelSchema{post, user}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		driver   string
		expected Dialect
		wantErr  bool
	}{
		{"pgx", DialectPostgres, false},
		{"postgres", DialectPostgres, false},
		{"sqlite3", DialectSQLite, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := ParseDialect(tt.driver)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTypeMapper_MapType(t *testing.T) {
	str := &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeString}
	num := &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeNumber}

	tests := []struct {
		name     string
		fragment *schema.Fragment
		postgres string
		sqlite   string
	}{
		{"string", str, "TEXT", "TEXT"},
		{"number", num, "DOUBLE PRECISION", "REAL"},
		{"boolean", &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeBoolean}, "BOOLEAN", "INTEGER"},
		{"date", &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeDate}, "TIMESTAMP WITH TIME ZONE", "TEXT"},
		{"buffer", &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeBuffer}, "BYTEA", "BLOB"},
		{"mixed", &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeMixed}, "JSONB", "TEXT"},
		{"reference", &schema.Fragment{Kind: schema.KindReference, Type: schema.TypeObjectID, Ref: "User"}, "TEXT", "TEXT"},
		{"string array", &schema.Fragment{Kind: schema.KindArray, Element: str}, "TEXT[]", "TEXT"},
		{"nested array", &schema.Fragment{Kind: schema.KindArray, Element: &schema.Fragment{Kind: schema.KindArray, Element: num}}, "JSONB", "TEXT"},
		{"object", &schema.Fragment{Kind: schema.KindObject, Type: schema.TypeSubdocument}, "JSONB", "TEXT"},
		{"string enum", &schema.Fragment{Kind: schema.KindEnum, Type: schema.TypeString, Enum: []interface{}{"a"}}, "TEXT", "TEXT"},
	}

	pg := NewTypeMapper(DialectPostgres)
	lite := NewTypeMapper(DialectSQLite)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pg.MapType(tt.fragment)
			require.NoError(t, err)
			assert.Equal(t, tt.postgres, got)

			got, err = lite.MapType(tt.fragment)
			require.NoError(t, err)
			assert.Equal(t, tt.sqlite, got)
		})
	}

	_, err := pg.MapType(nil)
	assert.Error(t, err)
}

func TestTypeMapper_EnumCheck(t *testing.T) {
	tm := NewTypeMapper(DialectPostgres)

	assert.Equal(t, `CHECK ("status" IN ('a', 'it''s'))`,
		tm.EnumCheck("status", &schema.Fragment{Kind: schema.KindEnum, Type: schema.TypeString, Enum: []interface{}{"a", "it's"}}))
	assert.Equal(t, `CHECK ("level" IN (1, 2.5))`,
		tm.EnumCheck("level", &schema.Fragment{Kind: schema.KindEnum, Type: schema.TypeNumber, Enum: []interface{}{1.0, 2.5}}))

	assert.Empty(t, tm.EnumCheck("x", &schema.Fragment{Kind: schema.KindEnum, Type: schema.TypeMixed, Enum: []interface{}{1.0, "a"}}))
	assert.Empty(t, tm.EnumCheck("x", &schema.Fragment{Kind: schema.KindEnum, Type: schema.TypeMixed, Enum: []interface{}{}}))
	assert.Empty(t, tm.EnumCheck("x", &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeString}))
}

func TestGoType(t *testing.T) {
	str := &schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeString}

	assert.Equal(t, "string", GoType(str))
	assert.Equal(t, "[]string", GoType(&schema.Fragment{Kind: schema.KindArray, Element: str}))
	assert.Equal(t, "float64", GoType(&schema.Fragment{Kind: schema.KindEnum, Type: schema.TypeNumber}))
	assert.Equal(t, "time.Time", GoType(&schema.Fragment{Kind: schema.KindScalar, Type: schema.TypeDate}))
	assert.Equal(t, "interface{}", GoType(&schema.Fragment{Kind: schema.KindReference, Ref: "User"}))
	assert.Equal(t, "map[string]interface{}", GoType(&schema.Fragment{Kind: schema.KindObject}))
	assert.Equal(t, "interface{}", GoType(nil))
}

func TestDDLGenerator_Generate(t *testing.T) {
	gen := NewDDLGenerator(DialectPostgres, "id")

	statements, err := gen.Generate(testModels(t))
	require.NoError(t, err)
	require.Len(t, statements, 2)

	users, posts := statements[0], statements[1]
	assert.True(t, strings.HasPrefix(users, `CREATE TABLE IF NOT EXISTS "users"`), "referenced table first:\n%s", users)
	assert.Contains(t, users, `"id" TEXT PRIMARY KEY`)
	assert.Contains(t, users, `"email" TEXT NOT NULL`)

	expected := []string{
		`CREATE TABLE IF NOT EXISTS "posts"`,
		`"id" TEXT PRIMARY KEY`,
		`"title" TEXT NOT NULL`,
		`"status" TEXT NULL CHECK ("status" IN ('draft', 'it''s live'))`,
		`"priority" DOUBLE PRECISION NULL CHECK ("priority" IN (1, 2.5))`,
		`"author_id" TEXT NULL REFERENCES "users" ("id")`,
		`"tags" TEXT[] NULL`,
		`"meta" JSONB NULL`,
		`"published_at" TIMESTAMP WITH TIME ZONE NULL`,
	}
	for _, exp := range expected {
		assert.Contains(t, posts, exp)
	}
}

func TestDDLGenerator_CyclicReferences(t *testing.T) {
	a := schema.NewModelSchema("A", "as", []*schema.AttributeSchema{
		attr(t, "b", schema.Options{Type: schema.ModelReference{Target: "B"}}),
	})
	b := schema.NewModelSchema("B", "bs", []*schema.AttributeSchema{
		attr(t, "a", schema.Options{Type: schema.ModelReference{Target: "A"}}),
		attr(t, "parent", schema.Options{Type: schema.ModelReference{Target: "B"}}),
	})

	statements, err := NewDDLGenerator(DialectPostgres, "").Generate([]*schema.ModelSchema{b, a})
	require.NoError(t, err)
	require.Len(t, statements, 3)

	assert.Contains(t, statements[0], `CREATE TABLE IF NOT EXISTS "as"`)
	assert.NotContains(t, statements[0], "REFERENCES")
	assert.Contains(t, statements[1], `"a" TEXT NULL REFERENCES "as" ("id")`)
	assert.Contains(t, statements[1], `"parent" TEXT NULL REFERENCES "bs" ("id")`)
	assert.Equal(t, `ALTER TABLE "as" ADD FOREIGN KEY ("b") REFERENCES "bs" ("id");`, statements[2])

	statements, err = NewDDLGenerator(DialectSQLite, "").Generate([]*schema.ModelSchema{b, a})
	require.NoError(t, err)
	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], `"b" TEXT NULL REFERENCES "bs" ("id")`)
}

func TestDDLGenerator_Errors(t *testing.T) {
	gen := NewDDLGenerator(DialectPostgres, "id")

	_, err := gen.Generate([]*schema.ModelSchema{nil})
	assert.Error(t, err)

	broken := schema.NewModelSchema("Broken", "brokens", []*schema.AttributeSchema{{Name: "untyped"}})
	_, err = gen.Generate([]*schema.ModelSchema{broken})
	assert.Error(t, err)

	_, err = gen.GenerateCreateTable(nil, nil)
	assert.Error(t, err)
}

func TestDDLGenerator_GenerateCreateTableUnknownReference(t *testing.T) {
	models := testModels(t)
	stmt, err := NewDDLGenerator(DialectSQLite, "id").GenerateCreateTable(models[0], nil)
	require.NoError(t, err)
	assert.Contains(t, stmt, `"author_id" TEXT NULL,`)
	assert.NotContains(t, stmt, "REFERENCES")
}

func TestDDLGenerator_GenerateDropTable(t *testing.T) {
	ms := schema.NewModelSchema("Post", "", nil)
	assert.Equal(t, `DROP TABLE IF EXISTS "posts" CASCADE;`, NewDDLGenerator(DialectPostgres, "id").GenerateDropTable(ms))
	assert.Equal(t, `DROP TABLE IF EXISTS "posts";`, NewDDLGenerator(DialectSQLite, "id").GenerateDropTable(ms))
}

func TestAccessorGenerator_Generate(t *testing.T) {
	gen := NewAccessorGenerator("models", "")

	src, err := gen.Generate(testModels(t))
	require.NoError(t, err)

	code := string(src)
	expected := []string{
		"// Code generated by modelc. DO NOT EDIT.",
		"package models",
		`"time"`,
		`"github.com/conduit-lang/modelkit/internal/orm/model"`,
		"type Post struct {",
		"func AsPost(inst *model.Instance) Post",
		"func (m Post) Title() string",
		"func (m Post) SetTitle(value string) bool",
		"func (m Post) TitleChanged() bool",
		"func (m Post) Priority() float64",
		"func (m Post) AuthorID() interface{}",
		"func (m Post) Tags() []string",
		"func (m Post) PublishedAt() time.Time",
		"func (m User) ID() string",
		`model.Value[string](m.Instance, "email")`,
	}
	for _, exp := range expected {
		assert.Contains(t, code, exp)
	}

	_, err = parser.ParseFile(token.NewFileSet(), "models.go", src, parser.AllErrors)
	assert.NoError(t, err)
}

func TestAccessorGenerator_Errors(t *testing.T) {
	gen := NewAccessorGenerator("", "")

	_, err := gen.Generate(nil)
	assert.Error(t, err)

	_, err = gen.Generate([]*schema.ModelSchema{nil})
	assert.Error(t, err)
}

func TestToPascalCase(t *testing.T) {
	tests := map[string]string{
		"name":          "Name",
		"exampleClient": "ExampleClient",
		"created_at":    "CreatedAt",
		"id":            "ID",
		"authorId":      "AuthorID",
		"2fa":           "X2fa",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, toPascalCase(input), input)
	}
}
