// Package manifest declares model classes and their attributes from a YAML
// (or JSON) manifest file.
//
// A manifest lists models in any order:
//
//	models:
//	  - class: Post
//	    collection: posts
//	    extends: Document
//	    attributes:
//	      - name: title
//	        type: String
//	        required: true
//	      - name: status
//	        type: "'draft' | 'published'"
//	      - name: author
//	        type: "@User"
//	      - name: tags
//	        type: String[]
//
// Types are either a shorthand string or a type metadata node such as
// {kind: interface, members: {views: {kind: primitive, identifier: Number}}}.
package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/modelkit/internal/orm/model"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// Manifest is the decoded manifest file
type Manifest struct {
	Models []ModelDecl `yaml:"models"`
}

// ModelDecl declares one model class
type ModelDecl struct {
	Class      string          `yaml:"class"`
	Collection string          `yaml:"collection,omitempty"`
	Extends    string          `yaml:"extends,omitempty"`
	Attributes []AttributeDecl `yaml:"attributes"`
}

// AttributeDecl declares one attribute. Unset options do not override
// options accumulated by earlier declarations of the same name.
type AttributeDecl struct {
	Name           string                 `yaml:"name"`
	Type           interface{}            `yaml:"type"`
	Required       *bool                  `yaml:"required,omitempty"`
	ReadOnly       *bool                  `yaml:"readOnly,omitempty"`
	RelationColumn string                 `yaml:"relationColumn,omitempty"`
	RelationOwner  *bool                  `yaml:"isRelationOwner,omitempty"`
	Cascade        *bool                  `yaml:"cascade,omitempty"`
	Extra          map[string]interface{} `yaml:"extra,omitempty"`
}

// Load reads and parses a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest and checks its structure
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks class names, parents and attribute names
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Models))
	for i, decl := range m.Models {
		if decl.Class == "" {
			return fmt.Errorf("model %d: class name is required", i)
		}
		if seen[decl.Class] {
			return fmt.Errorf("model %s: declared twice", decl.Class)
		}
		seen[decl.Class] = true
		for j, attr := range decl.Attributes {
			if attr.Name == "" {
				return fmt.Errorf("model %s: attribute %d: name is required", decl.Class, j)
			}
		}
	}
	for _, decl := range m.Models {
		if decl.Extends != "" && !seen[decl.Extends] {
			return fmt.Errorf("model %s: unknown parent %s", decl.Class, decl.Extends)
		}
	}
	return nil
}

// Options converts the declaration to attribute options
func (a AttributeDecl) Options() (schema.Options, error) {
	opts := schema.Options{
		Required:       a.Required,
		ReadOnly:       a.ReadOnly,
		RelationColumn: a.RelationColumn,
		RelationOwner:  a.RelationOwner,
		Cascade:        a.Cascade,
		Extra:          a.Extra,
	}
	if a.Type == nil {
		return opts, nil
	}

	t, err := ParseType(a.Type)
	if err != nil {
		return schema.Options{}, fmt.Errorf("attribute %s: %w", a.Name, err)
	}
	opts.Type = t
	return opts, nil
}

// Declare declares every model of the manifest on f and returns the model
// classes by class name. Parents are declared before the models extending
// them.
func (m *Manifest) Declare(f *model.Factory) (map[string]*model.Class, error) {
	order, err := m.order()
	if err != nil {
		return nil, err
	}

	raws := make(map[string]*model.Class, len(order))
	classes := make(map[string]*model.Class, len(order))
	d := f.Declarer()

	for _, decl := range order {
		var raw *model.Class
		if decl.Extends != "" {
			raw = raws[decl.Extends].Extend(decl.Class, newRecord)
		} else {
			raw = model.NewClass(decl.Class, nil, newRecord)
		}
		raws[decl.Class] = raw

		for _, attr := range decl.Attributes {
			opts, err := attr.Options()
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", decl.Class, err)
			}
			if _, err := d.Attr(raw, attr.Name, opts); err != nil {
				return nil, fmt.Errorf("model %s: %w", decl.Class, err)
			}
		}
	}

	// Models are built once every declaration is registered, so inherited
	// attributes are complete
	for _, decl := range order {
		cls, err := f.Model(raws[decl.Class], model.Options{
			ClassName:      decl.Class,
			CollectionName: decl.Collection,
		})
		if err != nil {
			return nil, err
		}
		classes[decl.Class] = cls
	}
	return classes, nil
}

func newRecord() interface{} {
	return model.Record{}
}

// order returns the declarations with parents first. Siblings keep manifest
// order.
func (m *Manifest) order() ([]ModelDecl, error) {
	byClass := make(map[string]ModelDecl, len(m.Models))
	for _, decl := range m.Models {
		byClass[decl.Class] = decl
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(m.Models))
	var result []ModelDecl

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("model %s: inheritance cycle", name)
		}
		state[name] = visiting
		decl, ok := byClass[name]
		if !ok {
			return fmt.Errorf("unknown model %s", name)
		}
		if decl.Extends != "" {
			if err := visit(decl.Extends); err != nil {
				return err
			}
		}
		state[name] = done
		result = append(result, decl)
		return nil
	}

	for _, decl := range m.Models {
		if err := visit(decl.Class); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ParseType converts a manifest type to type metadata. Strings use the
// shorthand syntax, maps the metadata node form.
func ParseType(v interface{}) (schema.TypeMetadata, error) {
	switch t := v.(type) {
	case string:
		return parseShorthand(t)
	case map[string]interface{}:
		return schema.TypeMetadataFromMap(t)
	default:
		return nil, fmt.Errorf("unsupported type declaration %T", v)
	}
}

// parseShorthand parses "Name", "@Model", "Elem[]" and unions of literals
// or types separated by "|"
func parseShorthand(s string) (schema.TypeMetadata, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type")
	}

	if parts := splitUnion(s); len(parts) > 1 {
		members := make([]schema.TypeMetadata, 0, len(parts))
		for _, part := range parts {
			member, err := parseShorthand(part)
			if err != nil {
				return nil, err
			}
			members = append(members, member)
		}
		return schema.Union{Members: members}, nil
	}

	switch {
	case strings.HasSuffix(s, "[]"):
		elem, err := parseShorthand(strings.TrimSuffix(s, "[]"))
		if err != nil {
			return nil, err
		}
		return schema.Array{Element: elem}, nil
	case strings.HasPrefix(s, "@"):
		if len(s) == 1 {
			return nil, fmt.Errorf("model reference without name")
		}
		return schema.ModelReference{Target: s[1:]}, nil
	case isQuoted(s):
		return schema.Literal{Value: s[1 : len(s)-1]}, nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return schema.Literal{Value: f}, nil
	}
	if s == "Mixed" {
		return schema.Mixed{}, nil
	}
	return schema.Primitive{Name: s}, nil
}

// splitUnion splits on "|" outside of quotes
func splitUnion(s string) []string {
	var parts []string
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '|':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]
}
