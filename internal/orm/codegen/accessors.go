package codegen

import (
	"fmt"
	"go/format"
	"strings"
	"unicode"

	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// DefaultModelImport is the import path of the model runtime used by
// generated accessors
const DefaultModelImport = "github.com/conduit-lang/modelkit/internal/orm/model"

// AccessorGenerator generates typed accessor methods for declared attributes.
// The generated types wrap a model instance, so every accessor goes through
// the attribute logic of the instance.
type AccessorGenerator struct {
	pkg         string
	modelImport string
}

// NewAccessorGenerator creates a generator emitting code for package pkg
func NewAccessorGenerator(pkg, modelImport string) *AccessorGenerator {
	if pkg == "" {
		pkg = "models"
	}
	if modelImport == "" {
		modelImport = DefaultModelImport
	}
	return &AccessorGenerator{pkg: pkg, modelImport: modelImport}
}

// Generate returns gofmt-formatted Go source with one accessor type per model
func (g *AccessorGenerator) Generate(models []*schema.ModelSchema) ([]byte, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("no models to generate accessors for")
	}

	var body strings.Builder
	usesTime := false

	for _, ms := range models {
		if ms == nil {
			return nil, fmt.Errorf("model schema cannot be nil")
		}
		code, needsTime := g.generateModel(ms)
		usesTime = usesTime || needsTime
		body.WriteString(code)
	}

	var src strings.Builder
	src.WriteString("// Code generated by modelc. DO NOT EDIT.\n\n")
	src.WriteString(fmt.Sprintf("package %s\n\n", g.pkg))
	src.WriteString("import (\n")
	if usesTime {
		src.WriteString("\t\"time\"\n\n")
	}
	src.WriteString(fmt.Sprintf("\t%q\n", g.modelImport))
	src.WriteString(")\n\n")
	src.WriteString(body.String())

	formatted, err := format.Source([]byte(src.String()))
	if err != nil {
		return nil, fmt.Errorf("formatting generated code: %w", err)
	}
	return formatted, nil
}

func (g *AccessorGenerator) generateModel(ms *schema.ModelSchema) (string, bool) {
	typeName := toPascalCase(ms.ClassName)
	usesTime := false

	var code strings.Builder
	code.WriteString(fmt.Sprintf(`// %[1]s is the typed view of a %[2]s instance
type %[1]s struct {
	*model.Instance
}

// As%[1]s wraps inst in its typed view
func As%[1]s(inst *model.Instance) %[1]s {
	return %[1]s{Instance: inst}
}

`, typeName, ms.ClassName))

	for _, attr := range ms.Attributes() {
		goType := GoType(attr.Type)
		if strings.Contains(goType, "time.Time") {
			usesTime = true
		}
		code.WriteString(g.generateGetter(typeName, attr, goType))
		code.WriteString(g.generateSetter(typeName, attr, goType))
		code.WriteString(g.generateChanged(typeName, attr))
	}
	return code.String(), usesTime
}

func (g *AccessorGenerator) generateGetter(typeName string, attr *schema.AttributeSchema, goType string) string {
	method := toPascalCase(attr.Name)
	if goType == "interface{}" {
		return fmt.Sprintf(`// %[2]s returns the %[3]s attribute
func (m %[1]s) %[2]s() interface{} {
	v, _ := m.Instance.Get(%[3]q)
	return v
}

`, typeName, method, attr.Name)
	}

	return fmt.Sprintf(`// %[2]s returns the %[3]s attribute
func (m %[1]s) %[2]s() %[4]s {
	v, _ := model.Value[%[4]s](m.Instance, %[3]q)
	return v
}

`, typeName, method, attr.Name, goType)
}

func (g *AccessorGenerator) generateSetter(typeName string, attr *schema.AttributeSchema, goType string) string {
	method := "Set" + toPascalCase(attr.Name)
	return fmt.Sprintf(`// %[2]s assigns the %[3]s attribute and reports whether it was accepted
func (m %[1]s) %[2]s(value %[4]s) bool {
	return m.Instance.Set(%[3]q, value)
}

`, typeName, method, attr.Name, goType)
}

func (g *AccessorGenerator) generateChanged(typeName string, attr *schema.AttributeSchema) string {
	method := toPascalCase(attr.Name) + "Changed"
	return fmt.Sprintf(`// %[2]s returns true if the %[3]s attribute has been modified
func (m %[1]s) %[2]s() bool {
	return m.Instance.Changed(%[3]q)
}

`, typeName, method, attr.Name)
}

// toPascalCase converts camelCase or snake_case to PascalCase. "id" and
// trailing "Id" become "ID".
func toPascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}

	result := b.String()
	if result == "Id" {
		return "ID"
	}
	if strings.HasSuffix(result, "Id") {
		return strings.TrimSuffix(result, "Id") + "ID"
	}
	if result != "" && unicode.IsDigit(rune(result[0])) {
		return "X" + result
	}
	return result
}
