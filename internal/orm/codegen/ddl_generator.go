package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/modelkit/internal/orm/naming"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// DDLGenerator generates CREATE TABLE statements from model schemas
type DDLGenerator struct {
	typeMapper *TypeMapper
	idKey      string
}

// NewDDLGenerator creates a new DDL generator. idKey names the attribute
// stored as primary key.
func NewDDLGenerator(dialect Dialect, idKey string) *DDLGenerator {
	if idKey == "" {
		idKey = "id"
	}
	return &DDLGenerator{
		typeMapper: NewTypeMapper(dialect),
		idKey:      idKey,
	}
}

// TypeMapper returns the mapper used for column types
func (g *DDLGenerator) TypeMapper() *TypeMapper {
	return g.typeMapper
}

// TableName returns the table a model is stored in
func TableName(ms *schema.ModelSchema) string {
	if ms.CollectionName != "" {
		return ms.CollectionName
	}
	return naming.Collection(ms.ClassName)
}

// ColumnName returns the column an attribute is stored in
func ColumnName(attribute string) string {
	return naming.SnakeCase(attribute)
}

// Generate returns the DDL statements creating a table per model. Tables are
// ordered so referenced tables come first; references inside a cycle are
// added afterwards with ALTER TABLE on PostgreSQL.
func (g *DDLGenerator) Generate(models []*schema.ModelSchema) ([]string, error) {
	byClass := make(map[string]*schema.ModelSchema, len(models))
	for _, ms := range models {
		if ms == nil {
			return nil, fmt.Errorf("model schema cannot be nil")
		}
		byClass[ms.ClassName] = ms
	}

	order := g.orderModels(models, byClass)
	created := make(map[string]bool, len(order))

	var statements []string
	var deferred []string
	for _, ms := range order {
		stmt, later, err := g.createTable(ms, byClass, created)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", ms.ClassName, err)
		}
		statements = append(statements, stmt)
		deferred = append(deferred, later...)
		created[ms.ClassName] = true
	}

	return append(statements, deferred...), nil
}

// GenerateCreateTable generates the CREATE TABLE statement of a single model.
// References to models outside models are emitted without constraint.
func (g *DDLGenerator) GenerateCreateTable(ms *schema.ModelSchema, models []*schema.ModelSchema) (string, error) {
	if ms == nil {
		return "", fmt.Errorf("model schema cannot be nil")
	}
	byClass := make(map[string]*schema.ModelSchema, len(models))
	for _, m := range models {
		byClass[m.ClassName] = m
	}
	stmt, _, err := g.createTable(ms, byClass, nil)
	return stmt, err
}

func (g *DDLGenerator) createTable(ms *schema.ModelSchema, byClass map[string]*schema.ModelSchema, created map[string]bool) (string, []string, error) {
	table := TableName(ms)

	var columns []string
	var deferred []string

	if !ms.Has(g.idKey) {
		columns = append(columns, fmt.Sprintf("%s TEXT PRIMARY KEY", naming.QuoteIdentifier(ColumnName(g.idKey))))
	}

	for _, attr := range ms.Attributes() {
		def, err := g.columnDefinition(attr)
		if err != nil {
			return "", nil, fmt.Errorf("attribute %s: %w", attr.Name, err)
		}

		if target, ok := byClass[attr.Type.Ref]; ok && attr.Type.Kind == schema.KindReference {
			ref := fmt.Sprintf("REFERENCES %s (%s)",
				naming.QuoteIdentifier(TableName(target)),
				naming.QuoteIdentifier(ColumnName(g.idKey)))

			// PostgreSQL rejects references to tables that do not exist yet
			if created != nil && !created[target.ClassName] && target != ms && g.typeMapper.dialect == DialectPostgres {
				deferred = append(deferred, fmt.Sprintf("ALTER TABLE %s ADD FOREIGN KEY (%s) %s;",
					naming.QuoteIdentifier(table),
					naming.QuoteIdentifier(ColumnName(attr.Name)),
					ref))
			} else {
				def += " " + ref
			}
		}
		columns = append(columns, def)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", naming.QuoteIdentifier(table)))
	for i, col := range columns {
		b.WriteString("  ")
		b.WriteString(col)
		if i < len(columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")

	return b.String(), deferred, nil
}

// columnDefinition generates a column definition for an attribute
func (g *DDLGenerator) columnDefinition(attr *schema.AttributeSchema) (string, error) {
	if attr.Type == nil {
		return "", fmt.Errorf("attribute has no compiled type")
	}

	column := ColumnName(attr.Name)
	columnType, err := g.typeMapper.MapType(attr.Type)
	if err != nil {
		return "", fmt.Errorf("mapping type: %w", err)
	}

	parts := []string{naming.QuoteIdentifier(column), columnType}
	if attr.Name == g.idKey {
		parts = append(parts, "PRIMARY KEY")
	} else {
		parts = append(parts, g.typeMapper.MapNullability(attr))
	}
	if check := g.typeMapper.EnumCheck(column, attr.Type); check != "" {
		parts = append(parts, check)
	}
	return strings.Join(parts, " "), nil
}

// orderModels sorts models so that referenced models come before the models
// referencing them. Models caught in a cycle keep class name order.
func (g *DDLGenerator) orderModels(models []*schema.ModelSchema, byClass map[string]*schema.ModelSchema) []*schema.ModelSchema {
	outDegree := make(map[string]int, len(models))
	reverseEdges := make(map[string][]string)
	for _, ms := range models {
		deps := g.dependencies(ms, byClass)
		outDegree[ms.ClassName] = len(deps)
		for _, dep := range deps {
			reverseEdges[dep] = append(reverseEdges[dep], ms.ClassName)
		}
	}

	var queue []string
	for name, degree := range outDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	done := make(map[string]bool, len(models))
	var result []*schema.ModelSchema
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		done[name] = true
		result = append(result, byClass[name])

		var ready []string
		for _, dependent := range reverseEdges[name] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	var remaining []string
	for name := range outDegree {
		if !done[name] {
			remaining = append(remaining, name)
		}
	}
	sort.Strings(remaining)
	for _, name := range remaining {
		result = append(result, byClass[name])
	}
	return result
}

// dependencies returns the distinct other models ms references
func (g *DDLGenerator) dependencies(ms *schema.ModelSchema, byClass map[string]*schema.ModelSchema) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, attr := range ms.Attributes() {
		if attr.Type == nil || attr.Type.Kind != schema.KindReference {
			continue
		}
		target := attr.Type.Ref
		if _, ok := byClass[target]; !ok || target == ms.ClassName || seen[target] {
			continue
		}
		seen[target] = true
		deps = append(deps, target)
	}
	return deps
}

// GenerateDropTable generates a DROP TABLE statement
func (g *DDLGenerator) GenerateDropTable(ms *schema.ModelSchema) string {
	if g.typeMapper.dialect == DialectSQLite {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s;", naming.QuoteIdentifier(TableName(ms)))
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", naming.QuoteIdentifier(TableName(ms)))
}
