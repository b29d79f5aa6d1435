// Package codegen generates SQL DDL and typed Go accessors from compiled
// model schemas.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/modelkit/internal/orm/naming"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// Dialect is the SQL flavour DDL is generated for
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a database/sql driver name to its dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// TypeMapper maps compiled fragments to column types of one dialect
type TypeMapper struct {
	dialect Dialect
}

// NewTypeMapper creates a new TypeMapper
func NewTypeMapper(dialect Dialect) *TypeMapper {
	return &TypeMapper{dialect: dialect}
}

// Dialect returns the dialect of the mapper
func (tm *TypeMapper) Dialect() Dialect {
	return tm.dialect
}

// MapType converts a fragment to a column type
func (tm *TypeMapper) MapType(f *schema.Fragment) (string, error) {
	if f == nil {
		return "", fmt.Errorf("fragment cannot be nil")
	}

	switch f.Kind {
	case schema.KindArray:
		// Arrays of scalars become native arrays on PostgreSQL
		if tm.dialect == DialectPostgres && f.Element != nil && f.Element.Kind != schema.KindArray && !tm.isDocument(f.Element) {
			elem, err := tm.MapType(f.Element)
			if err != nil {
				return "", fmt.Errorf("array element: %w", err)
			}
			return elem + "[]", nil
		}
		return tm.documentType(), nil

	case schema.KindObject:
		return tm.documentType(), nil

	case schema.KindReference:
		return tm.mapStorageType(schema.TypeString)

	case schema.KindEnum, schema.KindScalar:
		return tm.mapStorageType(f.Type)

	default:
		return "", fmt.Errorf("unsupported fragment kind: %s", f.Kind)
	}
}

func (tm *TypeMapper) isDocument(f *schema.Fragment) bool {
	switch f.Kind {
	case schema.KindObject:
		return true
	case schema.KindScalar, schema.KindEnum:
		return f.Type == schema.TypeMixed || f.Type == schema.TypeMap || f.Type == schema.TypeSubdocument
	default:
		return false
	}
}

func (tm *TypeMapper) documentType() string {
	if tm.dialect == DialectPostgres {
		return "JSONB"
	}
	return "TEXT"
}

// mapStorageType maps a storage type to a column type
func (tm *TypeMapper) mapStorageType(t schema.StorageType) (string, error) {
	if tm.dialect == DialectSQLite {
		switch t {
		case schema.TypeNumber:
			return "REAL", nil
		case schema.TypeBoolean, schema.TypeBigInt:
			return "INTEGER", nil
		case schema.TypeBuffer:
			return "BLOB", nil
		default:
			return "TEXT", nil
		}
	}

	switch t {
	case schema.TypeString, schema.TypeObjectID:
		return "TEXT", nil
	case schema.TypeNumber:
		return "DOUBLE PRECISION", nil
	case schema.TypeBoolean:
		return "BOOLEAN", nil
	case schema.TypeDate:
		return "TIMESTAMP WITH TIME ZONE", nil
	case schema.TypeBuffer:
		return "BYTEA", nil
	case schema.TypeBigInt:
		return "BIGINT", nil
	case schema.TypeDecimal128:
		return "NUMERIC", nil
	case schema.TypeUUID:
		return "UUID", nil
	case schema.TypeMixed, schema.TypeMap, schema.TypeSubdocument, schema.TypeArray:
		return "JSONB", nil
	default:
		return "", fmt.Errorf("unsupported storage type: %s", t)
	}
}

// MapNullability returns the NULL/NOT NULL constraint for an attribute
func (tm *TypeMapper) MapNullability(attr *schema.AttributeSchema) string {
	if attr.Required {
		return "NOT NULL"
	}
	return "NULL"
}

// EnumCheck returns the CHECK constraint restricting column to the enum
// values of f, or "" when f is not a restricted enumeration
func (tm *TypeMapper) EnumCheck(column string, f *schema.Fragment) string {
	if f == nil || f.Kind != schema.KindEnum || len(f.Enum) == 0 || f.Type == schema.TypeMixed {
		return ""
	}

	values := make([]string, 0, len(f.Enum))
	for _, v := range f.Enum {
		literal, ok := FormatLiteral(v)
		if !ok {
			return ""
		}
		values = append(values, literal)
	}
	return fmt.Sprintf("CHECK (%s IN (%s))", naming.QuoteIdentifier(column), strings.Join(values, ", "))
}

// FormatLiteral formats a string or numeric value as a SQL literal
func FormatLiteral(v interface{}) (string, bool) {
	switch n := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(n, "'", "''") + "'", true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	default:
		return "", false
	}
}

// GoType maps a fragment to the Go type of its typed accessor
func GoType(f *schema.Fragment) string {
	if f == nil {
		return "interface{}"
	}

	switch f.Kind {
	case schema.KindArray:
		return "[]" + GoType(f.Element)
	case schema.KindObject:
		return "map[string]interface{}"
	case schema.KindReference:
		return "interface{}"
	}

	switch f.Type {
	case schema.TypeString, schema.TypeObjectID, schema.TypeUUID, schema.TypeDecimal128:
		return "string"
	case schema.TypeNumber:
		return "float64"
	case schema.TypeBoolean:
		return "bool"
	case schema.TypeDate:
		return "time.Time"
	case schema.TypeBuffer:
		return "[]byte"
	case schema.TypeBigInt:
		return "int64"
	case schema.TypeMap, schema.TypeSubdocument:
		return "map[string]interface{}"
	default:
		return "interface{}"
	}
}
