package sqlstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/conduit-lang/modelkit/internal/orm/codegen"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// nativeArray reports whether f is stored as a PostgreSQL array column
func nativeArray(dialect codegen.Dialect, f *schema.Fragment) bool {
	if dialect != codegen.DialectPostgres || f == nil || f.Kind != schema.KindArray || f.Element == nil {
		return false
	}
	switch f.Element.Kind {
	case schema.KindScalar, schema.KindEnum, schema.KindReference:
		switch f.Element.Type {
		case schema.TypeMixed, schema.TypeMap, schema.TypeSubdocument:
			return false
		}
		return true
	}
	return false
}

// isDocument reports whether f is stored as a JSON document
func isDocument(dialect codegen.Dialect, f *schema.Fragment) bool {
	if f == nil {
		return false
	}
	switch f.Kind {
	case schema.KindObject:
		return true
	case schema.KindArray:
		return !nativeArray(dialect, f)
	case schema.KindScalar:
		return f.Type == schema.TypeMixed || f.Type == schema.TypeMap || f.Type == schema.TypeSubdocument || f.Type == schema.TypeArray
	}
	return false
}

// encodeValue converts an attribute value to a driver argument for the
// column storing f
func encodeValue(dialect codegen.Dialect, f *schema.Fragment, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	if nativeArray(dialect, f) {
		return pq.Array(value), nil
	}

	if isDocument(dialect, f) {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding document: %w", err)
		}
		return string(data), nil
	}

	if t, ok := value.(time.Time); ok && dialect == codegen.DialectSQLite {
		return t.UTC().Format(time.RFC3339Nano), nil
	}

	if _, ok := value.(driver.Valuer); ok {
		return value, nil
	}

	if driver.IsValue(value) {
		return value, nil
	}

	// Named types such as type Status string are passed by their kind
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("unsupported value %T", value)
}

// scanTarget returns the destination a column storing f is scanned into
func scanTarget(dialect codegen.Dialect, f *schema.Fragment) interface{} {
	if nativeArray(dialect, f) {
		switch f.Element.Type {
		case schema.TypeNumber:
			return &pq.Float64Array{}
		case schema.TypeBoolean:
			return &pq.BoolArray{}
		case schema.TypeBigInt:
			return &pq.Int64Array{}
		default:
			return &pq.StringArray{}
		}
	}
	var v interface{}
	return &v
}

// decodeValue converts a scanned column back to an attribute value
func decodeValue(dialect codegen.Dialect, f *schema.Fragment, target interface{}) (interface{}, error) {
	switch t := target.(type) {
	case *pq.StringArray:
		return []string(*t), nil
	case *pq.Float64Array:
		return []float64(*t), nil
	case *pq.BoolArray:
		return []bool(*t), nil
	case *pq.Int64Array:
		return []int64(*t), nil
	}

	value := *(target.(*interface{}))
	if value == nil || f == nil {
		return value, nil
	}

	if isDocument(dialect, f) {
		var data []byte
		switch v := value.(type) {
		case []byte:
			data = v
		case string:
			data = []byte(v)
		default:
			return value, nil
		}
		decoded := documentTarget(f)
		if err := json.Unmarshal(data, decoded); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		return reflect.ValueOf(decoded).Elem().Interface(), nil
	}

	if b, ok := value.([]byte); ok && f.Type != schema.TypeBuffer {
		value = string(b)
	}

	switch f.Type {
	case schema.TypeBoolean:
		switch v := value.(type) {
		case int64:
			return v != 0, nil
		case string:
			return strconv.ParseBool(v)
		}
	case schema.TypeNumber:
		switch v := value.(type) {
		case int64:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(v, 64)
		}
	case schema.TypeDate:
		if s, ok := value.(string); ok {
			parsed, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("decoding date: %w", err)
			}
			return parsed, nil
		}
	}
	return value, nil
}

// documentTarget returns a pointer to the Go value a JSON document of f
// decodes into. Arrays of scalars decode into typed slices.
func documentTarget(f *schema.Fragment) interface{} {
	if f.Kind == schema.KindArray && f.Element != nil && f.Element.Kind != schema.KindArray && f.Element.Kind != schema.KindObject {
		switch f.Element.Type {
		case schema.TypeString, schema.TypeObjectID, schema.TypeUUID:
			return &[]string{}
		case schema.TypeNumber:
			return &[]float64{}
		case schema.TypeBoolean:
			return &[]bool{}
		}
	}
	if f.Kind == schema.KindObject {
		return &map[string]interface{}{}
	}
	var v interface{}
	return &v
}
