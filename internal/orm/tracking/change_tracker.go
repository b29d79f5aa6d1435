// Package tracking records attribute modifications of model instances.
// A Log is the ordered history of one attribute since the instance was
// created or loaded; persistence adapters use it to decide what to write.
package tracking

import (
	"reflect"
	"time"
)

// Change represents one accepted modification of an attribute value
type Change struct {
	Attribute string      `json:"attribute"`
	Old       interface{} `json:"old"`
	New       interface{} `json:"new"`
	At        time.Time   `json:"at"`
}

// Log is the ordered change history of a single attribute. The zero value is
// ready to use.
type Log struct {
	entries []Change
}

// Record appends a change. Slice and map values are copied so later in-place
// mutation of the caller's value does not rewrite history.
func (l *Log) Record(attribute string, oldValue, newValue interface{}) Change {
	change := Change{
		Attribute: attribute,
		Old:       deepCopyValue(oldValue),
		New:       deepCopyValue(newValue),
		At:        time.Now(),
	}
	l.entries = append(l.entries, change)
	return change
}

// Entries returns a copy of all recorded changes in order
func (l *Log) Entries() []Change {
	result := make([]Change, len(l.entries))
	copy(result, l.entries)
	return result
}

// Len returns the number of recorded changes
func (l *Log) Len() int {
	return len(l.entries)
}

// Last returns the most recent change
func (l *Log) Last() (Change, bool) {
	if len(l.entries) == 0 {
		return Change{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// First returns the oldest recorded change
func (l *Log) First() (Change, bool) {
	if len(l.entries) == 0 {
		return Change{}, false
	}
	return l.entries[0], true
}

// Reset clears the history. Called after a commit or when initialization
// artifacts of a loaded record are discarded.
func (l *Log) Reset() {
	l.entries = nil
}

// Net reports whether the value differs from the value before the first
// recorded change
func (l *Log) Net() bool {
	first, ok := l.First()
	if !ok {
		return false
	}
	last, _ := l.Last()
	return !DeepEqual(first.Old, last.New)
}

// deepCopyValue creates a deep copy of slices and maps
func deepCopyValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Slice:
		if val.IsNil() {
			return v
		}
		cp := reflect.MakeSlice(val.Type(), val.Len(), val.Len())
		for i := 0; i < val.Len(); i++ {
			elem := deepCopyValue(val.Index(i).Interface())
			if elem == nil {
				continue
			}
			cp.Index(i).Set(reflect.ValueOf(elem))
		}
		return cp.Interface()
	case reflect.Map:
		if val.IsNil() {
			return v
		}
		cp := reflect.MakeMapWithSize(val.Type(), val.Len())
		for _, key := range val.MapKeys() {
			elem := deepCopyValue(val.MapIndex(key).Interface())
			if elem == nil {
				cp.SetMapIndex(key, reflect.Zero(val.Type().Elem()))
				continue
			}
			cp.SetMapIndex(key, reflect.ValueOf(elem))
		}
		return cp.Interface()
	default:
		// Primitives, structs and pointers are kept as-is
		return v
	}
}

// DeepEqual compares two values for equality, handling nil
func DeepEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}
