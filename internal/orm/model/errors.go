package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var (
	// ErrNotModelClass is returned when instantiating a class that was not
	// produced by a Factory
	ErrNotModelClass = errors.New("class is not a model class")

	// ErrSchemaNotFound is returned when a wrapped class has no model schema
	ErrSchemaNotFound = errors.New("model schema not found")

	// ErrNilClass is returned when a nil class is passed to a Factory
	ErrNilClass = errors.New("class cannot be nil")
)

// InvalidRawError is returned when a class constructor produces a value the
// interception layer cannot access
type InvalidRawError struct {
	Type reflect.Type
}

func (e *InvalidRawError) Error() string {
	return fmt.Sprintf("raw model must be a struct pointer or implement FieldAccessor, got %v", e.Type)
}

// AssignmentErrors collects the properties whose assignment was rejected
type AssignmentErrors struct {
	Fields map[string][]string `json:"fields"`
}

// NewAssignmentErrors creates an empty AssignmentErrors
func NewAssignmentErrors() *AssignmentErrors {
	return &AssignmentErrors{
		Fields: make(map[string][]string),
	}
}

// Add adds a rejection message for a property
func (ae *AssignmentErrors) Add(field, message string) {
	if ae.Fields == nil {
		ae.Fields = make(map[string][]string)
	}
	ae.Fields[field] = append(ae.Fields[field], message)
}

// HasErrors returns true if any assignment was rejected
func (ae *AssignmentErrors) HasErrors() bool {
	return len(ae.Fields) > 0
}

// Count returns the total number of rejections across all properties
func (ae *AssignmentErrors) Count() int {
	count := 0
	for _, messages := range ae.Fields {
		count += len(messages)
	}
	return count
}

// Rejected returns the rejected property names in sorted order
func (ae *AssignmentErrors) Rejected() []string {
	names := make([]string, 0, len(ae.Fields))
	for name := range ae.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error implements the error interface
func (ae *AssignmentErrors) Error() string {
	if !ae.HasErrors() {
		return "assignment rejected"
	}

	var messages []string
	for _, field := range ae.Rejected() {
		for _, msg := range ae.Fields[field] {
			messages = append(messages, fmt.Sprintf("  - %s: %s", field, msg))
		}
	}

	if len(messages) == 1 {
		return fmt.Sprintf("assignment rejected: %s", strings.TrimPrefix(messages[0], "  - "))
	}

	return fmt.Sprintf("assignment rejected:\n%s", strings.Join(messages, "\n"))
}

// MarshalJSON implements json.Marshaler
func (ae *AssignmentErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}{
		Error:  "assignment_rejected",
		Fields: ae.Fields,
	})
}

// IsAssignmentErrors reports whether err carries rejected assignments
func IsAssignmentErrors(err error) bool {
	var ae *AssignmentErrors
	return errors.As(err, &ae)
}
