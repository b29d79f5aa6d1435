package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedType is wrapped by a CompilationError raised for unresolved metadata
	ErrUnresolvedType = errors.New("unresolved type")

	// ErrMissingType is wrapped when an attribute is declared without type metadata
	ErrMissingType = errors.New("missing type metadata")
)

// CompilationError reports an attribute whose type metadata cannot be
// compiled. It stops schema generation for the model.
type CompilationError struct {
	Model      string
	Attribute  string
	Identifier string
	Err        error
}

// Error implements the error interface
func (e *CompilationError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s detected in %s[%s]: %s", e.Err, e.Model, e.Attribute, e.Identifier)
	}
	return fmt.Sprintf("%s detected in %s[%s]", e.Err, e.Model, e.Attribute)
}

// Unwrap returns the underlying cause
func (e *CompilationError) Unwrap() error {
	return e.Err
}

// IsCompilationError checks if an error is a CompilationError
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}
