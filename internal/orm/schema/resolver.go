package schema

import (
	"go.uber.org/zap"
)

// ModelType identifies a declared model type. Super returns the type it
// extends, or nil.
type ModelType interface {
	TypeName() string
	Super() ModelType
}

// Resolver compiles TypeMetadata trees into Fragments
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a new Resolver. A nil logger disables logging.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Compile compiles the type metadata of one attribute of model into a
// Fragment. It only fails for unresolved types.
func (r *Resolver) Compile(model ModelType, attribute string, node TypeMetadata) (*Fragment, error) {
	modelName := ""
	if model != nil {
		modelName = model.TypeName()
	}
	return r.compile(modelName, attribute, node)
}

func (r *Resolver) compile(model, attribute string, node TypeMetadata) (*Fragment, error) {
	if node == nil {
		return nil, &CompilationError{Model: model, Attribute: attribute, Err: ErrMissingType}
	}

	switch t := node.(type) {
	case Unresolved:
		return nil, &CompilationError{Model: model, Attribute: attribute, Identifier: t.Name, Err: ErrUnresolvedType}

	case ModelReference:
		return &Fragment{Kind: KindReference, Type: TypeObjectID, Ref: t.Target}, nil

	case Array:
		elem, err := r.compile(model, attribute, t.Element)
		if err != nil {
			return nil, err
		}
		return &Fragment{Kind: KindArray, Type: TypeArray, Element: elem}, nil

	case Mixed:
		return &Fragment{Kind: KindScalar, Type: TypeMixed}, nil

	case Union:
		if literals, ok := literalMembers(t); ok {
			return r.compileEnum(model, attribute, literals), nil
		}
		// Heterogeneous unions are not supported beyond the name lookup below

	case Interface:
		fragment := &Fragment{
			Kind:   KindObject,
			Type:   TypeSubdocument,
			Fields: make(map[string]*Fragment, len(t.Members)),
			Order:  t.MemberNames(),
		}
		for _, name := range fragment.Order {
			field, err := r.compile(model, attribute, t.Members[name])
			if err != nil {
				return nil, err
			}
			fragment.Fields[name] = field
		}
		return fragment, nil
	}

	if storageType, ok := LookupStorageType(node.Identifier()); ok {
		return &Fragment{Kind: KindScalar, Type: storageType}, nil
	}
	return &Fragment{Kind: KindScalar, Type: TypeMixed}, nil
}

// compileEnum builds the enumeration fragment for a literal-only union
func (r *Resolver) compileEnum(model, attribute string, literals []Literal) *Fragment {
	enumType := TypeMixed
	values := make([]interface{}, 0, len(literals))

	if len(literals) == 0 {
		r.logger.Warn("empty literal union compiled to unrestricted enumeration",
			zap.String("model", model),
			zap.String("attribute", attribute),
		)
	} else {
		allNumbers, allStrings := true, true
		for _, literal := range literals {
			allNumbers = allNumbers && literal.IsNumber()
			allStrings = allStrings && literal.IsString()
			values = append(values, literal.Value)
		}
		switch {
		case allNumbers:
			enumType = TypeNumber
		case allStrings:
			enumType = TypeString
		}
	}

	return &Fragment{Kind: KindEnum, Type: enumType, Enum: values}
}

// literalMembers returns the union members if every one of them is a number
// or string literal
func literalMembers(u Union) ([]Literal, bool) {
	literals := make([]Literal, 0, len(u.Members))
	for _, member := range u.Members {
		literal, ok := member.(Literal)
		if !ok || !(literal.IsNumber() || literal.IsString()) {
			return nil, false
		}
		literals = append(literals, literal)
	}
	return literals, true
}
