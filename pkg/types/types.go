// Package types describes the type graph walked by the schema engine.
//
// A Type is an immutable descriptor: a qualified name, a Kind and the kind-specific
// parts (generic arguments, array component, type-variable bounds, wildcard bounds).
// Descriptors are produced by a type index (see pkg/goindex) or built directly with
// the constructors in this package.
package types

import (
	"strconv"
	"strings"
)

// Kind classifies a type descriptor
type Kind int

const (
	// KindClass is a declared, non-generic named type
	KindClass Kind = iota
	// KindPrimitive is a language primitive such as string or int32
	KindPrimitive
	// KindArray is a fixed array with one or more dimensions
	KindArray
	// KindParameterized is a generic type with bound arguments, e.g. Page[User]
	KindParameterized
	// KindTypeVariable is a declared type parameter, e.g. T in Page[T any]
	KindTypeVariable
	// KindUnresolvedTypeVariable is a type parameter whose declaration is unknown
	KindUnresolvedTypeVariable
	// KindWildcard is an argument bounded from above or below
	KindWildcard
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindParameterized:
		return "parameterized"
	case KindTypeVariable:
		return "type-variable"
	case KindUnresolvedTypeVariable:
		return "unresolved-type-variable"
	case KindWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Type is an immutable type descriptor. Use the constructors to build one.
type Type struct {
	kind       Kind
	name       string
	args       []*Type
	owner      *Type
	component  *Type
	dimensions int
	identifier string
	bounds     []*Type
	extends    *Type
	super      *Type
}

// Class returns a descriptor for a declared named type.
func Class(name string) *Type {
	return &Type{kind: KindClass, name: name}
}

// Primitive returns a descriptor for a primitive type.
func Primitive(name string) *Type {
	return &Type{kind: KindPrimitive, name: name}
}

// ArrayOf returns an array descriptor. Array components are flattened so that
// the component is never itself an array.
func ArrayOf(component *Type, dimensions int) *Type {
	if dimensions < 1 {
		dimensions = 1
	}
	for component != nil && component.kind == KindArray {
		dimensions += component.dimensions
		component = component.component
	}
	name := strings.Repeat("[]", dimensions)
	if component != nil {
		name += component.name
	}
	return &Type{kind: KindArray, name: name, component: component, dimensions: dimensions}
}

// Parameterized returns a descriptor for a generic type with bound arguments.
func Parameterized(name string, args ...*Type) *Type {
	return &Type{kind: KindParameterized, name: name, args: append([]*Type(nil), args...)}
}

// NestedParameterized returns a parameterized descriptor declared inside owner.
func NestedParameterized(owner *Type, name string, args ...*Type) *Type {
	t := Parameterized(name, args...)
	t.owner = owner
	return t
}

// TypeVariable returns a descriptor for a declared type parameter.
func TypeVariable(identifier string, bounds ...*Type) *Type {
	name := AnyName
	if len(bounds) > 0 && bounds[0] != nil {
		name = bounds[0].name
	}
	return &Type{kind: KindTypeVariable, name: name, identifier: identifier, bounds: append([]*Type(nil), bounds...)}
}

// UnresolvedTypeVariable returns a descriptor for a type parameter without a known declaration.
func UnresolvedTypeVariable(identifier string) *Type {
	return &Type{kind: KindUnresolvedTypeVariable, name: AnyName, identifier: identifier}
}

// Wildcard returns an unbounded wildcard.
func Wildcard() *Type {
	return &Type{kind: KindWildcard, name: ObjectName}
}

// WildcardExtends returns a wildcard bounded from above.
func WildcardExtends(bound *Type) *Type {
	return &Type{kind: KindWildcard, name: bound.name, extends: bound}
}

// WildcardSuper returns a wildcard bounded from below.
func WildcardSuper(bound *Type) *Type {
	return &Type{kind: KindWildcard, name: ObjectName, super: bound}
}

// Kind returns the descriptor kind.
func (t *Type) Kind() Kind { return t.kind }

// Name returns the qualified name, e.g. "github.com/acme/shop.Order".
func (t *Type) Name() string { return t.name }

// Args returns the generic arguments of a parameterized type.
func (t *Type) Args() []*Type { return t.args }

// Owner returns the enclosing type of a nested parameterized type.
func (t *Type) Owner() *Type { return t.owner }

// Component returns the element type of an array.
func (t *Type) Component() *Type { return t.component }

// Dimensions returns the number of array dimensions.
func (t *Type) Dimensions() int { return t.dimensions }

// Identifier returns the type-variable identifier, e.g. "T".
func (t *Type) Identifier() string { return t.identifier }

// Bounds returns the type-variable bounds.
func (t *Type) Bounds() []*Type { return t.bounds }

// ExtendsBound returns the upper bound of a wildcard, or nil.
func (t *Type) ExtendsBound() *Type { return t.extends }

// SuperBound returns the lower bound of a wildcard, or nil.
func (t *Type) SuperBound() *Type { return t.super }

// Erasure returns the class descriptor for a parameterized type and the type itself otherwise.
func (t *Type) Erasure() *Type {
	if t.kind == KindParameterized {
		return Class(t.name)
	}
	return t
}

// PackagePath returns the import path part of the qualified name.
func (t *Type) PackagePath() string {
	pkg, _ := splitName(t.name)
	return pkg
}

// LocalName returns the unqualified name, e.g. "Order" for "github.com/acme/shop.Order".
func (t *Type) LocalName() string {
	_, local := splitName(t.name)
	return local
}

// String renders the descriptor in a Go-like notation.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.kind {
	case KindArray:
		var b strings.Builder
		for i := 0; i < t.dimensions; i++ {
			b.WriteString("[]")
		}
		b.WriteString(t.component.String())
		return b.String()
	case KindParameterized:
		parts := make([]string, 0, len(t.args))
		for _, a := range t.args {
			parts = append(parts, a.String())
		}
		name := t.name
		if t.owner != nil {
			name = t.owner.String() + "." + t.LocalName()
		}
		return name + "[" + strings.Join(parts, ", ") + "]"
	case KindTypeVariable, KindUnresolvedTypeVariable:
		return t.identifier
	case KindWildcard:
		switch {
		case t.extends != nil:
			return "? extends " + t.extends.String()
		case t.super != nil:
			return "? super " + t.super.String()
		default:
			return "?"
		}
	default:
		return t.name
	}
}

// GoString implements fmt.GoStringer for debug dumps.
func (t *Type) GoString() string {
	return "types.Type(" + t.kind.String() + " " + strconv.Quote(t.String()) + ")"
}

func splitName(name string) (string, string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= slash {
		return "", name
	}
	return name[:dot], name[dot+1:]
}
