package typeutil

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/schema-gen/pkg/types"
)

// builtinIsA reports whether the builtin container name is a subtype of target.
func builtinIsA(name, target string) bool {
	if name == target {
		return true
	}
	return target == types.IterableName && (name == types.SliceName || name == types.SetName)
}

// IsA reports whether t is, or declares as a supertype, the builtin container target.
func IsA(index types.Index, t *types.Type, target string) bool {
	return Ancestor(index, t, target) != nil
}

// IsCollection reports whether t is encoded as a JSON array.
func IsCollection(index types.Index, t *types.Type) bool {
	return IsA(index, t, types.IterableName)
}

// IsMap reports whether t is encoded as a free-form JSON object.
func IsMap(index types.Index, t *types.Type) bool {
	return IsA(index, t, types.MapName)
}

// IsSet reports whether t holds unique items.
func IsSet(index types.Index, t *types.Type) bool {
	return IsA(index, t, types.SetName)
}

// Ancestor returns the builtin container type t is or extends, with the type
// parameters of every declaration on the way substituted. It returns nil when t
// has no such ancestor.
func Ancestor(index types.Index, t *types.Type, target string) *types.Type {
	return ancestor(index, t, target, map[string]bool{})
}

func ancestor(index types.Index, t *types.Type, target string, visited map[string]bool) *types.Type {
	if t == nil {
		return nil
	}
	if builtinIsA(t.Name(), target) {
		return t
	}
	if visited[t.Name()] || index == nil {
		return nil
	}
	visited[t.Name()] = true

	class := index.Class(t)
	if class == nil {
		return nil
	}
	bindings := types.NewBindings(class, t, nil)
	for _, super := range class.Supertypes {
		if found := ancestor(index, bindings.Resolve(super), target, visited); found != nil {
			return found
		}
	}
	return nil
}

// IsWrapped reports whether t is a single-value container: a pointer or one of
// the extra wrapper names.
func IsWrapped(t *types.Type, extra ...string) bool {
	if t.Kind() != types.KindParameterized || len(t.Args()) != 1 {
		return false
	}
	if t.Name() == types.PointerName {
		return true
	}
	for _, name := range extra {
		if t.Name() == name {
			return true
		}
	}
	return false
}

// Unwrap returns the value type of a wrapper.
func Unwrap(t *types.Type) *types.Type {
	if args := t.Args(); len(args) > 0 {
		return args[0]
	}
	return types.AnyType
}

// BoundOf returns the effective type of a wildcard: its upper bound, or the
// object type when it is unbounded or bounded from below.
func BoundOf(wildcard *types.Type) *types.Type {
	if b := wildcard.ExtendsBound(); b != nil {
		return b
	}
	return types.ObjectType
}

// AllowRegistration reports whether a container type may be registered under its
// own name, which requires a declaration in the index.
func AllowRegistration(index types.Index, t *types.Type) bool {
	return index != nil && index.ContainsClass(t)
}

// IsEnum reports whether t is an enum declared in the index.
func IsEnum(index types.Index, t *types.Type) bool {
	if index == nil {
		return false
	}
	class := index.Class(t)
	return class != nil && class.IsEnum()
}

// EnumSchema builds the enumeration schema for an enum class.
func EnumSchema(class *types.ClassInfo) *openapi3.Schema {
	base := class.EnumBase
	if base == nil {
		base = types.StringType
	}
	s := SchemaFor(base)
	s.Enum = append([]any(nil), class.EnumValues...)
	if class.Doc != "" {
		s.Description = class.Doc
	}
	return s
}

// EnumBase returns the effective type reported for an enum class.
func EnumBase(class *types.ClassInfo) *types.Type {
	if class.EnumBase == nil {
		return types.StringType
	}
	return class.EnumBase
}
