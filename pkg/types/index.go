package types

import (
	"reflect"
	"sort"
	"strings"
)

// Index is the universe of declared types the engine may expand and name.
type Index interface {
	// ContainsClass reports whether the erasure of t is declared in the index
	ContainsClass(t *Type) bool
	// Class returns the declaration of the erasure of t, or nil
	Class(t *Type) *ClassInfo
}

// ClassInfo is the declaration of a named type.
type ClassInfo struct {
	// Type is the declared type: a class, or a parameterized type whose
	// arguments are the declared type variables
	Type *Type
	// Supertypes lists the underlying container of named slice and map types
	Supertypes []*Type
	// Fields in declaration order
	Fields []FieldInfo
	// EnumValues holds the constant values of an enum-like named type
	EnumValues []any
	// EnumBase is the primitive the enum is declared over
	EnumBase *Type
	Doc      string
	// SchemaName is an explicit display name declared with //schema:name
	SchemaName string
	// Ignored marks a type declared with //schema:ignore
	Ignored bool
	// IgnoredProperties lists property names declared with //schema:ignoreProperties
	IgnoredProperties []string
}

// Name returns the qualified name of the declared type.
func (c *ClassInfo) Name() string { return c.Type.Name() }

// IsEnum reports whether the class declares enum constants.
func (c *ClassInfo) IsEnum() bool { return len(c.EnumValues) > 0 }

// TypeParameters returns the declared type variables of a generic class.
func (c *ClassInfo) TypeParameters() []*Type {
	if c.Type.Kind() != KindParameterized {
		return nil
	}
	return c.Type.Args()
}

// FieldInfo is a declared struct field.
type FieldInfo struct {
	Name     string
	Type     *Type
	Tag      reflect.StructTag
	Embedded bool
	Exported bool
	Doc      string
	// Declaring is the class that declares the field
	Declaring *ClassInfo
}

// JSONName returns the property name the field is encoded under.
func (f *FieldInfo) JSONName() string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// TagOption reports whether the json tag carries the given option, e.g. "omitempty".
func (f *FieldInfo) TagOption(opt string) bool {
	_, rest, found := strings.Cut(f.Tag.Get("json"), ",")
	for found {
		var o string
		o, rest, found = strings.Cut(rest, ",")
		if o == opt {
			return true
		}
	}
	return false
}

// MapIndex is an in-memory Index keyed by qualified class name.
type MapIndex map[string]*ClassInfo

// NewMapIndex builds an index from class declarations.
func NewMapIndex(classes ...*ClassInfo) MapIndex {
	idx := make(MapIndex, len(classes))
	for _, c := range classes {
		idx.Add(c)
	}
	return idx
}

// Add declares a class. Field declaring links are filled in when missing.
func (m MapIndex) Add(c *ClassInfo) {
	for i := range c.Fields {
		if c.Fields[i].Declaring == nil {
			c.Fields[i].Declaring = c
		}
	}
	m[c.Name()] = c
}

// ContainsClass implements Index.
func (m MapIndex) ContainsClass(t *Type) bool {
	return m.Class(t) != nil
}

// Class implements Index.
func (m MapIndex) Class(t *Type) *ClassInfo {
	if t == nil {
		return nil
	}
	return m[t.Name()]
}

// Names returns the declared class names in sorted order.
func (m MapIndex) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
