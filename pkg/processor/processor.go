// Package processor classifies type occurrences into schema shapes.
//
// Classify looks at one occurrence of a type (a field, a collection item, a map
// value) and decides what to do with the schema node that describes it: write
// scalar attributes inline, turn it into an array or object, or push the type
// on the work stack so its members are expanded later.
package processor

import (
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/deque"
	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/registry"
	"github.com/blimu-dev/schema-gen/pkg/types"
	"github.com/blimu-dev/schema-gen/pkg/typeutil"
)

// Shape is the classification of a type.
type Shape int

const (
	// Unknown types are not declared in the index and are left unexpanded
	Unknown Shape = iota
	// Terminal types map directly onto a scalar schema
	Terminal
	// Wildcard types are replaced by their bound
	Wildcard
	// TypeVariable types are replaced by their binding
	TypeVariable
	// Array is a fixed array with one or more dimensions
	Array
	// Wrapped is a single-value container such as a pointer
	Wrapped
	// Enum is a named type with declared constants
	Enum
	// Parameterized is a generic type with bound arguments
	Parameterized
	// RawCollection is a non-generic named collection, e.g. type Users []User
	RawCollection
	// RawMap is a non-generic named map, e.g. type Labels map[string]string
	RawMap
	// Indexed is a plain declared type whose members are expanded
	Indexed
)

var shapeNames = [...]string{
	Unknown:       "unknown",
	Terminal:      "terminal",
	Wildcard:      "wildcard",
	TypeVariable:  "type-variable",
	Array:         "array",
	Wrapped:       "wrapped",
	Enum:          "enum",
	Parameterized: "parameterized",
	RawCollection: "raw-collection",
	RawMap:        "raw-map",
	Indexed:       "indexed",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "unknown"
	}
	return shapeNames[s]
}

// DefaultWrappers are the single-value containers recognized besides pointers.
var DefaultWrappers = []string{"database/sql.Null"}

// ShapeOf classifies t. Shapes are tested in priority order, so a named slice
// that also declares enum constants is an Enum.
func ShapeOf(index types.Index, t *types.Type, wrappers ...string) Shape {
	switch t.Kind() {
	case types.KindWildcard:
		return Wildcard
	case types.KindTypeVariable, types.KindUnresolvedTypeVariable:
		return TypeVariable
	case types.KindArray:
		return Array
	}
	if typeutil.IsTerminal(t) {
		return Terminal
	}
	if _, ok := typeutil.Lookup(t); ok {
		return Terminal
	}
	if typeutil.IsWrapped(t, wrappers...) {
		return Wrapped
	}
	if typeutil.IsEnum(index, t) {
		return Enum
	}
	if t.Kind() == types.KindParameterized {
		return Parameterized
	}
	if typeutil.IsCollection(index, t) {
		return RawCollection
	}
	if typeutil.IsMap(index, t) {
		return RawMap
	}
	if index != nil && index.ContainsClass(t) {
		return Indexed
	}
	return Unknown
}

// Occurrence is one place a type appears in.
type Occurrence struct {
	// Parent is the entry being expanded, nil at the root
	Parent *deque.PathEntry
	// Site is the field the type is declared on, nil outside fields
	Site *types.FieldInfo
	Type *types.Type
	// Schema is the node describing the occurrence
	Schema *openapi3.Schema
	// Resolver binds the type variables visible at the occurrence
	Resolver types.Resolver
}

// Result reports what Classify did.
type Result struct {
	// Type is the effective type whose attributes describe the occurrence
	Type *types.Type
	// Shape of the last type classified
	Shape Shape
	// Ref is set when the occurrence stands for a type pushed for expansion
	// and should be written as a reference to it
	Ref *types.Type
}

// Processor classifies occurrences for one generation run.
type Processor struct {
	index    types.Index
	registry *registry.Registry
	stack    *deque.Deque
	logger   *zap.Logger
	diags    *diagnostic.Diagnostics
	wrappers []string
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDiagnostics sets the collector unknown types are recorded in.
func WithDiagnostics(diags *diagnostic.Diagnostics) Option {
	return func(p *Processor) { p.diags = diags }
}

// WithWrappers adds generic single-value container names, e.g. "example.com/opt.Option".
func WithWrappers(names ...string) Option {
	return func(p *Processor) { p.wrappers = append(p.wrappers, names...) }
}

// New creates a processor. reg may be nil, in which case nothing is named and
// pushed types are expanded inline.
func New(index types.Index, reg *registry.Registry, stack *deque.Deque, opts ...Option) *Processor {
	p := &Processor{
		index:    index,
		registry: reg,
		stack:    stack,
		logger:   zap.NewNop(),
		wrappers: append([]string(nil), DefaultWrappers...),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShapeOf classifies t with the processor's index and wrappers.
func (p *Processor) ShapeOf(t *types.Type) Shape {
	return ShapeOf(p.index, t, p.wrappers...)
}

// Classify processes one occurrence and returns its effective type. The
// schema of the occurrence may be amended in place: array and object shapes,
// items, additional properties and enum values are written here, scalar type
// attributes are left to the caller (see Resolve).
func (p *Processor) Classify(occ Occurrence) Result {
	if occ.Resolver == nil {
		occ.Resolver = types.Identity
	}
	t := occ.Type
	for {
		shape := p.ShapeOf(t)
		switch shape {
		case Terminal:
			p.registry.CheckRegistration(t, occ.Resolver, openapi3.NewSchemaRef("", occ.Schema))
			return Result{Type: t, Shape: shape}

		case Wildcard:
			t = typeutil.BoundOf(t)

		case TypeVariable:
			resolved := occ.Resolver.Resolve(t)
			p.logger.Debug("resolved type variable",
				zap.String("variable", t.String()),
				zap.String("type", resolved.String()))
			switch p.ShapeOf(resolved) {
			case Terminal, Unknown, TypeVariable:
				typeutil.ApplyTypeAttributes(resolved, occ.Schema)
				return Result{Type: resolved, Shape: shape}
			}
			t = resolved

		case Array:
			p.readArray(occ, t)
			return Result{Type: t, Shape: shape}

		case Wrapped:
			t = typeutil.Unwrap(t)

		case Enum:
			class := p.index.Class(t)
			mergeSchema(occ.Schema, typeutil.EnumSchema(class))
			p.push(occ, t)
			return Result{Type: typeutil.EnumBase(class), Shape: shape, Ref: t}

		case Parameterized:
			return p.readParameterized(occ, occ.Resolver.Resolve(t))

		case RawCollection:
			p.logger.Debug("processing named collection as array", zap.String("type", t.String()))
			p.readCollection(occ, t)
			return Result{Type: types.ArrayType, Shape: shape}

		case RawMap:
			p.logger.Debug("processing named map as object", zap.String("type", t.String()))
			p.readMap(occ, t)
			return Result{Type: types.ObjectType, Shape: shape}

		case Indexed:
			p.push(occ, t)
			return Result{Type: t, Shape: shape, Ref: t}

		default:
			p.logger.Debug("type not in index", zap.String("type", t.String()))
			field := ""
			if occ.Parent != nil {
				field = occ.Parent.Path()
				if occ.Site != nil {
					field += "." + occ.Site.JSONName()
				}
			}
			p.diags.AddWarning(diagnostic.CodeTypeNotInIndex,
				"type is not declared in the loaded packages and is left unexpanded", t.String(), field)
			return Result{Type: t, Shape: Unknown}
		}
	}
}

// Resolve classifies occ and returns the node to attach for it: a reference
// when the occurrence stands for a named type, otherwise the inline schema
// with the scalar attributes of the effective type applied.
func (p *Processor) Resolve(occ Occurrence) (*openapi3.SchemaRef, Result) {
	res := p.Classify(occ)
	if res.Ref != nil {
		ref := p.registry.RegisterReferenceFor(res.Ref, types.Identity, openapi3.NewSchemaRef("", occ.Schema))
		if ref.Ref != "" {
			return ref, res
		}
	}
	if occ.Schema.Type == nil {
		typeutil.ApplyTypeAttributes(res.Type, occ.Schema)
	}
	return openapi3.NewSchemaRef("", occ.Schema), res
}

// nested resolves a type nested in occ, such as an item or a map value, into a
// fresh schema node. A reference whose node was not pushed keeps the note left
// on that node, such as a cycle marker, through an allOf wrapper.
func (p *Processor) nested(occ Occurrence, t *types.Type) *openapi3.SchemaRef {
	schema := &openapi3.Schema{}
	ref, _ := p.Resolve(Occurrence{
		Parent:   occ.Parent,
		Site:     occ.Site,
		Type:     t,
		Schema:   schema,
		Resolver: occ.Resolver,
	})
	if ref.Ref == "" || schema.Description == "" || p.pushed(schema) {
		return ref
	}
	return openapi3.NewSchemaRef("", &openapi3.Schema{
		Description: schema.Description,
		AllOf:       openapi3.SchemaRefs{ref},
	})
}

func (p *Processor) pushed(schema *openapi3.Schema) bool {
	if p.stack == nil {
		return false
	}
	top := p.stack.Peek()
	return top != nil && top.Schema == schema
}

func (p *Processor) readArray(occ Occurrence, t *types.Type) {
	p.logger.Debug("processing array", zap.String("type", t.String()))
	occ.Schema.Type = &openapi3.Types{openapi3.TypeArray}

	items := p.nested(occ, t.Component())
	for d := t.Dimensions(); d > 1; d-- {
		items = openapi3.NewSchemaRef("", &openapi3.Schema{
			Type:  &openapi3.Types{openapi3.TypeArray},
			Items: items,
		})
	}
	occ.Schema.Items = items
}

func (p *Processor) readParameterized(occ Occurrence, t *types.Type) Result {
	p.logger.Debug("processing parameterized type", zap.String("type", t.String()))
	switch {
	case typeutil.IsCollection(p.index, t):
		p.readCollection(occ, t)
		return Result{Type: types.ArrayType, Shape: Parameterized}

	case typeutil.IsMap(p.index, t):
		p.readMap(occ, t)
		res := Result{Type: types.ObjectType, Shape: Parameterized}
		if typeutil.AllowRegistration(p.index, t) {
			p.push(occ, t)
			res.Ref = t
		}
		return res

	case p.index != nil && p.index.ContainsClass(t):
		p.push(occ, t)
		return Result{Type: t, Shape: Parameterized, Ref: t}

	default:
		p.logger.Debug("parameterized type not in index", zap.String("type", t.String()))
		p.diags.AddWarning(diagnostic.CodeTypeNotInIndex,
			"generic type is not declared in the loaded packages and is left unexpanded", t.String(), "")
		return Result{Type: t, Shape: Parameterized}
	}
}

// readCollection writes the array shape of t. Items come from the iterable
// ancestor, which also covers named collections narrowing a type parameter.
func (p *Processor) readCollection(occ Occurrence, t *types.Type) {
	occ.Schema.Type = &openapi3.Types{openapi3.TypeArray}
	if typeutil.IsSet(p.index, t) {
		occ.Schema.UniqueItems = true
	}
	ancestor := typeutil.Ancestor(p.index, t, types.IterableName)
	if ancestor == nil || len(ancestor.Args()) == 0 {
		return
	}
	occ.Schema.Items = p.nested(occ, occ.Resolver.Resolve(ancestor.Args()[0]))
}

func (p *Processor) readMap(occ Occurrence, t *types.Type) {
	occ.Schema.Type = &openapi3.Types{openapi3.TypeObject}
	ancestor := typeutil.Ancestor(p.index, t, types.MapName)
	if ancestor == nil || len(ancestor.Args()) != 2 {
		return
	}
	value := p.nested(occ, occ.Resolver.Resolve(ancestor.Args()[1]))
	occ.Schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: value}
}

func (p *Processor) push(occ Occurrence, t *types.Type) {
	if p.stack == nil {
		return
	}
	p.stack.PushChild(occ.Site, occ.Parent, t, occ.Schema)
}

// mergeSchema copies the attributes of src that dst does not set yet.
func mergeSchema(dst, src *openapi3.Schema) {
	if dst.Type == nil {
		dst.Type = src.Type
	}
	if dst.Format == "" {
		dst.Format = src.Format
	}
	if dst.Pattern == "" {
		dst.Pattern = src.Pattern
	}
	if len(dst.Enum) == 0 {
		dst.Enum = src.Enum
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Example == nil {
		dst.Example = src.Example
	}
}
