// Package scanner drives a schema generation run.
//
// A run owns one registry. Each root type is classified into a schema node,
// and every type pushed on the work stack while doing so is popped and
// expanded: its fields become properties, each field type is classified in
// turn, and named types are written to the registry once their body is
// complete.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/constraints"
	"github.com/blimu-dev/schema-gen/pkg/deque"
	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/metadata"
	"github.com/blimu-dev/schema-gen/pkg/processor"
	"github.com/blimu-dev/schema-gen/pkg/registry"
	"github.com/blimu-dev/schema-gen/pkg/types"
	"github.com/blimu-dev/schema-gen/pkg/visibility"
)

const instrumentationName = "github.com/blimu-dev/schema-gen/pkg/scanner"

// ErrNilType is returned when a root type is missing.
var ErrNilType = errors.New("scanner: nil root type")

// Scanner expands root types into schemas. It is not safe for concurrent use.
type Scanner struct {
	index         types.Index
	metadata      metadata.Provider
	visibility    *visibility.Resolver
	applicator    *constraints.Applicator
	logger        *zap.Logger
	diags         *diagnostic.Diagnostics
	tracer        trace.Tracer
	wrappers      []string
	handlers      []visibility.Handler
	preregistered []registry.Preregistered

	registry  *registry.Registry
	stack     *deque.Deque
	processor *processor.Processor
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger handed to every component of a run.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDiagnostics sets the collector of recoverable anomalies.
func WithDiagnostics(diags *diagnostic.Diagnostics) Option {
	return func(s *Scanner) { s.diags = diags }
}

// WithMetadata sets the source of constraints and display name hints.
func WithMetadata(provider metadata.Provider) Option {
	return func(s *Scanner) { s.metadata = provider }
}

// WithVisibilityHandlers appends handlers to the built-in visibility chain.
func WithVisibilityHandlers(handlers ...visibility.Handler) Option {
	return func(s *Scanner) { s.handlers = append(s.handlers, handlers...) }
}

// WithWrappers adds generic single-value container names.
func WithWrappers(names ...string) Option {
	return func(s *Scanner) { s.wrappers = append(s.wrappers, names...) }
}

// WithPreregistered registers out-of-band schemas in every new registry.
func WithPreregistered(schemas ...registry.Preregistered) Option {
	return func(s *Scanner) { s.preregistered = append(s.preregistered, schemas...) }
}

// WithTracerProvider sets the provider run and root spans are started with.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Scanner) {
		if tp != nil {
			s.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// New creates a scanner over index. Without a registry (see NewRegistry)
// every type is expanded inline.
func New(index types.Index, opts ...Option) *Scanner {
	s := &Scanner{
		index:  index,
		logger: zap.NewNop(),
		tracer: otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metadata == nil {
		if p, err := metadata.NewTagProvider(index, metadata.WithLogger(s.logger), metadata.WithDiagnostics(s.diags)); err == nil {
			s.metadata = p
		}
	}
	s.visibility = visibility.New(index,
		visibility.WithLogger(s.logger),
		visibility.WithHandlers(s.handlers...))
	s.applicator = constraints.New(s.metadata,
		constraints.WithLogger(s.logger),
		constraints.WithDiagnostics(s.diags))
	s.reset()
	return s
}

// NewRegistry starts a run writing named schemas into components and makes
// its registry current. Names already present in components are reserved.
func (s *Scanner) NewRegistry(components openapi3.Schemas) *registry.Registry {
	opts := []registry.Option{
		registry.WithLogger(s.logger),
		registry.WithDiagnostics(s.diags),
		registry.WithPreregistered(s.preregistered...),
	}
	if s.metadata != nil {
		opts = append(opts, registry.WithNameHints(s.metadata))
	}
	s.registry = registry.New(components, s.index, opts...)
	s.reset()
	return s.registry
}

// CurrentRegistry returns the registry of the current run, or nil.
func (s *Scanner) CurrentRegistry() *registry.Registry { return s.registry }

// ClearRegistry ends the current run. Schemas already written to the
// components map are left in place.
func (s *Scanner) ClearRegistry() {
	s.registry = nil
	s.reset()
}

func (s *Scanner) use(reg *registry.Registry) {
	if reg == s.registry {
		return
	}
	s.registry = reg
	s.reset()
}

func (s *Scanner) reset() {
	s.stack = deque.New(s.index,
		deque.WithLogger(s.logger),
		deque.WithDiagnostics(s.diags))
	s.processor = processor.New(s.index, s.registry, s.stack,
		processor.WithLogger(s.logger),
		processor.WithDiagnostics(s.diags),
		processor.WithWrappers(s.wrappers...))
}

// Run registers every root in order within one run and returns their schema
// nodes. The run's registry is carried in the context handed to each root.
func (s *Scanner) Run(ctx context.Context, components openapi3.Schemas, roots ...*types.Type) ([]*openapi3.SchemaRef, error) {
	ctx, span := s.tracer.Start(ctx, "schemagen.run",
		trace.WithAttributes(attribute.Int("schemagen.roots", len(roots))))
	defer span.End()

	reg := s.NewRegistry(components)
	defer s.ClearRegistry()
	ctx = registry.NewContext(ctx, reg)

	refs := make([]*openapi3.SchemaRef, 0, len(roots))
	for _, root := range roots {
		ref, err := s.RegisterRootType(ctx, root, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		refs = append(refs, ref)
	}
	span.SetAttributes(attribute.Int("schemagen.schemas", reg.Len()))
	return refs, nil
}

// RegisterRootType classifies t into schema, which may be nil, and expands
// everything it pushes. Named roots come back as a reference to their
// registered body. A registry carried by ctx becomes the current one.
func (s *Scanner) RegisterRootType(ctx context.Context, t *types.Type, schema *openapi3.Schema) (*openapi3.SchemaRef, error) {
	if t == nil {
		return nil, ErrNilType
	}
	if reg := registry.FromContext(ctx); reg != nil {
		s.use(reg)
	}
	_, span := s.tracer.Start(ctx, "schemagen.root",
		trace.WithAttributes(attribute.String("schemagen.type", t.String())))
	defer span.End()

	if schema == nil {
		schema = &openapi3.Schema{}
	}
	if s.registry.HasSchema(t) {
		ref, err := s.registry.LookupRef(t)
		if err != nil {
			return nil, fmt.Errorf("root %s: %w", t, err)
		}
		return ref, nil
	}

	s.logger.Debug("registering root type", zap.String("type", t.String()))
	ref, res := s.processor.Resolve(processor.Occurrence{Type: t, Schema: schema})
	span.SetAttributes(attribute.String("schemagen.shape", res.Shape.String()))

	expanded := 0
	for entry, ok := s.DrainNext(); ok; entry, ok = s.DrainNext() {
		if s.expand(entry) {
			expanded++
		}
	}
	span.SetAttributes(attribute.Int("schemagen.expanded", expanded))
	return ref, nil
}

// Classify classifies one occurrence of t outside any field expansion and
// returns its effective type. Types it pushes are returned by DrainNext.
func (s *Scanner) Classify(t *types.Type, schema *openapi3.Schema, site *types.FieldInfo) *types.Type {
	return s.processor.Classify(processor.Occurrence{Site: site, Type: t, Schema: schema}).Type
}

// DrainNext pops the next entry awaiting expansion.
func (s *Scanner) DrainNext() (*deque.PathEntry, bool) {
	entry := s.stack.Pop()
	return entry, entry != nil
}

// Expand writes the properties of entry and registers its body when the
// entry's type holds a reference without one. It reports false when the
// type already has a registered body.
func (s *Scanner) Expand(entry *deque.PathEntry) bool {
	return s.expand(entry)
}

func (s *Scanner) expand(entry *deque.PathEntry) bool {
	t := entry.Type()
	if s.registry.HasSchema(t) {
		s.logger.Debug("schema already registered", zap.String("type", t.String()))
		return false
	}
	schema := entry.Schema
	class := entry.Class()
	if class != nil {
		if schema.Description == "" {
			schema.Description = class.Doc
		}
		if isStruct(class) {
			if schema.Type == nil {
				schema.Type = &openapi3.Types{openapi3.TypeObject}
			}
			s.expandFields(entry, class)
		}
	}
	if s.registry.HasRef(t) {
		s.registry.Register(t, schema)
	}
	return true
}

func (s *Scanner) expandFields(entry *deque.PathEntry, class *types.ClassInfo) {
	schema := entry.Schema
	bindings := types.NewBindings(class, entry.Type(), nil)
	for _, m := range s.members(class, bindings, entry.Site()) {
		field := m.field
		name := field.JSONName()
		prop := &openapi3.Schema{}
		ref, _ := s.processor.Resolve(processor.Occurrence{
			Parent:   entry,
			Site:     field,
			Type:     field.Type,
			Schema:   prop,
			Resolver: m.bindings,
		})
		s.applicator.Apply(boundField(field, m.bindings), ref, name, func(_ *types.FieldInfo, key string) {
			schema.Required = appendUnique(schema.Required, key)
		})
		pushed := s.stack.Peek() != nil && s.stack.Peek().Schema == prop
		if schema.Properties == nil {
			schema.Properties = openapi3.Schemas{}
		}
		schema.Properties[name] = describe(ref, field.Doc, prop, pushed)
	}
}

// boundField returns field with its type variables bound, so validation rules
// on a field of type T are read against the type T was instantiated with.
func boundField(field *types.FieldInfo, b *types.Bindings) *types.FieldInfo {
	t := b.Resolve(field.Type)
	if t == field.Type {
		return field
	}
	bound := *field
	bound.Type = t
	return &bound
}

// describe attaches the description of a property. References cannot carry
// siblings in OpenAPI 3.0, so a described reference is wrapped in allOf. A
// node that was not pushed keeps the note left on it, such as a cycle marker.
func describe(ref *openapi3.SchemaRef, doc string, occurrence *openapi3.Schema, pushed bool) *openapi3.SchemaRef {
	if ref.Ref == "" {
		if ref.Value != nil && ref.Value.Description == "" {
			ref.Value.Description = doc
		}
		return ref
	}
	if doc == "" && !pushed {
		doc = occurrence.Description
	}
	if doc == "" {
		return ref
	}
	return openapi3.NewSchemaRef("", &openapi3.Schema{
		Description: doc,
		AllOf:       openapi3.SchemaRefs{ref},
	})
}

func isStruct(class *types.ClassInfo) bool {
	return !class.IsEnum() && len(class.Supertypes) == 0
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
