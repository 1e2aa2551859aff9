// Package registry holds the named schemas of one generation run.
//
// Every registered type gets a display name that is unique within the run and a
// reference node pointing at "#/components/schemas/<name>". Bodies are written
// to the components map the registry was created with; a type may also hold a
// reference only, whose body is filled in later by the run driver.
//
// A Registry is not safe for concurrent use. One run owns one registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/openapi"
	"github.com/blimu-dev/schema-gen/pkg/types"
)

// ErrNotRegistered is returned by lookups for a type without an entry.
var ErrNotRegistered = errors.New("registry: type not registered")

// NameHinter supplies explicit display names declared on types.
type NameHinter interface {
	DisplayNameHint(t *types.Type) (string, bool)
}

// GeneratedSchemaInfo is the entry of one registered type.
type GeneratedSchemaInfo struct {
	name   string
	schema *openapi3.Schema
	ref    string
}

// Name returns the display name issued for the type.
func (g GeneratedSchemaInfo) Name() string { return g.name }

// Schema returns the registered body, or nil for a reference-only entry.
func (g GeneratedSchemaInfo) Schema() *openapi3.Schema { return g.schema }

// Ref returns the reference string, e.g. "#/components/schemas/Order".
func (g GeneratedSchemaInfo) Ref() string { return g.ref }

// RefNode returns a fresh reference node for the entry.
func (g GeneratedSchemaInfo) RefNode() *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(g.ref, nil)
}

// Preregistered is a schema supplied out of band for a type.
type Preregistered struct {
	// Type the schema stands for
	Type *types.Type
	// Name overrides the derived display name when set
	Name string
	// Schema is used as is when set
	Schema *openapi3.Schema
	// Source is parsed as a YAML or JSON schema when Schema is nil
	Source []byte
}

type entry struct {
	key  types.Key
	info GeneratedSchemaInfo
}

// Registry maps type keys to generated schema entries.
type Registry struct {
	components openapi3.Schemas
	index      types.Index
	hints      NameHinter
	logger     *zap.Logger
	diags      *diagnostic.Diagnostics

	buckets map[uint64][]*entry
	order   []*entry
	names   map[string]struct{}
	pending []Preregistered
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for soft failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNameHints sets the source of explicit display names.
func WithNameHints(hints NameHinter) Option {
	return func(r *Registry) { r.hints = hints }
}

// WithDiagnostics sets the collector for recoverable anomalies.
func WithDiagnostics(diags *diagnostic.Diagnostics) Option {
	return func(r *Registry) { r.diags = diags }
}

// WithPreregistered registers the given schemas when the registry is created.
func WithPreregistered(schemas ...Preregistered) Option {
	return func(r *Registry) {
		r.pending = append(r.pending, schemas...)
	}
}

// New creates a registry writing bodies into components. Names already present
// in components are reserved so generated schemas never overwrite them.
func New(components openapi3.Schemas, index types.Index, opts ...Option) *Registry {
	if components == nil {
		components = openapi3.Schemas{}
	}
	r := &Registry{
		components: components,
		index:      index,
		logger:     zap.NewNop(),
		buckets:    map[uint64][]*entry{},
		names:      map[string]struct{}{},
	}
	for name := range components {
		r.names[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	r.preregister(r.pending)
	r.pending = nil
	return r
}

func (r *Registry) preregister(schemas []Preregistered) {
	for _, p := range schemas {
		if p.Type == nil {
			continue
		}
		schema := p.Schema
		if schema == nil {
			parsed, err := openapi.ParseSchema(p.Source)
			if err != nil {
				r.logger.Warn("skipping preregistered schema",
					zap.String("type", p.Type.String()),
					zap.Error(err))
				r.diags.AddWarning(diagnostic.CodeInvalidPreregistered, err.Error(), p.Type.String(), "")
				continue
			}
			schema = parsed
		}
		slot := r.remove(types.NewKey(p.Type))
		r.create(p.Type, schema, p.Name)
		r.moveLast(slot)
	}
}

// Register registers schema for t, replacing any previous entry, and returns a
// reference node to it. A replaced entry keeps its position in Entries.
func (r *Registry) Register(t *types.Type, schema *openapi3.Schema) *openapi3.SchemaRef {
	slot := r.remove(types.NewKey(t))
	info := r.create(t, schema, "")
	r.moveLast(slot)
	return info.RefNode()
}

// RegisterReference issues a name and reference for t without a body. An
// existing entry is kept as is.
func (r *Registry) RegisterReference(t *types.Type) *openapi3.SchemaRef {
	if e := r.find(types.NewKey(t)); e != nil {
		return e.info.RefNode()
	}
	return r.create(t, nil, "").RefNode()
}

// CheckRegistration registers the body of ref for t when t is eligible and
// returns the reference. Ineligible types get ref back unchanged. A nil
// registry passes everything through.
func (r *Registry) CheckRegistration(t *types.Type, resolver types.Resolver, ref *openapi3.SchemaRef) *openapi3.SchemaRef {
	return r.gate(t, resolver, ref, func(resolved *types.Type) *openapi3.SchemaRef {
		if ref == nil || ref.Value == nil {
			return ref
		}
		return r.Register(resolved, ref.Value)
	})
}

// RegisterReferenceFor is the gated form of RegisterReference.
func (r *Registry) RegisterReferenceFor(t *types.Type, resolver types.Resolver, ref *openapi3.SchemaRef) *openapi3.SchemaRef {
	return r.gate(t, resolver, ref, r.RegisterReference)
}

func (r *Registry) gate(t *types.Type, resolver types.Resolver, ref *openapi3.SchemaRef, action func(*types.Type) *openapi3.SchemaRef) *openapi3.SchemaRef {
	if r == nil || t == nil {
		return ref
	}
	if resolver == nil {
		resolver = types.Identity
	}
	resolved := resolver.Resolve(t)
	if !Eligible(resolved) {
		return ref
	}
	if e := r.find(types.NewKey(resolved)); e != nil {
		return e.info.RefNode()
	}
	if r.index == nil || !r.index.ContainsClass(resolved) {
		return ref
	}
	return action(resolved)
}

// Eligible reports whether a type of t's kind may be named at all.
func Eligible(t *types.Type) bool {
	switch t.Kind() {
	case types.KindClass, types.KindParameterized, types.KindTypeVariable, types.KindWildcard:
		return true
	default:
		return false
	}
}

// LookupRef returns a reference node for t.
func (r *Registry) LookupRef(t *types.Type) (*openapi3.SchemaRef, error) {
	e := r.find(types.NewKey(t))
	if e == nil {
		return nil, fmt.Errorf("lookup ref %s: %w", t, ErrNotRegistered)
	}
	return e.info.RefNode(), nil
}

// LookupSchema returns the registered body of t, which is nil for a
// reference-only entry.
func (r *Registry) LookupSchema(t *types.Type) (*openapi3.Schema, error) {
	e := r.find(types.NewKey(t))
	if e == nil {
		return nil, fmt.Errorf("lookup schema %s: %w", t, ErrNotRegistered)
	}
	return e.info.schema, nil
}

// Lookup returns the entry of t.
func (r *Registry) Lookup(t *types.Type) (GeneratedSchemaInfo, bool) {
	if r == nil || t == nil {
		return GeneratedSchemaInfo{}, false
	}
	e := r.find(types.NewKey(t))
	if e == nil {
		return GeneratedSchemaInfo{}, false
	}
	return e.info, true
}

// HasRef reports whether t has an entry.
func (r *Registry) HasRef(t *types.Type) bool {
	_, ok := r.Lookup(t)
	return ok
}

// HasSchema reports whether t has an entry with a body.
func (r *Registry) HasSchema(t *types.Type) bool {
	info, ok := r.Lookup(t)
	return ok && info.schema != nil
}

// Remove deletes the entry of t, frees its name and removes its body from the
// components. It returns false when t was not registered.
func (r *Registry) Remove(t *types.Type) bool {
	return r.remove(types.NewKey(t)) >= 0
}

// DeriveName returns a display name for t that is not issued yet. An override
// takes precedence over the declared hint, which takes precedence over the
// key's default name. Taken names get a numeric suffix starting at 1.
func (r *Registry) DeriveName(t *types.Type, override string) string {
	base := override
	if base == "" {
		base = r.hint(t)
	}
	if base == "" {
		base = types.NewKey(t).DefaultName()
	}
	name := base
	for i := 1; r.taken(name); i++ {
		name = base + strconv.Itoa(i)
	}
	if name != base {
		r.logger.Debug("display name taken",
			zap.String("type", t.String()),
			zap.String("name", base),
			zap.String("issued", name))
		r.diags.AddInfo(diagnostic.CodeNameCollision,
			fmt.Sprintf("name %q already issued, using %q", base, name), t.String(), "")
	}
	return name
}

func (r *Registry) hint(t *types.Type) string {
	if r.hints != nil {
		if h, ok := r.hints.DisplayNameHint(t); ok {
			return h
		}
		return ""
	}
	if r.index != nil {
		if class := r.index.Class(t); class != nil && t.Kind() != types.KindParameterized {
			return class.SchemaName
		}
	}
	return ""
}

func (r *Registry) taken(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Entries returns the entries in registration order.
func (r *Registry) Entries() []GeneratedSchemaInfo {
	out := make([]GeneratedSchemaInfo, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, e.info)
	}
	return out
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*types.Type {
	out := make([]*types.Type, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, e.key.Type())
	}
	return out
}

// Names returns every issued name, including the reserved ones, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.names))
	for n := range r.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.order) }

// Components returns the components map bodies are written to.
func (r *Registry) Components() openapi3.Schemas { return r.components }

// Clear drops every entry created by the registry and their bodies.
func (r *Registry) Clear() {
	for _, e := range r.order {
		if e.info.schema != nil {
			delete(r.components, e.info.name)
		}
		delete(r.names, e.info.name)
	}
	r.buckets = map[uint64][]*entry{}
	r.order = nil
}

func (r *Registry) find(key types.Key) *entry {
	if r == nil {
		return nil
	}
	for _, e := range r.buckets[key.Hash()] {
		if e.key.Equal(key) {
			return e
		}
	}
	return nil
}

func (r *Registry) create(t *types.Type, schema *openapi3.Schema, override string) GeneratedSchemaInfo {
	name := r.DeriveName(t, override)
	r.names[name] = struct{}{}
	info := GeneratedSchemaInfo{name: name, schema: schema, ref: openapi.RefPrefix + name}
	if schema != nil {
		r.components[name] = openapi3.NewSchemaRef("", schema)
	}
	key := types.NewKey(t)
	e := &entry{key: key, info: info}
	r.buckets[key.Hash()] = append(r.buckets[key.Hash()], e)
	r.order = append(r.order, e)
	return info
}

// remove returns the position the entry of key held in r.order, or -1.
func (r *Registry) remove(key types.Key) int {
	e := r.find(key)
	if e == nil {
		return -1
	}
	bucket := r.buckets[key.Hash()]
	for i, candidate := range bucket {
		if candidate == e {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(r.buckets, key.Hash())
	} else {
		r.buckets[key.Hash()] = bucket
	}
	slot := -1
	for i, candidate := range r.order {
		if candidate == e {
			r.order = append(r.order[:i], r.order[i+1:]...)
			slot = i
			break
		}
	}
	delete(r.names, e.info.name)
	delete(r.components, e.info.name)
	return slot
}

// moveLast moves the most recently created entry to slot.
func (r *Registry) moveLast(slot int) {
	last := len(r.order) - 1
	if slot < 0 || slot >= last {
		return
	}
	e := r.order[last]
	copy(r.order[slot+1:], r.order[slot:last])
	r.order[slot] = e
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying r as the current registry.
func NewContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

// FromContext returns the current registry of ctx, or nil.
func FromContext(ctx context.Context) *Registry {
	r, _ := ctx.Value(contextKey{}).(*Registry)
	return r
}
