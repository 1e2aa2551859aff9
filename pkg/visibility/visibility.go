// Package visibility decides which struct fields become schema properties.
package visibility

import (
	"strings"

	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/types"
	"github.com/blimu-dev/schema-gen/pkg/typeutil"
)

// Visibility is the decision of one handler.
type Visibility int

const (
	// Unset defers to the next handler
	Unset Visibility = iota
	// Exposed keeps the field
	Exposed
	// Ignored drops the field
	Ignored
)

// String returns a human-readable visibility name.
func (v Visibility) String() string {
	switch v {
	case Exposed:
		return "exposed"
	case Ignored:
		return "ignored"
	default:
		return "unset"
	}
}

// Handler inspects one field. reference is the field of the enclosing type
// that led to the field's declaring type, or nil at the root.
type Handler interface {
	Name() string
	Visibility(field, reference *types.FieldInfo) Visibility
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc struct {
	HandlerName string
	Func        func(field, reference *types.FieldInfo) Visibility
}

// Name implements Handler.
func (h HandlerFunc) Name() string { return h.HandlerName }

// Visibility implements Handler.
func (h HandlerFunc) Visibility(field, reference *types.FieldInfo) Visibility {
	return h.Func(field, reference)
}

// Resolver runs an ordered chain of handlers. The first decision other than
// Unset wins.
type Resolver struct {
	index    types.Index
	handlers []Handler
	logger   *zap.Logger
	ignored  map[string]bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHandlers appends handlers after the built-in chain.
func WithHandlers(handlers ...Handler) Option {
	return func(r *Resolver) { r.handlers = append(r.handlers, handlers...) }
}

// New creates a resolver with the built-in chain:
//
//  1. json:"-" on the field
//  2. unexported fields
//  3. ignored property lists on the declaring type or the referencing field
//  4. schema:"ignore" on the field
//  5. //schema:ignore on the field's type
func New(index types.Index, opts ...Option) *Resolver {
	r := &Resolver{
		index:   index,
		logger:  zap.NewNop(),
		ignored: map[string]bool{},
	}
	r.handlers = []Handler{
		HandlerFunc{"json-transient", jsonTransient},
		HandlerFunc{"unexported", unexported},
		HandlerFunc{"ignore-properties", ignoreProperties},
		HandlerFunc{"field-ignore", fieldIgnore},
		HandlerFunc{"type-ignore", r.typeIgnore},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Visibility returns the first decision of the chain.
func (r *Resolver) Visibility(field, reference *types.FieldInfo) Visibility {
	for _, h := range r.handlers {
		if v := h.Visibility(field, reference); v != Unset {
			return v
		}
	}
	return Unset
}

// IsIgnored reports whether field is dropped. Unset fields are exposed.
func (r *Resolver) IsIgnored(field, reference *types.FieldInfo) bool {
	return r.Visibility(field, reference) == Ignored
}

func jsonTransient(field, _ *types.FieldInfo) Visibility {
	if field.Tag.Get("json") == "-" {
		return Ignored
	}
	return Unset
}

func ignoreProperties(field, reference *types.FieldInfo) Visibility {
	name := field.JSONName()
	if field.Declaring != nil && len(field.Declaring.IgnoredProperties) > 0 {
		return listed(field.Declaring.IgnoredProperties, name)
	}
	if reference == nil {
		return Unset
	}
	value, ok := SchemaOption(reference, "ignoreProperties")
	if !ok {
		return Unset
	}
	return listed(strings.Split(value, "|"), name)
}

func listed(names []string, name string) Visibility {
	for _, n := range names {
		if strings.TrimSpace(n) == name {
			return Ignored
		}
	}
	return Exposed
}

func fieldIgnore(field, _ *types.FieldInfo) Visibility {
	value, ok := SchemaOption(field, "ignore")
	if !ok || value == "false" {
		return Unset
	}
	return Ignored
}

func (r *Resolver) typeIgnore(field, _ *types.FieldInfo) Visibility {
	t := field.Type
	for t != nil && typeutil.IsWrapped(t) {
		t = typeutil.Unwrap(t)
	}
	if t == nil || r.index == nil {
		return Unset
	}
	switch t.Kind() {
	case types.KindPrimitive, types.KindTypeVariable, types.KindUnresolvedTypeVariable, types.KindWildcard:
		return Unset
	case types.KindArray:
		if t.Component().Kind() == types.KindPrimitive {
			return Unset
		}
	}
	class := r.index.Class(t)
	if class == nil {
		return Unset
	}
	if r.ignored[class.Name()] {
		return Ignored
	}
	if class.Ignored {
		r.logger.Debug("ignoring type", zap.String("type", class.Name()))
		r.ignored[class.Name()] = true
		return Ignored
	}
	return Unset
}

func unexported(field, _ *types.FieldInfo) Visibility {
	if !field.Exported && !field.Embedded {
		return Ignored
	}
	return Unset
}

// SchemaOption returns the value of a schema tag option, e.g. "ignore" or
// "ignoreProperties=a|b". Options without a value report "true".
func SchemaOption(field *types.FieldInfo, option string) (string, bool) {
	tag, ok := field.Tag.Lookup("schema")
	if !ok {
		return "", false
	}
	for _, part := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(strings.TrimSpace(part), "=")
		if key != option {
			continue
		}
		if !hasValue {
			return "true", true
		}
		return value, true
	}
	return "", false
}
