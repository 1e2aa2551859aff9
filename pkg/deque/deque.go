// Package deque implements the explicit work stack of the schema engine.
//
// Object graphs are expanded from this stack rather than by recursion, so the
// depth of a payload type never grows the call stack. Each entry links to the
// entry that pushed it, and a push whose type already appears on that chain is
// a cycle and is dropped.
package deque

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/types"
)

// PathEntry is one type position awaiting expansion.
type PathEntry struct {
	enclosing *PathEntry
	site      *types.FieldInfo
	typ       *types.Type
	class     *types.ClassInfo
	// Schema is the node the expansion populates
	Schema *openapi3.Schema
}

// NewPathEntry builds an entry. class may be nil for types without a declaration.
func NewPathEntry(enclosing *PathEntry, site *types.FieldInfo, t *types.Type, class *types.ClassInfo, schema *openapi3.Schema) *PathEntry {
	return &PathEntry{enclosing: enclosing, site: site, typ: t, class: class, Schema: schema}
}

// Enclosing returns the entry that pushed this one, or nil for a root.
func (e *PathEntry) Enclosing() *PathEntry { return e.enclosing }

// Site returns the field that led to this entry, or nil.
func (e *PathEntry) Site() *types.FieldInfo { return e.site }

// Type returns the type being expanded.
func (e *PathEntry) Type() *types.Type { return e.typ }

// Class returns the declaration of the type, or nil.
func (e *PathEntry) Class() *types.ClassInfo { return e.class }

// Depth returns the number of enclosing entries.
func (e *PathEntry) Depth() int {
	n := 0
	for cur := e.enclosing; cur != nil; cur = cur.enclosing {
		n++
	}
	return n
}

// Equal compares the expanded class and, for parameterized types, the generic
// arguments. The schema node and the field site are not compared.
func (e *PathEntry) Equal(other *PathEntry) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.typ.Erasure().Name() != other.typ.Erasure().Name() {
		return false
	}
	if e.typ.Kind() == types.KindParameterized && other.typ.Kind() == types.KindParameterized {
		return types.Equal(e.typ, other.typ)
	}
	return e.typ.Kind() == other.typ.Kind()
}

// HasAncestor reports whether e or one of its enclosing entries equals candidate.
func (e *PathEntry) HasAncestor(candidate *PathEntry) bool {
	for cur := e; cur != nil; cur = cur.enclosing {
		if cur.Equal(candidate) {
			return true
		}
	}
	return false
}

// Path renders the chain from the root, e.g. "Order.lines.product".
func (e *PathEntry) Path() string {
	if e.enclosing == nil {
		return e.typ.LocalName()
	}
	if e.site == nil {
		return e.enclosing.Path()
	}
	return e.enclosing.Path() + "." + e.site.JSONName()
}

// Deque is a LIFO stack of path entries.
type Deque struct {
	index   types.Index
	entries []*PathEntry
	root    *PathEntry
	logger  *zap.Logger
	diags   *diagnostic.Diagnostics
}

// Option configures a Deque.
type Option func(*Deque)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Deque) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDiagnostics sets the collector cycles are recorded in.
func WithDiagnostics(diags *diagnostic.Diagnostics) Option {
	return func(d *Deque) { d.diags = diags }
}

// New creates an empty stack resolving declarations through index.
func New(index types.Index, opts ...Option) *Deque {
	d := &Deque{index: index, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push adds entry without checking for cycles. The first entry pushed is the root.
func (d *Deque) Push(entry *PathEntry) {
	if d.root == nil {
		d.root = entry
	}
	d.entries = append(d.entries, entry)
}

// PushChild adds an entry for t below parent unless t is already being
// expanded on the parent chain. On a cycle, schema gets a description naming
// the type when it has none, and false is returned.
func (d *Deque) PushChild(site *types.FieldInfo, parent *PathEntry, t *types.Type, schema *openapi3.Schema) bool {
	var class *types.ClassInfo
	if d.index != nil {
		class = d.index.Class(t)
	}
	candidate := NewPathEntry(parent, site, t, class, schema)
	if parent.HasAncestor(candidate) {
		if schema != nil && schema.Description == "" {
			schema.Description = "Cyclic reference to " + t.Erasure().Name()
		}
		d.logger.Debug("cycle suppressed",
			zap.String("type", t.String()),
			zap.String("path", parent.Path()))
		d.diags.AddInfo(diagnostic.CodeCycleDetected,
			fmt.Sprintf("cyclic reference to %s", t), t.String(), parent.Path())
		return false
	}
	d.Push(candidate)
	return true
}

// Pop removes and returns the most recently pushed entry, or nil when empty.
func (d *Deque) Pop() *PathEntry {
	if len(d.entries) == 0 {
		return nil
	}
	last := len(d.entries) - 1
	e := d.entries[last]
	d.entries[last] = nil
	d.entries = d.entries[:last]
	return e
}

// Peek returns the most recently pushed entry without removing it.
func (d *Deque) Peek() *PathEntry {
	if len(d.entries) == 0 {
		return nil
	}
	return d.entries[len(d.entries)-1]
}

// Len returns the number of pending entries.
func (d *Deque) Len() int { return len(d.entries) }

// Empty reports whether no entries are pending.
func (d *Deque) Empty() bool { return len(d.entries) == 0 }

// RootEntry returns the first entry ever pushed.
func (d *Deque) RootEntry() *PathEntry { return d.root }
