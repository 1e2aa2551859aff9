package types

// Resolver substitutes type variables with the concrete types they are bound to
// in the current expansion context.
type Resolver interface {
	Resolve(t *Type) *Type
}

// Identity is a Resolver with no bindings. Unbound type variables resolve to AnyType.
var Identity Resolver = (*Bindings)(nil)

// Bindings maps type-variable identifiers to concrete types. A nil *Bindings is
// a valid empty resolver.
type Bindings struct {
	vars   map[string]*Type
	parent *Bindings
}

// NewBindings binds the type parameters of class to the arguments of instance.
// Arguments are resolved against parent first, so nested generic declarations
// see the bindings of the type that embeds them.
func NewBindings(class *ClassInfo, instance *Type, parent *Bindings) *Bindings {
	b := &Bindings{vars: map[string]*Type{}, parent: parent}
	if class == nil || instance == nil || instance.Kind() != KindParameterized {
		return b
	}
	params := class.TypeParameters()
	args := instance.Args()
	for i, p := range params {
		if i >= len(args) {
			break
		}
		b.vars[p.Identifier()] = parent.Resolve(args[i])
	}
	return b
}

// Bind returns a child of b with identifier bound to t.
func (b *Bindings) Bind(identifier string, t *Type) *Bindings {
	return &Bindings{vars: map[string]*Type{identifier: t}, parent: b}
}

// Lookup returns the binding for identifier, searching parents.
func (b *Bindings) Lookup(identifier string) (*Type, bool) {
	for cur := b; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[identifier]; ok {
			return t, true
		}
	}
	return nil, false
}

// Resolve implements Resolver.
func (b *Bindings) Resolve(t *Type) *Type {
	if t == nil {
		return nil
	}
	switch t.kind {
	case KindTypeVariable, KindUnresolvedTypeVariable:
		if bound, ok := b.Lookup(t.identifier); ok {
			return bound
		}
		return AnyType
	case KindWildcard:
		if t.extends == nil && t.super == nil {
			return t
		}
		w := *t
		if t.extends != nil {
			w.extends = b.Resolve(t.extends)
			w.name = w.extends.name
		}
		if t.super != nil {
			w.super = b.Resolve(t.super)
		}
		return &w
	case KindParameterized:
		changed := false
		args := make([]*Type, len(t.args))
		for i, a := range t.args {
			args[i] = b.Resolve(a)
			changed = changed || args[i] != a
		}
		owner := t.owner
		if owner != nil {
			owner = b.Resolve(owner)
			changed = changed || owner != t.owner
		}
		if !changed {
			return t
		}
		return NestedParameterized(owner, t.name, args...)
	case KindArray:
		c := b.Resolve(t.component)
		if c == t.component {
			return t
		}
		return ArrayOf(c, t.dimensions)
	default:
		return t
	}
}
