package types

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/blimu-dev/schema-gen/pkg/utils"
)

// Key is the structural identity of a type descriptor, used to index the
// schema registry. Two keys are equal when their types have the same name and
// the same kind-specific parts; the hash is computed once at construction.
type Key struct {
	t    *Type
	hash uint64
}

// NewKey builds a key for t. It panics when t is nil.
func NewKey(t *Type) Key {
	if t == nil {
		panic("types: cannot build a key for a nil type")
	}
	d := xxhash.New()
	writeHash(d, t)
	return Key{t: t, hash: d.Sum64()}
}

// Type returns the descriptor the key was built from.
func (k Key) Type() *Type { return k.t }

// Hash returns the cached structural hash.
func (k Key) Hash() uint64 { return k.hash }

// Equal reports whether both keys identify the same type.
func (k Key) Equal(other Key) bool {
	return k.hash == other.hash && Equal(k.t, other.t)
}

// String returns the rendered type.
func (k Key) String() string { return k.t.String() }

// DefaultName returns the fallback display name: the local name followed by the
// local names of the generic arguments, e.g. "PageUser" for Page[User].
func (k Key) DefaultName() string {
	var b strings.Builder
	b.WriteString(k.t.LocalName())
	writeArgNames(&b, k.t)
	return b.String()
}

func writeArgNames(b *strings.Builder, t *Type) {
	if t.kind != KindParameterized {
		return
	}
	for _, arg := range t.args {
		switch {
		case arg.kind == KindWildcard && arg.super != nil:
			b.WriteString("Super")
			b.WriteString(argName(arg.super))
		case arg.kind == KindWildcard && arg.extends != nil && arg.extends.name != ObjectName:
			b.WriteString("Extends")
			b.WriteString(argName(arg.extends))
		case arg.kind == KindWildcard:
			b.WriteString("Object")
		case arg.kind == KindParameterized:
			b.WriteString(argName(arg))
			writeArgNames(b, arg)
		default:
			b.WriteString(argName(arg))
		}
	}
}

func argName(t *Type) string {
	if t.kind == KindArray {
		return argName(t.component) + "Array"
	}
	return utils.UpperFirst(t.LocalName())
}

// Equal reports structural equality of two descriptors.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind || a.name != b.name {
		return false
	}
	switch a.kind {
	case KindParameterized:
		return Equal(a.owner, b.owner) && equalAll(a.args, b.args)
	case KindTypeVariable, KindUnresolvedTypeVariable:
		return a.identifier == b.identifier && equalAll(a.bounds, b.bounds)
	case KindWildcard:
		return Equal(a.extends, b.extends) && Equal(a.super, b.super)
	case KindArray:
		return a.dimensions == b.dimensions && Equal(a.component, b.component)
	default:
		return true
	}
}

func equalAll(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func writeHash(d *xxhash.Digest, t *Type) {
	var buf [8]byte
	if t == nil {
		_, _ = d.Write([]byte{0xff})
		return
	}
	_, _ = d.Write([]byte{byte(t.kind)})
	_, _ = d.WriteString(t.name)
	switch t.kind {
	case KindParameterized:
		writeHash(d, t.owner)
		binary.LittleEndian.PutUint64(buf[:], uint64(len(t.args)))
		_, _ = d.Write(buf[:])
		for _, a := range t.args {
			writeHash(d, a)
		}
	case KindTypeVariable, KindUnresolvedTypeVariable:
		_, _ = d.WriteString(t.identifier)
		for _, bnd := range t.bounds {
			writeHash(d, bnd)
		}
	case KindWildcard:
		writeHash(d, t.extends)
		writeHash(d, t.super)
	case KindArray:
		binary.LittleEndian.PutUint64(buf[:], uint64(t.dimensions))
		_, _ = d.Write(buf[:])
		writeHash(d, t.component)
	}
}
