package scanner

import (
	"strings"

	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/types"
)

type member struct {
	field    *types.FieldInfo
	bindings *types.Bindings
}

// members returns the visible fields of class in declaration order. Fields of
// untagged embedded structs are promoted the way encoding/json promotes them:
// a shallower field shadows deeper fields of the same property name, and
// among fields at the same depth the first one declared wins.
func (s *Scanner) members(class *types.ClassInfo, bindings *types.Bindings, reference *types.FieldInfo) []member {
	var out []member
	depthOf := map[string]int{}
	visited := map[string]bool{class.Name(): true}

	var walk func(c *types.ClassInfo, b *types.Bindings, depth int)
	walk = func(c *types.ClassInfo, b *types.Bindings, depth int) {
		for i := range c.Fields {
			field := &c.Fields[i]
			if s.visibility.IsIgnored(field, reference) {
				continue
			}
			if embedded := s.promoted(field, b); embedded != nil {
				if visited[embedded.Name()] {
					continue
				}
				visited[embedded.Name()] = true
				s.logger.Debug("promoting embedded fields",
					zap.String("type", c.Name()),
					zap.String("embedded", embedded.Name()))
				walk(embedded, types.NewBindings(embedded, b.Resolve(derefType(field.Type)), b), depth+1)
				continue
			}
			name := field.JSONName()
			if d, ok := depthOf[name]; ok && d <= depth {
				continue
			}
			if _, ok := depthOf[name]; ok {
				out = dropMember(out, name)
			}
			depthOf[name] = depth
			out = append(out, member{field: field, bindings: b})
		}
	}
	walk(class, bindings, 0)
	return out
}

// promoted returns the declaration of an embedded struct whose fields are
// inlined, or nil when field is encoded as a regular property.
func (s *Scanner) promoted(field *types.FieldInfo, b *types.Bindings) *types.ClassInfo {
	if !field.Embedded || s.index == nil {
		return nil
	}
	if name, _, _ := strings.Cut(field.Tag.Get("json"), ","); name != "" {
		return nil
	}
	class := s.index.Class(b.Resolve(derefType(field.Type)))
	if class == nil || !isStruct(class) {
		return nil
	}
	return class
}

func derefType(t *types.Type) *types.Type {
	if t.Kind() == types.KindParameterized && t.Name() == types.PointerName && len(t.Args()) == 1 {
		return t.Args()[0]
	}
	return t
}

func dropMember(members []member, name string) []member {
	out := members[:0]
	for _, m := range members {
		if m.field.JSONName() != name {
			out = append(out, m)
		}
	}
	return out
}
