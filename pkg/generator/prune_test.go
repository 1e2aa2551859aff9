package generator

import (
	"reflect"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func objectWith(props map[string]*openapi3.SchemaRef) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeObject},
		Properties: props,
	})
}

func componentRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func TestPruneUnreferenced(t *testing.T) {
	components := openapi3.Schemas{
		"A": objectWith(map[string]*openapi3.SchemaRef{
			"b":    componentRef("B"),
			"list": openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(&openapi3.Schema{AllOf: openapi3.SchemaRefs{componentRef("F")}})),
		}),
		"B": objectWith(map[string]*openapi3.SchemaRef{"a": componentRef("A")}),
		"C": objectWith(nil),
		"D": objectWith(map[string]*openapi3.SchemaRef{"e": componentRef("E")}),
		"E": objectWith(map[string]*openapi3.SchemaRef{"d": componentRef("D")}),
		"F": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}

	removed := pruneUnreferenced(components, map[string]bool{"A": true})

	expected := []string{"C", "D", "E"}
	if !reflect.DeepEqual(removed, expected) {
		t.Errorf("pruneUnreferenced() removed %v, expected %v", removed, expected)
	}
	for _, name := range []string{"A", "B", "F"} {
		if components[name] == nil {
			t.Errorf("component %s was pruned but is referenced", name)
		}
	}
	if len(components) != 3 {
		t.Errorf("expected 3 components to remain, got %d", len(components))
	}
}

func TestPruneKeepsEverythingReachable(t *testing.T) {
	components := openapi3.Schemas{
		"Map": openapi3.NewSchemaRef("", openapi3.NewObjectSchema().WithAdditionalProperties(&openapi3.Schema{
			AnyOf: openapi3.SchemaRefs{componentRef("Value")},
		})),
		"Value": openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
	}

	if removed := pruneUnreferenced(components, map[string]bool{"Map": true}); len(removed) != 0 {
		t.Errorf("pruneUnreferenced() removed %v, expected nothing", removed)
	}
}
