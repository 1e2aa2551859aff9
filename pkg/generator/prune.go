package generator

import (
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/schema-gen/pkg/openapi"
)

// pruneUnreferenced removes the components that none of the kept components
// reach through references, and returns the removed names sorted.
func pruneUnreferenced(components openapi3.Schemas, keep map[string]bool) []string {
	referenced := make(map[string]bool)
	visited := make(map[*openapi3.Schema]bool) // Track visited bodies to avoid cycles

	// Helper function to collect references from a schema recursively
	var collectRefs func(ref *openapi3.SchemaRef)
	collectRefs = func(ref *openapi3.SchemaRef) {
		if ref == nil {
			return
		}
		if ref.Ref != "" {
			name := openapi.RefName(ref.Ref)
			if referenced[name] {
				return
			}
			referenced[name] = true
			// If this ref points to a component, collect its transitive references
			collectRefs(components[name])
			return
		}
		schema := ref.Value
		if schema == nil || visited[schema] {
			return
		}
		visited[schema] = true

		collectRefs(schema.Items)
		collectRefs(schema.AdditionalProperties.Schema)
		collectRefs(schema.Not)
		for _, sub := range schema.OneOf {
			collectRefs(sub)
		}
		for _, sub := range schema.AnyOf {
			collectRefs(sub)
		}
		for _, sub := range schema.AllOf {
			collectRefs(sub)
		}
		for _, prop := range schema.Properties {
			collectRefs(prop)
		}
	}

	for name := range keep {
		referenced[name] = true
		collectRefs(components[name])
	}

	var removed []string
	for name := range components {
		if !referenced[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		delete(components, name)
	}
	return removed
}
