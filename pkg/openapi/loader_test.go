package openapi

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema([]byte("type: string\nformat: decimal\n"))
	require.NoError(t, err)
	assert.True(t, schema.Type.Is(openapi3.TypeString))
	assert.Equal(t, "decimal", schema.Format)

	schema, err = ParseSchema([]byte(`{"type": "array", "items": {"$ref": "#/components/schemas/Line"}}`))
	require.NoError(t, err)
	require.NotNil(t, schema.Items)
	assert.Equal(t, "#/components/schemas/Line", schema.Items.Ref)

	_, err = ParseSchema([]byte("- a\n- b\n"))
	assert.ErrorContains(t, err, "expected a mapping")

	_, err = ParseSchema([]byte("type: [unclosed"))
	assert.Error(t, err)
}

func TestNewDocumentDefaults(t *testing.T) {
	doc := NewDocument("", "", "")
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Schemas", doc.Info.Title)
	assert.Equal(t, "0.0.0", doc.Info.Version)
	assert.NotNil(t, doc.Components.Schemas)
	require.NoError(t, Validate(context.Background(), doc))
}

func TestEnsureComponents(t *testing.T) {
	doc := &openapi3.T{}
	schemas := EnsureComponents(doc)
	schemas["A"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	assert.Same(t, doc.Components.Schemas["A"], schemas["A"])
}

func sampleDocument() *openapi3.T {
	doc := NewDocument("Shop", "1.0.0", "")
	doc.Components.Schemas["Line"] = openapi3.NewSchemaRef("", openapi3.NewObjectSchema().
		WithProperty("sku", openapi3.NewStringSchema()))
	doc.Components.Schemas["Order"] = openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"lines": openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:  &openapi3.Types{openapi3.TypeArray},
				Items: openapi3.NewSchemaRef(RefPrefix+"Line", nil),
			}),
		},
	})
	return doc
}

func TestValidateResolvesLocalReferences(t *testing.T) {
	require.NoError(t, Validate(context.Background(), sampleDocument()))

	broken := sampleDocument()
	broken.Components.Schemas["Order"].Value.Properties["lines"].Value.Items = openapi3.NewSchemaRef(RefPrefix+"Missing", nil)
	assert.Error(t, Validate(context.Background(), broken))
}

func TestWriteDocumentRoundTrip(t *testing.T) {
	for _, format := range []string{FormatYAML, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteDocument(&buf, sampleDocument(), format))

			path := filepath.Join(t.TempDir(), "doc."+format)
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
			require.NoError(t, ValidateDocument(path))

			doc, err := LoadDocument(path)
			require.NoError(t, err)
			assert.Equal(t, "Shop", doc.Info.Title)
			assert.Contains(t, doc.Components.Schemas, "Order")
		})
	}

	assert.ErrorContains(t, WriteDocument(&bytes.Buffer{}, sampleDocument(), "xml"), "unsupported output format")
}

func TestRefName(t *testing.T) {
	assert.Equal(t, "Order", RefName("#/components/schemas/Order"))
	assert.Equal(t, "Order", RefName("other.yaml#/definitions/Order"))
	assert.Equal(t, "Order", RefName("Order"))
}
