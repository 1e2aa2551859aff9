// Package typeutil holds the static knowledge the schema engine has about types:
// which types map directly onto scalar schemas, how container shapes relate to
// each other and how to unwrap single-value containers.
package typeutil

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/schema-gen/pkg/types"
)

const uuidPattern = "[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}"

// Attributes are the schema attributes a terminal type maps to.
type Attributes struct {
	Type         string
	Format       string
	Pattern      string
	Example      any
	ExternalDocs *openapi3.ExternalDocs
}

var partialTime = &openapi3.ExternalDocs{
	Description: "As defined by 'partial-time' in RFC3339",
	URL:         "https://xml2rfc.ietf.org/public/rfc/html/rfc3339.html#anchor14",
}

var fullTime = &openapi3.ExternalDocs{
	Description: "As defined by 'full-time' in RFC3339",
	URL:         "https://xml2rfc.ietf.org/public/rfc/html/rfc3339.html#anchor14",
}

var (
	stringAttrs  = Attributes{Type: openapi3.TypeString}
	boolAttrs    = Attributes{Type: openapi3.TypeBoolean}
	int32Attrs   = Attributes{Type: openapi3.TypeInteger, Format: "int32"}
	int64Attrs   = Attributes{Type: openapi3.TypeInteger, Format: "int64"}
	integerAttrs = Attributes{Type: openapi3.TypeInteger}
	numberAttrs  = Attributes{Type: openapi3.TypeNumber}
	objectAttrs  = Attributes{Type: openapi3.TypeObject}
	arrayAttrs   = Attributes{Type: openapi3.TypeArray}
)

var terminalTypes = map[string]Attributes{
	"string":  stringAttrs,
	"bool":    boolAttrs,
	"int":     int64Attrs,
	"int8":    int32Attrs,
	"int16":   int32Attrs,
	"int32":   int32Attrs,
	"int64":   int64Attrs,
	"uint":    int64Attrs,
	"uint8":   int32Attrs,
	"uint16":  int32Attrs,
	"uint32":  int64Attrs,
	"uint64":  int64Attrs,
	"uintptr": int64Attrs,
	"float32": {Type: openapi3.TypeNumber, Format: "float"},
	"float64": {Type: openapi3.TypeNumber, Format: "double"},

	types.BytesName: {Type: openapi3.TypeString, Format: "byte"},
	types.AnyName:   {},

	"time.Time":                   {Type: openapi3.TypeString, Format: "date-time"},
	"time.Duration":               int64Attrs,
	"net/url.URL":                 {Type: openapi3.TypeString, Format: "uri"},
	"encoding/json.Number":        numberAttrs,
	"math/big.Int":                integerAttrs,
	"math/big.Float":              numberAttrs,
	"github.com/google/uuid.UUID": {Type: openapi3.TypeString, Format: "uuid", Pattern: uuidPattern},

	"github.com/shopspring/decimal.Decimal": {Type: openapi3.TypeString, Format: "decimal"},

	"cloud.google.com/go/civil.Date":     {Type: openapi3.TypeString, Format: "date"},
	"cloud.google.com/go/civil.DateTime": {Type: openapi3.TypeString, Format: "date-time"},
	"cloud.google.com/go/civil.Time": {
		Type:         openapi3.TypeString,
		Format:       "local-time",
		Example:      "13:45:30.123456789",
		ExternalDocs: partialTime,
	},
	"time.Location": {
		Type:         openapi3.TypeString,
		Format:       "time-zone",
		Example:      "Europe/Paris",
		ExternalDocs: fullTime,
	},

	types.ObjectName: objectAttrs,
}

// Lookup returns the table attributes for t and whether t is listed.
func Lookup(t *types.Type) (Attributes, bool) {
	if t == nil {
		return Attributes{}, false
	}
	if t.Kind() == types.KindArray {
		return arrayAttrs, true
	}
	a, ok := terminalTypes[t.Name()]
	return a, ok
}

// AttributesOf returns the attributes for t. Types outside the table are objects.
func AttributesOf(t *types.Type) Attributes {
	if a, ok := Lookup(t); ok {
		return a
	}
	return objectAttrs
}

// IsTerminal reports whether t maps directly onto a scalar schema.
func IsTerminal(t *types.Type) bool {
	switch t.Kind() {
	case types.KindTypeVariable, types.KindUnresolvedTypeVariable, types.KindWildcard, types.KindArray:
		return false
	case types.KindPrimitive:
		return true
	}
	a, ok := terminalTypes[t.Name()]
	if !ok {
		return false
	}
	return a.Type != openapi3.TypeArray && a.Type != openapi3.TypeObject
}

// ApplyTypeAttributes writes the type attributes of t onto schema.
func ApplyTypeAttributes(t *types.Type, schema *openapi3.Schema) {
	a := AttributesOf(t)
	if a.Type != "" {
		schema.Type = &openapi3.Types{a.Type}
	}
	schema.Format = a.Format
	if a.Pattern != "" {
		schema.Pattern = a.Pattern
	}
	if a.Example != nil {
		schema.Example = a.Example
	}
	if a.ExternalDocs != nil {
		docs := *a.ExternalDocs
		schema.ExternalDocs = &docs
	}
}

// SchemaFor returns a fresh schema carrying the type attributes of t.
func SchemaFor(t *types.Type) *openapi3.Schema {
	s := &openapi3.Schema{}
	ApplyTypeAttributes(t, s)
	return s
}
