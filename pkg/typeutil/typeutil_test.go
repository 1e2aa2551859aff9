package typeutil

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blimu-dev/schema-gen/pkg/types"
)

const shop = "example.com/shop."

func TestSchemaFor(t *testing.T) {
	tests := []struct {
		name   string
		typ    *types.Type
		want   string
		format string
	}{
		{"string", types.StringType, openapi3.TypeString, ""},
		{"int", types.Primitive("int"), openapi3.TypeInteger, "int64"},
		{"int16", types.Primitive("int16"), openapi3.TypeInteger, "int32"},
		{"float32", types.Primitive("float32"), openapi3.TypeNumber, "float"},
		{"bytes", types.Primitive(types.BytesName), openapi3.TypeString, "byte"},
		{"time", types.Class("time.Time"), openapi3.TypeString, "date-time"},
		{"decimal", types.Class("github.com/shopspring/decimal.Decimal"), openapi3.TypeString, "decimal"},
		{"array", types.ArrayOf(types.StringType, 1), openapi3.TypeArray, ""},
		{"unknown class", types.Class(shop + "Order"), openapi3.TypeObject, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SchemaFor(tt.typ)
			require.NotNil(t, s.Type)
			assert.True(t, s.Type.Is(tt.want), "type %v", s.Type)
			assert.Equal(t, tt.format, s.Format)
		})
	}

	assert.Nil(t, SchemaFor(types.AnyType).Type)

	uuid := SchemaFor(types.Class("github.com/google/uuid.UUID"))
	assert.Equal(t, "uuid", uuid.Format)
	assert.NotEmpty(t, uuid.Pattern)

	loc := SchemaFor(types.Class("time.Location"))
	assert.Equal(t, "Europe/Paris", loc.Example)
	require.NotNil(t, loc.ExternalDocs)
	loc.ExternalDocs.URL = "changed"
	assert.NotEqual(t, "changed", SchemaFor(types.Class("time.Location")).ExternalDocs.URL)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(types.Primitive("int")))
	assert.True(t, IsTerminal(types.Class("time.Time")))
	assert.False(t, IsTerminal(types.Class(types.ObjectName)))
	assert.False(t, IsTerminal(types.Class(shop+"Order")))
	assert.False(t, IsTerminal(types.ArrayOf(types.StringType, 1)))
	assert.False(t, IsTerminal(types.TypeVariable("T")))
	assert.False(t, IsTerminal(types.Wildcard()))
}

func containerIndex() types.MapIndex {
	return types.NewMapIndex(
		&types.ClassInfo{
			Type:       types.Class(shop + "Lines"),
			Supertypes: []*types.Type{types.SliceOf(types.Class(shop + "Line"))},
		},
		&types.ClassInfo{
			Type:       types.Parameterized(shop+"Dict", types.TypeVariable("V")),
			Supertypes: []*types.Type{types.MapOf(types.StringType, types.TypeVariable("V"))},
		},
		&types.ClassInfo{
			Type:       types.Class(shop + "Tags"),
			Supertypes: []*types.Type{types.SetOf(types.StringType)},
		},
		&types.ClassInfo{
			Type:       types.Class(shop + "Loop"),
			Supertypes: []*types.Type{types.Class(shop + "Loop")},
		},
		&types.ClassInfo{
			Type:       types.Class(shop + "Status"),
			EnumValues: []any{"pending", "shipped"},
			Doc:        "Status of an order.",
		},
	)
}

func TestContainerShapes(t *testing.T) {
	index := containerIndex()
	lines := types.Class(shop + "Lines")
	dict := types.Parameterized(shop+"Dict", types.Primitive("float64"))
	tags := types.Class(shop + "Tags")

	assert.True(t, IsCollection(index, types.SliceOf(types.StringType)))
	assert.True(t, IsCollection(index, lines))
	assert.True(t, IsCollection(index, tags))
	assert.False(t, IsCollection(index, dict))

	assert.True(t, IsMap(index, dict))
	assert.False(t, IsMap(index, lines))
	assert.True(t, IsSet(index, tags))
	assert.False(t, IsSet(index, lines))

	assert.False(t, IsCollection(index, types.Class(shop+"Loop")))
	assert.False(t, IsCollection(nil, lines))

	m := Ancestor(index, dict, types.MapName)
	require.NotNil(t, m)
	assert.Equal(t, "float64", m.Args()[1].Name())
}

func TestWrappers(t *testing.T) {
	order := types.Class(shop + "Order")
	ptr := types.PointerTo(order)
	opt := types.Parameterized("example.com/opt.Option", order)

	assert.True(t, IsWrapped(ptr))
	assert.False(t, IsWrapped(opt))
	assert.True(t, IsWrapped(opt, "example.com/opt.Option"))
	assert.False(t, IsWrapped(types.SliceOf(order)))
	assert.False(t, IsWrapped(order))

	assert.Same(t, order, Unwrap(ptr))
	assert.Same(t, types.AnyType, Unwrap(types.Class(shop+"Raw")))
}

func TestBoundOf(t *testing.T) {
	user := types.Class(shop + "User")
	assert.Same(t, user, BoundOf(types.WildcardExtends(user)))
	assert.Same(t, types.ObjectType, BoundOf(types.WildcardSuper(user)))
	assert.Same(t, types.ObjectType, BoundOf(types.Wildcard()))
}

func TestEnums(t *testing.T) {
	index := containerIndex()
	status := types.Class(shop + "Status")

	assert.True(t, IsEnum(index, status))
	assert.False(t, IsEnum(index, types.Class(shop+"Lines")))
	assert.False(t, IsEnum(nil, status))
	assert.True(t, AllowRegistration(index, status))
	assert.False(t, AllowRegistration(index, types.SliceOf(status)))

	class := index.Class(status)
	s := EnumSchema(class)
	assert.True(t, s.Type.Is(openapi3.TypeString))
	assert.Equal(t, []any{"pending", "shipped"}, s.Enum)
	assert.Equal(t, "Status of an order.", s.Description)
	assert.Same(t, types.StringType, EnumBase(class))

	s.Enum[0] = "changed"
	assert.Equal(t, "pending", class.EnumValues[0])
}
