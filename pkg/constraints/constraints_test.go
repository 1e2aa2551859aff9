package constraints

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/types"
)

type staticSource map[string]Set

func (s staticSource) ConstraintsFor(field *types.FieldInfo) Set { return s[field.Name] }

func ptr[T any](v T) *T { return &v }

func typed(t string) *openapi3.Schema {
	return &openapi3.Schema{Type: &openapi3.Types{t}}
}

func TestExistingValuesWin(t *testing.T) {
	a := New(nil)
	schema := typed(openapi3.TypeInteger)
	schema.Min = ptr(5.0)

	a.ApplySet(Set{Min: ptr(int64(10)), Max: ptr(int64(20))}, schema, "count")

	assert.Equal(t, 5.0, *schema.Min)
	assert.Equal(t, 20.0, *schema.Max)
}

func TestNumberConstraints(t *testing.T) {
	tests := []struct {
		name    string
		set     Set
		prepare func(*openapi3.Schema)
		check   func(*testing.T, *openapi3.Schema)
	}{
		{
			name: "decimal max inclusive",
			set:  Set{DecimalMax: &DecimalBound{Value: "10.5", Inclusive: true}},
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, 10.5, *s.Max)
				assert.False(t, s.ExclusiveMax)
			},
		},
		{
			name: "decimal min exclusive",
			set:  Set{DecimalMin: &DecimalBound{Value: "0.01"}},
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, 0.01, *s.Min)
				assert.True(t, s.ExclusiveMin)
			},
		},
		{
			name: "negative",
			set:  Set{Negative: true},
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, -1.0, *s.Max)
			},
		},
		{
			name:    "negative with exclusive maximum",
			set:     Set{Negative: true},
			prepare: func(s *openapi3.Schema) { s.ExclusiveMax = true },
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, 0.0, *s.Max)
			},
		},
		{
			name: "negative or zero",
			set:  Set{NegativeOrZero: true},
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, 0.0, *s.Max)
			},
		},
		{
			name: "positive",
			set:  Set{Positive: true},
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, 1.0, *s.Min)
			},
		},
		{
			name:    "positive or zero with exclusive minimum",
			set:     Set{PositiveOrZero: true},
			prepare: func(s *openapi3.Schema) { s.ExclusiveMin = true },
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, -1.0, *s.Min)
			},
		},
		{
			name: "digits",
			set:  Set{Digits: &Digits{Integer: 5, Fraction: 2}},
			check: func(t *testing.T, s *openapi3.Schema) {
				assert.Equal(t, `^\d{1,5}([.]\d{1,2})?$`, s.Pattern)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := typed(openapi3.TypeNumber)
			if tt.prepare != nil {
				tt.prepare(schema)
			}
			New(nil).ApplySet(tt.set, schema, "amount")
			tt.check(t, schema)
		})
	}
}

func TestDigitsPattern(t *testing.T) {
	assert.Equal(t, `^\d$`, DigitsPattern(1, 0))
	assert.Equal(t, `^\d{1,3}$`, DigitsPattern(3, 0))
	assert.Equal(t, `^\d([.]\d)?$`, DigitsPattern(1, 1))
	assert.Equal(t, `^\d{1,10}([.]\d{1,4})?$`, DigitsPattern(10, 4))
}

func TestStringConstraints(t *testing.T) {
	a := New(nil)
	schema := typed(openapi3.TypeString)

	a.ApplySet(Set{NotBlank: true, NotEmpty: true, Size: &Size{Max: ptr(uint64(64))}}, schema, "name")

	assert.Equal(t, `\S`, schema.Pattern)
	assert.Equal(t, uint64(1), schema.MinLength)
	require.NotNil(t, schema.MaxLength)
	assert.Equal(t, uint64(64), *schema.MaxLength)

	sized := typed(openapi3.TypeString)
	a.ApplySet(Set{NotEmpty: true, Size: &Size{Min: ptr(uint64(3))}}, sized, "code")
	assert.Equal(t, uint64(3), sized.MinLength, "size is applied before not-empty")
}

func TestArrayConstraints(t *testing.T) {
	schema := typed(openapi3.TypeArray)
	New(nil).ApplySet(Set{Size: &Size{Min: ptr(uint64(1)), Max: ptr(uint64(10))}}, schema, "items")

	assert.Equal(t, uint64(1), schema.MinItems)
	assert.Equal(t, uint64(10), *schema.MaxItems)
}

func TestObjectConstraintsNeedAdditionalProperties(t *testing.T) {
	a := New(nil)
	set := Set{NotEmpty: true, Size: &Size{Max: ptr(uint64(5))}}

	closed := typed(openapi3.TypeObject)
	a.ApplySet(set, closed, "meta")
	assert.Zero(t, closed.MinProps)
	assert.Nil(t, closed.MaxProps)

	open := typed(openapi3.TypeObject)
	open.AdditionalProperties = openapi3.AdditionalProperties{Schema: openapi3.NewSchemaRef("", typed(openapi3.TypeString))}
	a.ApplySet(set, open, "labels")
	assert.Equal(t, uint64(1), open.MinProps)
	assert.Equal(t, uint64(5), *open.MaxProps)
}

func TestInvalidDecimalIsSkipped(t *testing.T) {
	diags := &diagnostic.Diagnostics{}
	a := New(nil, WithDiagnostics(diags))
	schema := typed(openapi3.TypeNumber)

	a.ApplySet(Set{DecimalMax: &DecimalBound{Value: "ten"}, DecimalMin: &DecimalBound{Value: "1", Inclusive: true}}, schema, "price")

	assert.Nil(t, schema.Max)
	assert.Equal(t, 1.0, *schema.Min)
	warnings := diags.ByCode(diagnostic.CodeInvalidConstraint)
	require.Len(t, warnings, 1)
	assert.Equal(t, "price", warnings[0].Field)
}

func TestApply(t *testing.T) {
	source := staticSource{
		"Name":  {NotNull: true, NotBlank: true},
		"Owner": {NotNull: true, NotBlank: true},
		"Audit": {NotNull: true, Groups: []string{"admin"}},
		"Note":  {NotBlank: true, Groups: []string{"Default"}},
	}
	a := New(source)

	var required []string
	handler := func(_ *types.FieldInfo, key string) { required = append(required, key) }

	name := openapi3.NewSchemaRef("", typed(openapi3.TypeString))
	a.Apply(&types.FieldInfo{Name: "Name"}, name, "name", handler)
	assert.Equal(t, `\S`, name.Value.Pattern)

	owner := openapi3.NewSchemaRef("#/components/schemas/User", nil)
	a.Apply(&types.FieldInfo{Name: "Owner"}, owner, "owner", handler)

	audit := openapi3.NewSchemaRef("", typed(openapi3.TypeString))
	a.Apply(&types.FieldInfo{Name: "Audit"}, audit, "audit", handler)

	note := openapi3.NewSchemaRef("", typed(openapi3.TypeString))
	a.Apply(&types.FieldInfo{Name: "Note"}, note, "note", handler)
	assert.Equal(t, `\S`, note.Value.Pattern)

	untyped := openapi3.NewSchemaRef("", &openapi3.Schema{})
	a.Apply(&types.FieldInfo{Name: "Name"}, untyped, "other", handler)
	assert.Empty(t, untyped.Value.Pattern)

	assert.Equal(t, []string{"name", "owner", "other"}, required)
}
