// Package constraints applies declared validation bounds to schema nodes.
//
// The applicator never overrides an attribute that is already set: values
// written explicitly on a schema, or by an earlier step, win over bounds
// inferred from validation rules.
package constraints

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/types"
)

// DefaultGroup is the validation group constraints apply to.
const DefaultGroup = "default"

// DecimalBound is a bound written as a decimal string.
type DecimalBound struct {
	Value     string
	Inclusive bool
}

// Digits limits the integer and fraction digits of a number.
type Digits struct {
	Integer  int
	Fraction int
}

// Size bounds the length of a string, array or object. Nil bounds are absent.
type Size struct {
	Min *uint64
	Max *uint64
}

// Set holds the constraints declared on one field.
type Set struct {
	DecimalMax     *DecimalBound
	DecimalMin     *DecimalBound
	Digits         *Digits
	Max            *int64
	Min            *int64
	Negative       bool
	NegativeOrZero bool
	Positive       bool
	PositiveOrZero bool
	NotBlank       bool
	NotEmpty       bool
	NotNull        bool
	Size           *Size
	// Groups the constraints belong to. Empty means the default group.
	Groups []string
}

// Active reports whether the set applies to the default group.
func (s Set) Active() bool {
	if len(s.Groups) == 0 {
		return true
	}
	for _, g := range s.Groups {
		if strings.EqualFold(g, DefaultGroup) {
			return true
		}
	}
	return false
}

// Source extracts the constraints declared on a field.
type Source interface {
	ConstraintsFor(field *types.FieldInfo) Set
}

// RequirementHandler records that the property propertyKey of field is required.
type RequirementHandler func(field *types.FieldInfo, propertyKey string)

// Applicator writes constraints onto schema nodes.
type Applicator struct {
	source Source
	logger *zap.Logger
	diags  *diagnostic.Diagnostics
}

// Option configures an Applicator.
type Option func(*Applicator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Applicator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDiagnostics sets the collector invalid constraints are recorded in.
func WithDiagnostics(diags *diagnostic.Diagnostics) Option {
	return func(a *Applicator) { a.diags = diags }
}

// New creates an applicator reading constraints from source.
func New(source Source, opts ...Option) *Applicator {
	a := &Applicator{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply writes the constraints of field onto ref. Bounds are only applied to
// inline schemas with a type. A not-null constraint is reported to handler
// for every node, references included, since requiredness belongs to the
// enclosing object.
func (a *Applicator) Apply(field *types.FieldInfo, ref *openapi3.SchemaRef, propertyKey string, handler RequirementHandler) {
	if a == nil || a.source == nil || field == nil || ref == nil {
		return
	}
	set := a.source.ConstraintsFor(field)
	if !set.Active() {
		return
	}
	if set.NotNull && handler != nil {
		handler(field, propertyKey)
	}
	schema := ref.Value
	if ref.Ref != "" || schema == nil || schema.Type == nil {
		return
	}
	a.ApplySet(set, schema, field.Name)
}

// ApplySet writes the bounds of set onto schema according to its type.
// site names the constraint source in warnings.
func (a *Applicator) ApplySet(set Set, schema *openapi3.Schema, site string) {
	switch {
	case schema.Type.Is(openapi3.TypeString):
		a.decimalMax(set, schema, site)
		a.decimalMin(set, schema, site)
		digits(set, schema)
		notBlank(set, schema)
		sizeString(set, schema)
		if set.NotEmpty && schema.MinLength == 0 {
			schema.MinLength = 1
		}

	case schema.Type.Is(openapi3.TypeNumber), schema.Type.Is(openapi3.TypeInteger):
		a.decimalMax(set, schema, site)
		a.decimalMin(set, schema, site)
		digits(set, schema)
		maxMin(set, schema)
		sign(set, schema)

	case schema.Type.Is(openapi3.TypeArray):
		sizeArray(set, schema)
		if set.NotEmpty && schema.MinItems == 0 {
			schema.MinItems = 1
		}

	case schema.Type.Is(openapi3.TypeObject):
		if !allowsAdditionalProperties(schema) {
			return
		}
		sizeObject(set, schema)
		if set.NotEmpty && schema.MinProps == 0 {
			schema.MinProps = 1
		}
	}
}

func allowsAdditionalProperties(schema *openapi3.Schema) bool {
	ap := schema.AdditionalProperties
	return ap.Schema != nil || (ap.Has != nil && *ap.Has)
}

func (a *Applicator) decimalMax(set Set, schema *openapi3.Schema, site string) {
	if set.DecimalMax == nil || schema.Max != nil {
		return
	}
	v, ok := a.parseDecimal(set.DecimalMax.Value, site)
	if !ok {
		return
	}
	schema.Max = &v
	if !set.DecimalMax.Inclusive {
		schema.ExclusiveMax = true
	}
}

func (a *Applicator) decimalMin(set Set, schema *openapi3.Schema, site string) {
	if set.DecimalMin == nil || schema.Min != nil {
		return
	}
	v, ok := a.parseDecimal(set.DecimalMin.Value, site)
	if !ok {
		return
	}
	schema.Min = &v
	if !set.DecimalMin.Inclusive {
		schema.ExclusiveMin = true
	}
}

func (a *Applicator) parseDecimal(value, site string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		a.logger.Warn("invalid decimal constraint",
			zap.String("field", site),
			zap.String("value", value),
			zap.Error(err))
		a.diags.AddWarning(diagnostic.CodeInvalidConstraint,
			fmt.Sprintf("invalid decimal bound %q", value), "", site)
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// DigitsPattern returns the pattern accepting numbers with at most integer
// integer digits and fraction fraction digits.
func DigitsPattern(integer, fraction int) string {
	var b strings.Builder
	b.WriteString(`^\d`)
	if integer > 1 {
		b.WriteString("{1," + strconv.Itoa(integer) + "}")
	}
	if fraction > 0 {
		b.WriteString(`([.]\d`)
		if fraction > 1 {
			b.WriteString("{1," + strconv.Itoa(fraction) + "}")
		}
		b.WriteString(")?")
	}
	b.WriteString("$")
	return b.String()
}

func digits(set Set, schema *openapi3.Schema) {
	if set.Digits == nil || schema.Pattern != "" {
		return
	}
	schema.Pattern = DigitsPattern(set.Digits.Integer, set.Digits.Fraction)
}

func notBlank(set Set, schema *openapi3.Schema) {
	if set.NotBlank && schema.Pattern == "" {
		schema.Pattern = `\S`
	}
}

func maxMin(set Set, schema *openapi3.Schema) {
	if set.Max != nil && schema.Max == nil {
		v := float64(*set.Max)
		schema.Max = &v
	}
	if set.Min != nil && schema.Min == nil {
		v := float64(*set.Min)
		schema.Min = &v
	}
}

func sign(set Set, schema *openapi3.Schema) {
	switch {
	case set.Negative && schema.Max == nil:
		schema.Max = bound(schema.ExclusiveMax, 0, -1)
	case set.NegativeOrZero && schema.Max == nil:
		schema.Max = bound(schema.ExclusiveMax, 1, 0)
	}
	switch {
	case set.Positive && schema.Min == nil:
		schema.Min = bound(schema.ExclusiveMin, 0, 1)
	case set.PositiveOrZero && schema.Min == nil:
		schema.Min = bound(schema.ExclusiveMin, -1, 0)
	}
}

// bound picks the limit matching the exclusiveness already set on the schema.
func bound(exclusive bool, ifExclusive, otherwise float64) *float64 {
	if exclusive {
		return &ifExclusive
	}
	return &otherwise
}

func sizeString(set Set, schema *openapi3.Schema) {
	if set.Size == nil {
		return
	}
	if set.Size.Min != nil && schema.MinLength == 0 {
		schema.MinLength = *set.Size.Min
	}
	if set.Size.Max != nil && schema.MaxLength == nil {
		v := *set.Size.Max
		schema.MaxLength = &v
	}
}

func sizeArray(set Set, schema *openapi3.Schema) {
	if set.Size == nil {
		return
	}
	if set.Size.Min != nil && schema.MinItems == 0 {
		schema.MinItems = *set.Size.Min
	}
	if set.Size.Max != nil && schema.MaxItems == nil {
		v := *set.Size.Max
		schema.MaxItems = &v
	}
}

func sizeObject(set Set, schema *openapi3.Schema) {
	if set.Size == nil {
		return
	}
	if set.Size.Min != nil && schema.MinProps == 0 {
		schema.MinProps = *set.Size.Min
	}
	if set.Size.Max != nil && schema.MaxProps == nil {
		v := *set.Size.Max
		schema.MaxProps = &v
	}
}
