// Package metadata reads schema metadata declared in Go source: validation
// rules from struct tags and display names from //schema: directives or a
// naming template.
package metadata

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/constraints"
	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/types"
	"github.com/blimu-dev/schema-gen/pkg/typeutil"
	"github.com/blimu-dev/schema-gen/pkg/utils"
)

// Provider is the metadata capability consumed by the engine.
type Provider interface {
	ConstraintsFor(field *types.FieldInfo) constraints.Set
	DisplayNameHint(t *types.Type) (string, bool)
}

// NameData is the data a naming template is executed with.
type NameData struct {
	// Name is the local type name, e.g. "Page"
	Name string
	// Package is the import path, e.g. "github.com/acme/shop"
	Package string
	// PackageName is the last import path element, e.g. "shop"
	PackageName string
	// Args are the local names of the generic arguments
	Args []string
	// Default is the name used without a template, e.g. "PageUser"
	Default string
}

// TagProvider implements Provider over struct tags and type directives.
type TagProvider struct {
	index    types.Index
	naming   *template.Template
	tagName  string
	logger   *zap.Logger
	diags    *diagnostic.Diagnostics
	hintMemo map[string]string
}

// Option configures a TagProvider.
type Option func(*TagProvider) error

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *TagProvider) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// WithDiagnostics sets the collector invalid tag values are recorded in.
func WithDiagnostics(diags *diagnostic.Diagnostics) Option {
	return func(p *TagProvider) error {
		p.diags = diags
		return nil
	}
}

// WithValidateTag changes the struct tag validation rules are read from.
func WithValidateTag(name string) Option {
	return func(p *TagProvider) error {
		if name != "" {
			p.tagName = name
		}
		return nil
	}
}

// WithNameTemplate renders display names of indexed types that declare none,
// e.g. `{{ .PackageName | title }}{{ .Default }}`. An empty result falls back
// to the default name.
func WithNameTemplate(text string) Option {
	return func(p *TagProvider) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		tmpl, err := template.New("naming").Funcs(FuncMap()).Parse(text)
		if err != nil {
			return fmt.Errorf("parse naming template: %w", err)
		}
		p.naming = tmpl
		return nil
	}
}

// FuncMap returns the functions available to naming templates: sprig plus the
// case helpers of pkg/utils.
func FuncMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["pascal"] = utils.ToPascalCase
	funcs["camel"] = utils.ToCamelCase
	funcs["snake"] = utils.ToSnakeCase
	funcs["kebab"] = utils.ToKebabCase
	return funcs
}

// NewTagProvider creates a provider resolving declarations through index.
func NewTagProvider(index types.Index, opts ...Option) (*TagProvider, error) {
	p := &TagProvider{
		index:    index,
		tagName:  "validate",
		logger:   zap.NewNop(),
		hintMemo: map[string]string{},
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// DisplayNameHint returns the //schema:name of t's declaration, or the
// rendered naming template for indexed types.
func (p *TagProvider) DisplayNameHint(t *types.Type) (string, bool) {
	if t == nil || p.index == nil {
		return "", false
	}
	class := p.index.Class(t)
	if class == nil {
		return "", false
	}
	if class.SchemaName != "" && t.Kind() != types.KindParameterized {
		return class.SchemaName, true
	}
	if p.naming == nil {
		return "", false
	}
	key := types.NewKey(t)
	if name, ok := p.hintMemo[key.String()]; ok {
		return name, name != ""
	}
	name, err := p.render(t, key)
	if err != nil {
		p.logger.Warn("naming template failed", zap.String("type", t.String()), zap.Error(err))
		name = ""
	}
	p.hintMemo[key.String()] = name
	return name, name != ""
}

func (p *TagProvider) render(t *types.Type, key types.Key) (string, error) {
	data := NameData{
		Name:        t.LocalName(),
		Package:     t.PackagePath(),
		PackageName: path.Base(t.PackagePath()),
		Default:     key.DefaultName(),
	}
	for _, arg := range t.Args() {
		data.Args = append(data.Args, types.NewKey(arg).DefaultName())
	}
	var buf bytes.Buffer
	if err := p.naming.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// ConstraintsFor parses the validation rules of field, e.g.
// `validate:"required,min=1,max=10"`. Bounds apply to the value of numeric
// fields and to the length of strings, slices and maps.
func (p *TagProvider) ConstraintsFor(field *types.FieldInfo) constraints.Set {
	var set constraints.Set
	if field == nil {
		return set
	}
	tag, ok := field.Tag.Lookup(p.tagName)
	if !ok || tag == "-" {
		return set
	}
	numeric := isNumeric(field.Type)
	for _, rule := range strings.Split(tag, ",") {
		name, value, _ := strings.Cut(strings.TrimSpace(rule), "=")
		p.applyRule(&set, field, strings.ToLower(name), strings.TrimSpace(value), numeric)
	}
	return set
}

func (p *TagProvider) applyRule(set *constraints.Set, field *types.FieldInfo, name, value string, numeric bool) {
	switch name {
	case "required":
		set.NotNull = true
	case "notblank":
		set.NotBlank = true
	case "notempty":
		set.NotEmpty = true
	case "positive":
		set.Positive = true
	case "positiveorzero":
		set.PositiveOrZero = true
	case "negative":
		set.Negative = true
	case "negativeorzero":
		set.NegativeOrZero = true
	case "group":
		set.Groups = append(set.Groups, strings.Split(value, "|")...)
	case "digits":
		integer, fraction, _ := strings.Cut(value, ".")
		i, errI := cast.ToIntE(integer)
		f, errF := cast.ToIntE(orZero(fraction))
		if errI != nil || errF != nil {
			p.invalid(field, name, value)
			return
		}
		set.Digits = &constraints.Digits{Integer: i, Fraction: f}
	case "min", "max", "len", "gt", "gte", "lt", "lte":
		if numeric {
			p.numericRule(set, field, name, value)
		} else {
			p.sizeRule(set, field, name, value)
		}
	}
}

func (p *TagProvider) numericRule(set *constraints.Set, field *types.FieldInfo, name, value string) {
	switch name {
	case "gt":
		set.DecimalMin = &constraints.DecimalBound{Value: value}
	case "gte":
		set.DecimalMin = &constraints.DecimalBound{Value: value, Inclusive: true}
	case "lt":
		set.DecimalMax = &constraints.DecimalBound{Value: value}
	case "lte":
		set.DecimalMax = &constraints.DecimalBound{Value: value, Inclusive: true}
	default:
		n, err := cast.ToInt64E(value)
		if err != nil {
			// Fractional bounds keep their precision as decimals
			p.decimalFallback(set, field, name, value)
			return
		}
		if name == "min" || name == "len" {
			set.Min = &n
		}
		if name == "max" || name == "len" {
			m := n
			set.Max = &m
		}
	}
}

func (p *TagProvider) decimalFallback(set *constraints.Set, field *types.FieldInfo, name, value string) {
	if _, err := cast.ToFloat64E(value); err != nil {
		p.invalid(field, name, value)
		return
	}
	bound := &constraints.DecimalBound{Value: value, Inclusive: true}
	switch name {
	case "min":
		set.DecimalMin = bound
	case "max":
		set.DecimalMax = bound
	default:
		set.DecimalMin = bound
		set.DecimalMax = &constraints.DecimalBound{Value: value, Inclusive: true}
	}
}

func (p *TagProvider) sizeRule(set *constraints.Set, field *types.FieldInfo, name, value string) {
	n, err := cast.ToUint64E(value)
	if err != nil {
		p.invalid(field, name, value)
		return
	}
	if set.Size == nil {
		set.Size = &constraints.Size{}
	}
	switch name {
	case "min", "gte":
		set.Size.Min = &n
	case "max", "lte":
		set.Size.Max = &n
	case "len":
		m := n
		set.Size.Min = &n
		set.Size.Max = &m
	case "gt":
		m := n + 1
		set.Size.Min = &m
	case "lt":
		if n == 0 {
			p.invalid(field, name, value)
			return
		}
		m := n - 1
		set.Size.Max = &m
	}
}

func (p *TagProvider) invalid(field *types.FieldInfo, rule, value string) {
	p.logger.Warn("invalid validation rule",
		zap.String("field", field.Name),
		zap.String("rule", rule),
		zap.String("value", value))
	owner := ""
	if field.Declaring != nil {
		owner = field.Declaring.Name()
	}
	p.diags.AddWarning(diagnostic.CodeInvalidConstraint,
		fmt.Sprintf("invalid value %q for rule %s", value, rule), owner, field.Name)
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

var numericKinds = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true,
}

func isNumeric(t *types.Type) bool {
	for t != nil && typeutil.IsWrapped(t) {
		t = typeutil.Unwrap(t)
	}
	if t == nil {
		return false
	}
	if numericKinds[t.Name()] {
		return true
	}
	a, ok := typeutil.Lookup(t)
	return ok && (a.Type == "integer" || a.Type == "number")
}
