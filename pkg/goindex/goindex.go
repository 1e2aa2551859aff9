// Package goindex builds the type index of the schema engine from Go packages.
//
// Exported struct types, named slices and maps, and named basic types with
// declared constants (enums) become classes. Other named types are replaced by
// what they encode as: a named basic type without constants is its basic type,
// a named array or pointer is its underlying type.
package goindex

import (
	"context"
	"fmt"
	"go/ast"
	"go/constant"
	gotypes "go/types"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/blimu-dev/schema-gen/pkg/types"
	"github.com/blimu-dev/schema-gen/pkg/typeutil"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Directive prefixes read from type doc comments.
const (
	DirectiveName             = "//schema:name"
	DirectiveIgnore           = "//schema:ignore"
	DirectiveIgnoreProperties = "//schema:ignoreProperties"
)

// Index is a types.Index over loaded Go packages.
type Index struct {
	classes  types.MapIndex
	packages []string
	logger   *zap.Logger
	dir      string
	env      []string
	enums    map[*gotypes.TypeName]bool
}

// Option configures loading.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Index) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithDir sets the directory package patterns are resolved in.
func WithDir(dir string) Option {
	return func(i *Index) { i.dir = dir }
}

// WithEnv sets the environment of the underlying go command.
func WithEnv(env []string) Option {
	return func(i *Index) { i.env = env }
}

// Load loads the packages matching patterns and indexes their types.
func Load(ctx context.Context, patterns []string, opts ...Option) (*Index, error) {
	idx := &Index{
		classes: types.MapIndex{},
		logger:  zap.NewNop(),
		enums:   map[*gotypes.TypeName]bool{},
	}
	for _, opt := range opts {
		opt(idx)
	}

	cfg := &packages.Config{
		Mode:    LoadMode,
		Context: ctx,
		Dir:     idx.dir,
		Env:     idx.env,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs)
	}

	// Enums must be known before any field is converted.
	for _, pkg := range pkgs {
		idx.collectEnums(pkg)
	}
	for _, pkg := range pkgs {
		if err := idx.processPackage(pkg); err != nil {
			return nil, fmt.Errorf("failed to process package %s: %w", pkg.PkgPath, err)
		}
	}
	return idx, nil
}

// ContainsClass implements types.Index.
func (i *Index) ContainsClass(t *types.Type) bool { return i.classes.ContainsClass(t) }

// Class implements types.Index.
func (i *Index) Class(t *types.Type) *types.ClassInfo { return i.classes.Class(t) }

// Classes returns the indexed declarations.
func (i *Index) Classes() types.MapIndex { return i.classes }

// Packages returns the import paths of the loaded packages.
func (i *Index) Packages() []string { return i.packages }

// Names returns the qualified names of the indexed classes, sorted.
func (i *Index) Names() []string { return i.classes.Names() }

// Lookup finds a class by qualified name ("example.com/shop.Order"), by
// package name and local name ("shop.Order") or by a unique local name ("Order").
func (i *Index) Lookup(name string) (*types.ClassInfo, error) {
	if c, ok := i.classes[name]; ok {
		return c, nil
	}
	var matches []*types.ClassInfo
	for _, qualified := range i.classes.Names() {
		c := i.classes[qualified]
		local := c.Type.LocalName()
		pkg := c.Type.PackagePath()
		short := pkg[strings.LastIndex(pkg, "/")+1:] + "." + local
		if name == local || name == short {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("type %s not found in loaded packages", name)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name())
		}
		return nil, fmt.Errorf("type %s is ambiguous: %s", name, strings.Join(names, ", "))
	}
}

func (i *Index) collectEnums(pkg *packages.Package) {
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*gotypes.Const)
		if !ok {
			continue
		}
		named, ok := c.Type().(*gotypes.Named)
		if !ok || named.Obj().Pkg() != pkg.Types {
			continue
		}
		if _, ok := named.Underlying().(*gotypes.Basic); ok {
			i.enums[named.Obj()] = true
		}
	}
}

// processPackage extracts the declarations of a loaded package.
func (i *Index) processPackage(pkg *packages.Package) error {
	i.packages = append(i.packages, pkg.PkgPath)
	docs := collectDocs(pkg)

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		typeName, ok := scope.Lookup(name).(*gotypes.TypeName)
		if !ok || !typeName.Exported() || typeName.IsAlias() {
			continue
		}
		named, ok := typeName.Type().(*gotypes.Named)
		if !ok {
			continue
		}
		class := i.declare(pkg, named, docs[name])
		if class == nil {
			continue
		}
		i.classes.Add(class)
		i.logger.Debug("indexed type", zap.String("type", class.Name()))
	}
	return nil
}

func (i *Index) declare(pkg *packages.Package, named *gotypes.Named, doc *typeDoc) *types.ClassInfo {
	obj := named.Obj()
	qualified := qualifiedName(obj)

	class := &types.ClassInfo{Type: types.Class(qualified)}
	if params := named.TypeParams(); params.Len() > 0 {
		vars := make([]*types.Type, params.Len())
		for p := 0; p < params.Len(); p++ {
			vars[p] = types.TypeVariable(params.At(p).Obj().Name())
		}
		class.Type = types.Parameterized(qualified, vars...)
	}
	if doc != nil {
		class.Doc = doc.text
		class.SchemaName = doc.name
		class.Ignored = doc.ignored
		class.IgnoredProperties = doc.ignoredProperties
	}

	switch u := named.Underlying().(type) {
	case *gotypes.Struct:
		for f := 0; f < u.NumFields(); f++ {
			v := u.Field(f)
			field := types.FieldInfo{
				Name:     v.Name(),
				Type:     i.convert(v.Type()),
				Tag:      reflect.StructTag(u.Tag(f)),
				Embedded: v.Embedded(),
				Exported: v.Exported(),
			}
			if doc != nil {
				field.Doc = doc.fields[v.Name()]
			}
			class.Fields = append(class.Fields, field)
		}
	case *gotypes.Slice, *gotypes.Map:
		class.Supertypes = []*types.Type{i.convert(u)}
	case *gotypes.Basic:
		if !i.enums[obj] {
			return nil
		}
		class.EnumBase = types.Primitive(u.Name())
		class.EnumValues = enumValues(pkg, named)
	default:
		return nil
	}
	return class
}

// enumValues returns the constant values of named in declaration order.
func enumValues(pkg *packages.Package, named *gotypes.Named) []any {
	scope := pkg.Types.Scope()
	var consts []*gotypes.Const
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*gotypes.Const)
		if ok && gotypes.Identical(c.Type(), named) {
			consts = append(consts, c)
		}
	}
	sort.SliceStable(consts, func(a, b int) bool { return consts[a].Pos() < consts[b].Pos() })

	values := make([]any, 0, len(consts))
	seen := map[string]bool{}
	for _, c := range consts {
		key := c.Val().ExactString()
		if seen[key] {
			continue
		}
		seen[key] = true
		values = append(values, constantValue(c.Val()))
	}
	return values
}

func constantValue(v constant.Value) any {
	switch v.Kind() {
	case constant.String:
		return constant.StringVal(v)
	case constant.Bool:
		return constant.BoolVal(v)
	case constant.Int:
		if n, ok := constant.Int64Val(v); ok {
			return n
		}
		return v.ExactString()
	case constant.Float:
		f, _ := constant.Float64Val(v)
		return f
	default:
		return v.ExactString()
	}
}

// convert maps a go/types type onto a type descriptor.
func (i *Index) convert(t gotypes.Type) *types.Type {
	switch tt := gotypes.Unalias(t).(type) {
	case *gotypes.Basic:
		if tt.Kind() == gotypes.UnsafePointer {
			return types.AnyType
		}
		return types.Primitive(tt.Name())
	case *gotypes.Pointer:
		return types.PointerTo(i.convert(tt.Elem()))
	case *gotypes.Slice:
		if isByte(tt.Elem()) {
			return types.Primitive(types.BytesName)
		}
		return types.SliceOf(i.convert(tt.Elem()))
	case *gotypes.Array:
		return types.ArrayOf(i.convert(tt.Elem()), 1)
	case *gotypes.Map:
		if isEmptyStruct(tt.Elem()) {
			return types.SetOf(i.convert(tt.Key()))
		}
		return types.MapOf(i.convert(tt.Key()), i.convert(tt.Elem()))
	case *gotypes.TypeParam:
		return types.TypeVariable(tt.Obj().Name())
	case *gotypes.Struct:
		return types.ObjectType
	case *gotypes.Named:
		return i.convertNamed(tt)
	default:
		// Interfaces, functions and channels carry no static shape
		return types.AnyType
	}
}

func (i *Index) convertNamed(named *gotypes.Named) *types.Type {
	obj := named.Obj()
	if obj.Pkg() == nil {
		// error and comparable
		return types.AnyType
	}
	qualified := qualifiedName(obj)
	if _, ok := typeutil.Lookup(types.Class(qualified)); ok {
		return types.Class(qualified)
	}
	if args := named.TypeArgs(); args.Len() > 0 {
		converted := make([]*types.Type, args.Len())
		for a := 0; a < args.Len(); a++ {
			converted[a] = i.convert(args.At(a))
		}
		if qualified == "iter.Seq" {
			return types.Parameterized(types.IterableName, converted...)
		}
		return types.Parameterized(qualified, converted...)
	}
	switch u := named.Underlying().(type) {
	case *gotypes.Basic:
		if !i.enums[obj] {
			return i.convert(u)
		}
	case *gotypes.Array, *gotypes.Pointer:
		return i.convert(u)
	case *gotypes.Interface, *gotypes.Signature, *gotypes.Chan:
		return types.AnyType
	}
	return types.Class(qualified)
}

func qualifiedName(obj *gotypes.TypeName) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func isByte(t gotypes.Type) bool {
	b, ok := gotypes.Unalias(t).(*gotypes.Basic)
	return ok && b.Kind() == gotypes.Byte
}

func isEmptyStruct(t gotypes.Type) bool {
	s, ok := gotypes.Unalias(t).(*gotypes.Struct)
	return ok && s.NumFields() == 0
}

type typeDoc struct {
	text              string
	name              string
	ignored           bool
	ignoredProperties []string
	fields            map[string]string
}

// collectDocs reads type and field doc comments and schema directives.
func collectDocs(pkg *packages.Package) map[string]*typeDoc {
	docs := map[string]*typeDoc{}
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range gen.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				group := ts.Doc
				if group == nil && len(gen.Specs) == 1 {
					group = gen.Doc
				}
				doc := parseDoc(group)
				if st, ok := ts.Type.(*ast.StructType); ok {
					doc.fields = fieldDocs(st)
				}
				docs[ts.Name.Name] = doc
			}
		}
	}
	return docs
}

func parseDoc(group *ast.CommentGroup) *typeDoc {
	doc := &typeDoc{}
	if group == nil {
		return doc
	}
	doc.text = strings.TrimSpace(group.Text())
	for _, c := range group.List {
		switch {
		case strings.HasPrefix(c.Text, DirectiveIgnoreProperties):
			for _, p := range strings.Split(strings.TrimPrefix(c.Text, DirectiveIgnoreProperties), ",") {
				if p = strings.TrimSpace(p); p != "" {
					doc.ignoredProperties = append(doc.ignoredProperties, p)
				}
			}
		case strings.HasPrefix(c.Text, DirectiveIgnore):
			doc.ignored = true
		case strings.HasPrefix(c.Text, DirectiveName):
			doc.name = strings.TrimSpace(strings.TrimPrefix(c.Text, DirectiveName))
		}
	}
	return doc
}

func fieldDocs(st *ast.StructType) map[string]string {
	out := map[string]string{}
	if st.Fields == nil {
		return out
	}
	for _, f := range st.Fields.List {
		group := f.Doc
		if group == nil {
			group = f.Comment
		}
		if group == nil {
			continue
		}
		text := strings.TrimSpace(group.Text())
		for _, n := range f.Names {
			out[n.Name] = text
		}
		if len(f.Names) == 0 {
			out[embeddedName(f.Type)] = text
		}
	}
	return out
}

func embeddedName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return embeddedName(e.X)
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(e.X)
	case *ast.IndexListExpr:
		return embeddedName(e.X)
	case *ast.Ident:
		return e.Name
	default:
		return ""
	}
}
