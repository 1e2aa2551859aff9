package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/blimu-dev/schema-gen/pkg/config"
	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/openapi"
)

func TestBuildDocument(t *testing.T) {
	index := loadShop(t)
	service := NewService()
	cfg := &config.Config{Packages: []string{"./..."}, Dir: shopDir, Title: "Shop"}

	doc, err := service.BuildDocument(context.Background(), cfg, index, config.Output{
		Name:  "api",
		Roots: []string{"Order"},
	})
	if err != nil {
		t.Fatalf("BuildDocument() error = %v", err)
	}
	if doc.Info.Title != "Shop" {
		t.Errorf("Info.Title = %q, expected %q", doc.Info.Title, "Shop")
	}

	schemas := doc.Components.Schemas
	order := schemas["PurchaseOrder"]
	if order == nil || order.Value == nil {
		t.Fatalf("expected a PurchaseOrder component, got %v", componentNames(schemas))
	}
	if order.Value.Description != "Order is a customer order." {
		t.Errorf("PurchaseOrder description = %q", order.Value.Description)
	}
	if _, ok := order.Value.Properties["updatedBy"]; !ok {
		t.Error("expected the embedded Audit fields to be promoted")
	}
	if lines := order.Value.Properties["lines"]; lines == nil || lines.Value.MinItems != 1 {
		t.Errorf("lines = %+v, expected minItems 1", lines)
	}

	parent := order.Value.Properties["parent"]
	if parent == nil || parent.Value == nil || len(parent.Value.AllOf) != 1 {
		t.Fatalf("parent = %+v, expected an allOf wrapper", parent)
	}
	if parent.Value.AllOf[0].Ref != "#/components/schemas/PurchaseOrder" {
		t.Errorf("parent ref = %q", parent.Value.AllOf[0].Ref)
	}
	if !strings.HasPrefix(parent.Value.Description, "Cyclic reference to") {
		t.Errorf("parent description = %q, expected the cycle note", parent.Value.Description)
	}

	customer := schemas["Customer"]
	if customer == nil || customer.Value == nil {
		t.Fatalf("expected a Customer component, got %v", componentNames(schemas))
	}
	if _, ok := customer.Value.Properties["password"]; ok {
		t.Error("password should be ignored")
	}
	if _, ok := customer.Value.Properties["name"]; !ok {
		t.Error("expected the name property")
	}

	status := schemas["Status"]
	if status == nil || status.Value == nil {
		t.Fatalf("expected a Status component, got %v", componentNames(schemas))
	}
	if len(status.Value.Enum) != 2 {
		t.Errorf("Status enum = %v, expected 2 values", status.Value.Enum)
	}

	if _, ok := schemas["Catalog"]; ok {
		t.Error("types no root reaches should not be generated")
	}
}

func TestDiagnosticsPerDocument(t *testing.T) {
	index := loadShop(t)
	core, logs := observer.New(zapcore.DebugLevel)
	service := NewService(WithLogger(zap.New(core)))
	cfg := &config.Config{Packages: []string{"./..."}, Dir: shopDir}
	output := config.Output{Name: "api", Roots: []string{"Order"}}

	for i := 0; i < 2; i++ {
		if _, err := service.BuildDocument(context.Background(), cfg, index, output); err != nil {
			t.Fatalf("BuildDocument() error = %v", err)
		}
	}

	cycles := service.Diagnostics().ByCode(diagnostic.CodeCycleDetected)
	if len(cycles) == 0 || len(cycles)%2 != 0 {
		t.Fatalf("expected each build to add the same cycle diagnostics, got %d", len(cycles))
	}
	logged := logs.FilterMessage("diagnostic").Len()
	if want := len(service.Diagnostics().All()); logged != want {
		t.Errorf("logged %d diagnostics, expected each of the %d once", logged, want)
	}
}

func TestGenerateResetsDiagnostics(t *testing.T) {
	service := NewService()
	opts := GenerateOptions{
		Fallback: FallbackOptions{
			Packages: []string{"./..."},
			Dir:      shopDir,
			Roots:    []string{"Order"},
			Out:      filepath.Join(t.TempDir(), "schemas.yaml"),
		},
	}

	if err := service.Generate(context.Background(), opts); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	first := len(service.Diagnostics().All())
	if first == 0 {
		t.Fatal("expected the cyclic Order to be reported")
	}
	if err := service.Generate(context.Background(), opts); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := len(service.Diagnostics().All()); got != first {
		t.Errorf("Diagnostics() after a second Generate = %d entries, expected %d", got, first)
	}
}

func TestBuildDocumentNeedsRoots(t *testing.T) {
	index := loadShop(t)
	service := NewService()
	cfg := &config.Config{Packages: []string{"./..."}, Dir: shopDir}

	_, err := service.BuildDocument(context.Background(), cfg, index, config.Output{
		Name:         "api",
		IncludeTypes: []string{"^nothing$"},
	})
	if err == nil || !strings.Contains(err.Error(), "no root types") {
		t.Errorf("BuildDocument() error = %v, expected no root types", err)
	}
}

func TestGenerateWithFallbackOptions(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	baseDoc := `openapi: 3.0.3
info:
  title: Base
  version: 1.0.0
paths: {}
components:
  schemas:
    Orphan:
      type: string
`
	if err := os.WriteFile(base, []byte(baseDoc), 0o644); err != nil {
		t.Fatalf("write base: %v", err)
	}
	out := filepath.Join(dir, "out", "schemas.json")

	service := NewService()
	err := service.Generate(context.Background(), GenerateOptions{
		Fallback: FallbackOptions{
			Packages: []string{"./..."},
			Dir:      shopDir,
			Roots:    []string{"Line"},
			Out:      out,
			Format:   "json",
			Base:     base,
			Prune:    true,
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	doc, err := openapi.LoadDocument(out)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	if doc.Info.Title != "Base" {
		t.Errorf("Info.Title = %q, expected the base document title", doc.Info.Title)
	}
	for _, name := range []string{"Line", "Orphan"} {
		if doc.Components.Schemas[name] == nil {
			t.Errorf("expected component %s, got %v", name, componentNames(doc.Components.Schemas))
		}
	}
}

func TestGenerateRequiresOptions(t *testing.T) {
	service := NewService()
	err := service.Generate(context.Background(), GenerateOptions{
		Fallback: FallbackOptions{Packages: []string{"./..."}},
	})
	if err == nil {
		t.Fatal("expected an error without roots and output")
	}
}

func TestRegistryFormats(t *testing.T) {
	registry := NewService().GetRegistry()
	if got := strings.Join(registry.GetAvailableTypes(), ","); got != "json,yaml" {
		t.Errorf("GetAvailableTypes() = %q, expected %q", got, "json,yaml")
	}
	for _, format := range []string{"", "yml", "YAML", "json"} {
		if _, ok := registry.Get(format); !ok {
			t.Errorf("Get(%q) found no writer", format)
		}
	}
	if _, ok := registry.Get("xml"); ok {
		t.Error("Get(\"xml\") should find no writer")
	}
}

func componentNames(schemas openapi3.Schemas) []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	return names
}
