// Package schemagen derives OpenAPI 3.0 component schemas from Go types.
//
// Named types become components referenced with $ref, while anonymous and
// primitive types are inlined. Recursive types are handled by referencing the
// component that is still being built.
//
// Quick Start:
//
//	import "github.com/blimu-dev/schema-gen"
//
//	// Write the schemas of Order and everything it references
//	err := schemagen.GenerateForTypes(
//		"./internal/shop",
//		"./openapi/schemas.yaml",
//		"Order",
//	)
//
// For more advanced usage, see the generator and scanner packages.
package schemagen

import (
	"context"

	"github.com/blimu-dev/schema-gen/pkg/generator"
)

// GenerateForTypes writes the schemas of the named types of a package, and of
// every type they reference, to out.
//
// Parameters:
//   - pkg: Go package pattern, resolved in the working directory
//   - out: Output file, written as YAML
//   - roots: Type names, either local ("Order") or qualified ("example.com/shop.Order")
//
// Example:
//
//	err := schemagen.GenerateForTypes("./api", "./schemas.yaml", "Order", "Customer")
func GenerateForTypes(pkg, out string, roots ...string) error {
	return generator.GenerateForTypes(context.Background(), pkg, out, roots...)
}

// GenerateSchemas generates schemas with full configuration options.
//
// Example:
//
//	err := schemagen.GenerateSchemas(schemagen.GenerateSchemasOptions{
//		Packages:     []string{"./..."},
//		IncludeTypes: []string{"^example\\.com/shop\\."},
//		ExcludeTypes: []string{"Internal$"},
//		Out:          "./schemas.json",
//		Format:       "json",
//	})
func GenerateSchemas(opts GenerateSchemasOptions) error {
	return generator.GenerateSchemas(context.Background(), generator.GenerateSchemasOptions{
		ConfigPath:   opts.ConfigPath,
		SingleOutput: opts.SingleOutput,
		Packages:     opts.Packages,
		Dir:          opts.Dir,
		Roots:        opts.Roots,
		IncludeTypes: opts.IncludeTypes,
		ExcludeTypes: opts.ExcludeTypes,
		Out:          opts.Out,
		Format:       opts.Format,
		Base:         opts.Base,
		Prune:        opts.Prune,
	})
}

// GenerateFromConfig generates schemas from a YAML configuration file.
// Optionally, you can specify a single output name to generate only that output.
//
// Example:
//
//	// Generate all outputs from config
//	err := schemagen.GenerateFromConfig("./schemagen.yaml")
//
//	// Generate only a specific output
//	err := schemagen.GenerateFromConfig("./schemagen.yaml", "public")
func GenerateFromConfig(configPath string, singleOutput ...string) error {
	return generator.GenerateFromConfig(context.Background(), configPath, singleOutput...)
}

// ValidateSpec validates an OpenAPI document file, e.g. one produced by a previous run.
func ValidateSpec(specPath string) error {
	return generator.ValidateSpec(specPath)
}

// GenerateSchemasOptions contains options for schema generation
type GenerateSchemasOptions struct {
	// ConfigPath is the path to the configuration file (optional)
	ConfigPath string

	// SingleOutput generates only the named output from config (optional)
	SingleOutput string

	// Fallback options when no config file is provided
	Packages     []string // Go package patterns
	Dir          string   // Directory patterns are resolved in
	Roots        []string // Type names to start from
	IncludeTypes []string // Regex patterns for types to include
	ExcludeTypes []string // Regex patterns for types to exclude
	Out          string   // Output file
	Format       string   // "yaml" or "json"
	Base         string   // OpenAPI document the schemas are added to
	Prune        bool     // Drop schemas no root reaches
}
