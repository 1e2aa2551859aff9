package generator

import (
	"context"

	"github.com/blimu-dev/schema-gen/pkg/config"
	"github.com/blimu-dev/schema-gen/pkg/openapi"
)

// GenerateSchemas is a convenience function for generating schemas with minimal configuration
func GenerateSchemas(ctx context.Context, opts GenerateSchemasOptions) error {
	service := NewService()

	genOpts := GenerateOptions{
		ConfigPath:   opts.ConfigPath,
		SingleOutput: opts.SingleOutput,
		Fallback: FallbackOptions{
			Packages:     opts.Packages,
			Dir:          opts.Dir,
			Roots:        opts.Roots,
			IncludeTypes: opts.IncludeTypes,
			ExcludeTypes: opts.ExcludeTypes,
			Out:          opts.Out,
			Format:       opts.Format,
			Base:         opts.Base,
			Prune:        opts.Prune,
		},
	}

	return service.Generate(ctx, genOpts)
}

// GenerateSchemasOptions contains options for the convenience GenerateSchemas function
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

// GenerateForTypes is a convenience function for generating the schemas of a few named types
func GenerateForTypes(ctx context.Context, pkg, out string, roots ...string) error {
	return GenerateSchemas(ctx, GenerateSchemasOptions{
		Packages: []string{pkg},
		Roots:    roots,
		Out:      absPath(out),
	})
}

// GenerateFromConfig is a convenience function for generating from a config file
func GenerateFromConfig(ctx context.Context, configPath string, singleOutput ...string) error {
	service := NewService()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	onlyOutput := ""
	if len(singleOutput) > 0 {
		onlyOutput = singleOutput[0]
	}

	return service.GenerateFromConfig(ctx, cfg, onlyOutput)
}

// ValidateSpec validates an OpenAPI specification
func ValidateSpec(specPath string) error {
	return openapi.ValidateDocument(specPath)
}
