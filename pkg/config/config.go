package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// DefaultOpenAPIVersion is written when no target version is configured.
const DefaultOpenAPIVersion = "3.0.3"

var (
	// ErrMissingPackages is returned when no package pattern is configured
	ErrMissingPackages = errors.New("config: packages is required")
	// ErrUnsupportedVersion is returned for target documents outside OpenAPI 3.0
	ErrUnsupportedVersion = errors.New("config: unsupported openapi version")

	supportedVersions = mustConstraint("~3.0")
)

// Config represents the complete configuration for schema generation
type Config struct {
	// Packages are the Go package patterns types are loaded from, e.g. ["./api/..."]
	Packages []string `yaml:"packages"`
	// Dir is the directory package patterns are resolved in (defaults to the config file directory)
	Dir string `yaml:"dir"`
	// Base is an optional OpenAPI document (file or URL) the schemas are added to.
	// Its component names are reserved.
	Base string `yaml:"base"`
	// OpenAPI is the version of a document created from scratch
	OpenAPI string `yaml:"openapi"`
	// Title and Version fill the info object of a document created from scratch
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
	// Naming configures display names of generated schemas
	Naming Naming `yaml:"naming"`
	// Wrappers are extra generic single-value container types, e.g. "example.com/opt.Option"
	Wrappers []string `yaml:"wrappers"`
	// ValidateTag is the struct tag validation rules are read from (defaults to "validate")
	ValidateTag string `yaml:"validateTag"`
	// Schemas are supplied out of band instead of being generated
	Schemas []Schema `yaml:"schemas"`
	Outputs []Output `yaml:"outputs"`
}

// Naming configures display names.
type Naming struct {
	// Template renders names of types without a //schema:name directive,
	// e.g. "{{ .PackageName | title }}{{ .Default }}"
	Template string `yaml:"template"`
}

// Schema is an out-of-band schema for a type.
type Schema struct {
	// Type is the type name, qualified or unique ("shop.Money", "Money")
	Type string `yaml:"type"`
	// Name overrides the display name
	Name string `yaml:"name"`
	// Schema is the inline schema body
	Schema yaml.Node `yaml:"schema"`
}

// Source returns the inline schema body as YAML.
func (s *Schema) Source() ([]byte, error) {
	if s.Schema.Kind == 0 {
		return nil, fmt.Errorf("schema for %s is empty", s.Type)
	}
	return yaml.Marshal(&s.Schema)
}

// Output represents configuration for a single generated document
type Output struct {
	Name string `yaml:"name"`
	// Path is the file the document is written to
	Path string `yaml:"path"`
	// Format is "yaml" (default) or "json"
	Format string `yaml:"format"`
	// Roots are the type names generation starts from
	Roots []string `yaml:"roots"`
	// IncludeTypes and ExcludeTypes are regular expressions matched against
	// qualified type names. Matching types are added to the roots.
	IncludeTypes []string `yaml:"includeTypes"`
	ExcludeTypes []string `yaml:"excludeTypes"`
	// PruneUnreferenced drops generated schemas no root reaches
	PruneUnreferenced bool `yaml:"pruneUnreferenced"`
	// PreCommand is an optional command to run before the document is written.
	// Uses Docker Compose array format: ["mkdir", "-p", "dist"]
	// The command will be executed in the output directory.
	PreCommand []string `yaml:"preCommand"`
	// PostCommand is an optional command to run after the document is written.
	// Uses Docker Compose array format: ["npx", "prettier", "--write", "."]
	// The command will be executed in the output directory.
	PostCommand []string `yaml:"postCommand"`
}

// GetPreCommand returns the pre-generation command to execute.
func (o *Output) GetPreCommand() []string {
	return o.PreCommand
}

// GetPostCommand returns the post-generation command to execute.
func (o *Output) GetPostCommand() []string {
	return o.PostCommand
}

// Dir returns the directory the output is written to.
func (o *Output) Dir() string {
	return filepath.Dir(o.Path)
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		cfg.Dir = filepath.Dir(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields, applies defaults and absolutizes paths.
func (c *Config) Validate() error {
	if len(c.Packages) == 0 {
		return ErrMissingPackages
	}
	if c.OpenAPI == "" {
		c.OpenAPI = DefaultOpenAPIVersion
	}
	v, err := semver.NewVersion(c.OpenAPI)
	if err != nil {
		return fmt.Errorf("config.openapi %q: %w", c.OpenAPI, err)
	}
	if !supportedVersions.Check(v) {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, c.OpenAPI)
	}
	for i := range c.Schemas {
		if c.Schemas[i].Type == "" {
			return fmt.Errorf("schemas[%d] missing required field type", i)
		}
	}
	for i := range c.Outputs {
		o := &c.Outputs[i]
		if o.Name == "" || o.Path == "" {
			return fmt.Errorf("outputs[%d] missing required fields (name, path)", i)
		}
		switch strings.ToLower(o.Format) {
		case "", "yaml", "yml", "json":
		default:
			return fmt.Errorf("outputs[%d] unsupported format %q", i, o.Format)
		}
		if len(o.Roots) == 0 && len(o.IncludeTypes) == 0 {
			return fmt.Errorf("outputs[%d] needs roots or includeTypes", i)
		}
		if !filepath.IsAbs(o.Path) {
			abs, _ := filepath.Abs(o.Path)
			o.Path = abs
		}
	}
	if c.Dir != "" && !filepath.IsAbs(c.Dir) {
		abs, _ := filepath.Abs(c.Dir)
		c.Dir = abs
	}
	// Do not absolutize when base is an HTTP(S) URL
	if c.Base == "" {
		return nil
	}
	if u, err := url.Parse(c.Base); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		// keep as-is
	} else if !filepath.IsAbs(c.Base) {
		abs, _ := filepath.Abs(c.Base)
		c.Base = abs
	}
	return nil
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}
