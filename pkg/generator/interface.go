package generator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/config"
	"github.com/blimu-dev/schema-gen/pkg/diagnostic"
	"github.com/blimu-dev/schema-gen/pkg/goindex"
	"github.com/blimu-dev/schema-gen/pkg/metadata"
	"github.com/blimu-dev/schema-gen/pkg/openapi"
	"github.com/blimu-dev/schema-gen/pkg/registry"
	"github.com/blimu-dev/schema-gen/pkg/scanner"
	"github.com/blimu-dev/schema-gen/pkg/types"
)

// Writer defines the interface for document writers
type Writer interface {
	// Write encodes the document
	Write(w io.Writer, doc *openapi3.T) error
	// GetType returns the format identifier for this writer (e.g., "yaml")
	GetType() string
}

type formatWriter string

func (f formatWriter) Write(w io.Writer, doc *openapi3.T) error {
	return openapi.WriteDocument(w, doc, string(f))
}

func (f formatWriter) GetType() string { return string(f) }

// Registry manages available writers
type Registry struct {
	writers map[string]Writer
}

// NewRegistry creates a new writer registry
func NewRegistry() *Registry {
	return &Registry{
		writers: make(map[string]Writer),
	}
}

// Register adds a writer to the registry
func (r *Registry) Register(w Writer) {
	r.writers[w.GetType()] = w
}

// Get retrieves a writer by format. An empty format is YAML.
func (r *Registry) Get(format string) (Writer, bool) {
	format = strings.ToLower(format)
	switch format {
	case "", "yml":
		format = openapi.FormatYAML
	}
	w, exists := r.writers[format]
	return w, exists
}

// GetAvailableTypes returns all registered formats, sorted
func (r *Registry) GetAvailableTypes() []string {
	out := make([]string, 0, len(r.writers))
	for t := range r.writers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// GenerateOptions contains options for schema generation
type GenerateOptions struct {
	ConfigPath   string
	SingleOutput string
	Fallback     FallbackOptions
}

// FallbackOptions contains fallback options when no config file is provided
type FallbackOptions struct {
	Packages     []string
	Dir          string
	Roots        []string
	IncludeTypes []string
	ExcludeTypes []string
	Out          string
	Format       string
	Base         string
	Prune        bool
}

// Service provides high-level schema generation functionality
type Service struct {
	registry *Registry
	logger   *zap.Logger
	tracer   trace.TracerProvider
	diags    *diagnostic.Diagnostics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracerProvider sets the provider generation spans are started with.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp
		}
	}
}

// WithWriterRegistry replaces the default writers.
func WithWriterRegistry(r *Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// NewService creates a new generator service with the YAML and JSON writers
func NewService(opts ...Option) *Service {
	registry := NewRegistry()
	registry.Register(formatWriter(openapi.FormatYAML))
	registry.Register(formatWriter(openapi.FormatJSON))
	s := &Service{
		registry: registry,
		logger:   zap.NewNop(),
		tracer:   otel.GetTracerProvider(),
		diags:    &diagnostic.Diagnostics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRegistry returns the writer registry
func (s *Service) GetRegistry() *Registry {
	return s.registry
}

// Diagnostics returns the anomalies recorded by the documents built since the
// last call to GenerateFromConfig.
func (s *Service) Diagnostics() *diagnostic.Diagnostics {
	return s.diags
}

// Generate generates documents based on the provided options
func (s *Service) Generate(ctx context.Context, opts GenerateOptions) error {
	var cfg *config.Config
	var err error

	if opts.ConfigPath == "" {
		// Use fallback options to create a config
		if len(opts.Fallback.Packages) == 0 || opts.Fallback.Out == "" ||
			(len(opts.Fallback.Roots) == 0 && len(opts.Fallback.IncludeTypes) == 0) {
			return fmt.Errorf("either config path or packages, roots and an output path must be provided")
		}
		cfg = &config.Config{
			Packages: opts.Fallback.Packages,
			Dir:      opts.Fallback.Dir,
			Base:     opts.Fallback.Base,
			Outputs: []config.Output{
				{
					Name:              "default",
					Path:              opts.Fallback.Out,
					Format:            opts.Fallback.Format,
					Roots:             opts.Fallback.Roots,
					IncludeTypes:      opts.Fallback.IncludeTypes,
					ExcludeTypes:      opts.Fallback.ExcludeTypes,
					PruneUnreferenced: opts.Fallback.Prune,
				},
			},
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	} else {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
	}

	return s.GenerateFromConfig(ctx, cfg, opts.SingleOutput)
}

// GenerateFromConfig generates documents from a configuration
func (s *Service) GenerateFromConfig(ctx context.Context, cfg *config.Config, onlyOutput string) error {
	ctx, span := s.tracer.Tracer("github.com/blimu-dev/schema-gen/pkg/generator").Start(ctx, "schemagen.generate")
	defer span.End()
	s.diags = &diagnostic.Diagnostics{}

	index, err := s.LoadIndex(ctx, cfg)
	if err != nil {
		return err
	}

	// Generate each output
	for _, output := range cfg.Outputs {
		if onlyOutput != "" && output.Name != onlyOutput {
			continue
		}

		writer, exists := s.registry.Get(output.Format)
		if !exists {
			return fmt.Errorf("unsupported output format: %s", output.Format)
		}

		// Ensure output directory exists before pre-commands
		if err := os.MkdirAll(output.Dir(), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory for output %s: %w", output.Name, err)
		}

		// Execute pre-generation commands if specified
		if err := s.executePreCommands(output); err != nil {
			return fmt.Errorf("pre-generation commands failed for output %s: %w", output.Name, err)
		}

		doc, err := s.BuildDocument(ctx, cfg, index, output)
		if err != nil {
			return fmt.Errorf("output %s: %w", output.Name, err)
		}

		if err := s.writeDocument(writer, doc, output.Path); err != nil {
			return fmt.Errorf("output %s: %w", output.Name, err)
		}
		s.logger.Info("wrote schemas",
			zap.String("output", output.Name),
			zap.String("path", output.Path),
			zap.Int("schemas", len(doc.Components.Schemas)))

		// Execute post-generation commands if specified
		if err := s.executePostGenCommands(output); err != nil {
			return fmt.Errorf("post-generation commands failed for output %s: %w", output.Name, err)
		}
	}

	return nil
}

// LoadIndex loads the Go packages of cfg.
func (s *Service) LoadIndex(ctx context.Context, cfg *config.Config) (*goindex.Index, error) {
	index, err := goindex.Load(ctx, cfg.Packages,
		goindex.WithDir(cfg.Dir),
		goindex.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded packages",
		zap.Strings("packages", index.Packages()),
		zap.Int("types", len(index.Names())))
	return index, nil
}

// BuildDocument generates the schemas of one output into a new document or
// a copy of the configured base document. The anomalies of the run are added
// to Diagnostics.
func (s *Service) BuildDocument(ctx context.Context, cfg *config.Config, index *goindex.Index, output config.Output) (*openapi3.T, error) {
	diags := &diagnostic.Diagnostics{}
	defer s.diags.Merge(diags)

	provider, err := metadata.NewTagProvider(index,
		metadata.WithLogger(s.logger),
		metadata.WithDiagnostics(diags),
		metadata.WithValidateTag(cfg.ValidateTag),
		metadata.WithNameTemplate(cfg.Naming.Template))
	if err != nil {
		return nil, err
	}

	preregistered, err := preregisteredSchemas(index, cfg.Schemas)
	if err != nil {
		return nil, err
	}

	roots, err := selectRoots(index, output)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root types selected")
	}

	doc, err := s.newDocument(cfg)
	if err != nil {
		return nil, err
	}
	components := openapi.EnsureComponents(doc)
	reserved := make(map[string]bool, len(components))
	for name := range components {
		reserved[name] = true
	}

	sc := scanner.New(index,
		scanner.WithLogger(s.logger),
		scanner.WithDiagnostics(diags),
		scanner.WithMetadata(provider),
		scanner.WithWrappers(cfg.Wrappers...),
		scanner.WithPreregistered(preregistered...),
		scanner.WithTracerProvider(s.tracer))
	refs, err := sc.Run(ctx, components, roots...)
	if err != nil {
		return nil, err
	}

	keep := map[string]bool{}
	for i, ref := range refs {
		if ref.Ref != "" {
			keep[openapi.RefName(ref.Ref)] = true
			continue
		}
		// Roots that are not named types, e.g. a named slice, get a component of their own
		name := uniqueName(components, types.NewKey(roots[i]).DefaultName())
		components[name] = ref
		keep[name] = true
	}

	if output.PruneUnreferenced {
		for name := range reserved {
			keep[name] = true
		}
		removed := pruneUnreferenced(components, keep)
		s.logger.Debug("pruned unreferenced schemas", zap.Strings("schemas", removed))
	}

	if err := openapi.Validate(ctx, doc); err != nil {
		return nil, fmt.Errorf("generated document is invalid: %w", err)
	}
	for _, d := range diags.All() {
		s.logger.Debug("diagnostic", zap.String("diagnostic", d.String()))
	}
	return doc, nil
}

func (s *Service) newDocument(cfg *config.Config) (*openapi3.T, error) {
	if cfg.Base == "" {
		return openapi.NewDocument(cfg.Title, cfg.Version, cfg.OpenAPI), nil
	}
	doc, err := openapi.LoadDocument(cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("load base document: %w", err)
	}
	return doc, nil
}

func (s *Service) writeDocument(writer Writer, doc *openapi3.T, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writer.Write(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func preregisteredSchemas(index *goindex.Index, schemas []config.Schema) ([]registry.Preregistered, error) {
	out := make([]registry.Preregistered, 0, len(schemas))
	for i := range schemas {
		class, err := index.Lookup(schemas[i].Type)
		if err != nil {
			return nil, fmt.Errorf("schemas[%d]: %w", i, err)
		}
		source, err := schemas[i].Source()
		if err != nil {
			return nil, fmt.Errorf("schemas[%d]: %w", i, err)
		}
		out = append(out, registry.Preregistered{
			Type:   class.Type,
			Name:   schemas[i].Name,
			Source: source,
		})
	}
	return out, nil
}

func uniqueName(components openapi3.Schemas, base string) string {
	name := base
	for i := 1; components[name] != nil; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

// executePreCommands executes the pre-generation command for an output
func (s *Service) executePreCommands(output config.Output) error {
	command := output.GetPreCommand()
	if len(command) == 0 {
		return nil // No command to execute
	}

	return s.executeCommand(command, output.Dir(), "pre-command")
}

// executePostGenCommands executes the post-generation command for an output
func (s *Service) executePostGenCommands(output config.Output) error {
	command := output.GetPostCommand()
	if len(command) == 0 {
		return nil // No command to execute
	}

	return s.executeCommand(command, output.Dir(), "post-command")
}

// executeCommand executes a single command in Docker Compose array format
func (s *Service) executeCommand(command []string, workDir, commandLabel string) error {
	if len(command) == 0 {
		return nil // Skip empty commands
	}

	// Create command with first element as executable and rest as arguments
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = workDir      // Execute in the specified directory
	cmd.Stdout = os.Stdout // Forward stdout to see command output
	cmd.Stderr = os.Stderr // Forward stderr to see errors

	cmdDescription := strings.Join(command, " ")
	s.logger.Debug("running command", zap.String("label", commandLabel), zap.String("command", cmdDescription))

	// Execute the command
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s (%s) failed: %w", commandLabel, cmdDescription, err)
	}

	return nil
}

// absPath returns path made absolute, or path itself when that fails.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
