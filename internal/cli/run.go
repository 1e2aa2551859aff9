package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/blimu-dev/schema-gen/pkg/config"
	"github.com/blimu-dev/schema-gen/pkg/generator"
	"github.com/blimu-dev/schema-gen/pkg/openapi"
)

type FallbackParams struct {
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

type RunGenerateParams struct {
	ConfigPath   string
	SingleOutput string
	Fallback     FallbackParams
}

func RunValidate(input string) error {
	return openapi.ValidateDocument(input)
}

func RunGenerate(ctx context.Context, logger *zap.Logger, p RunGenerateParams) error {
	service := generator.NewService(generator.WithLogger(logger))
	err := service.Generate(ctx, generator.GenerateOptions{
		ConfigPath:   p.ConfigPath,
		SingleOutput: p.SingleOutput,
		Fallback: generator.FallbackOptions{
			Packages:     p.Fallback.Packages,
			Dir:          p.Fallback.Dir,
			Roots:        p.Fallback.Roots,
			IncludeTypes: p.Fallback.IncludeTypes,
			ExcludeTypes: p.Fallback.ExcludeTypes,
			Out:          absPath(p.Fallback.Out),
			Format:       p.Fallback.Format,
			Base:         p.Fallback.Base,
			Prune:        p.Fallback.Prune,
		},
	})
	for _, d := range service.Diagnostics().Warnings {
		logger.Warn(d.Message,
			zap.String("code", d.Code),
			zap.String("type", d.Type),
			zap.String("field", d.Field))
	}
	return err
}

type RunInspectParams struct {
	Packages []string
	Dir      string
	// Types limits the dump to the named types; empty dumps every indexed type
	Types []string
}

// RunInspect writes the index descriptors of the requested types to w.
func RunInspect(ctx context.Context, logger *zap.Logger, w io.Writer, p RunInspectParams) error {
	if len(p.Packages) == 0 {
		return errors.New("at least one package pattern must be provided")
	}
	cfg := &config.Config{Packages: p.Packages, Dir: p.Dir}
	if err := cfg.Validate(); err != nil {
		return err
	}
	index, err := generator.NewService(generator.WithLogger(logger)).LoadIndex(ctx, cfg)
	if err != nil {
		return err
	}

	names := p.Types
	if len(names) == 0 {
		names = index.Names()
	}
	sort.Strings(names)

	dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true, MaxDepth: 4}
	for _, name := range names {
		class, err := index.Lookup(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "# %s\n", class.Name()); err != nil {
			return err
		}
		dumper.Fdump(w, class)
	}
	return nil
}
