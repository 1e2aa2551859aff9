package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cli "github.com/blimu-dev/schema-gen/internal/cli"
)

func main() {
	var verbose bool
	var logger *zap.Logger

	root := &cobra.Command{
		Use:           "schema-gen",
		Short:         "Generate OpenAPI schemas from Go types",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = cli.NewLogger(verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level in a human-readable format")

	logs := func() *zap.Logger { return logger }
	root.AddCommand(newGenerateCmd(logs))
	root.AddCommand(newValidateCmd())
	root.AddCommand(newInspectCmd(logs))

	if err := root.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func newGenerateCmd(logger func() *zap.Logger) *cobra.Command {
	var configPath string
	var singleOutput string
	var fallback cli.FallbackParams

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate component schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunGenerate(cmd.Context(), logger(), cli.RunGenerateParams{
				ConfigPath:   configPath,
				SingleOutput: singleOutput,
				Fallback:     fallback,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to schemagen.yaml config")
	cmd.Flags().StringVar(&singleOutput, "output", "", "Generate only the named output from config")
	// Fallback single-output flags
	cmd.Flags().StringArrayVarP(&fallback.Packages, "package", "p", nil, "Go package pattern to load")
	cmd.Flags().StringVar(&fallback.Dir, "dir", "", "Directory package patterns are resolved in")
	cmd.Flags().StringArrayVar(&fallback.Roots, "root", nil, "Type to generate schemas from")
	cmd.Flags().StringArrayVar(&fallback.IncludeTypes, "include-types", nil, "Regex patterns for types to include")
	cmd.Flags().StringArrayVar(&fallback.ExcludeTypes, "exclude-types", nil, "Regex patterns for types to exclude")
	cmd.Flags().StringVar(&fallback.Out, "out", "", "Output file")
	cmd.Flags().StringVar(&fallback.Format, "format", "", "Output format (yaml or json)")
	cmd.Flags().StringVar(&fallback.Base, "base", "", "OpenAPI document the schemas are added to")
	cmd.Flags().BoolVar(&fallback.Prune, "prune", false, "Drop schemas no root reaches")

	return cmd
}

func newValidateCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an OpenAPI document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunValidate(input)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "OpenAPI document (yaml/json)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newInspectCmd(logger func() *zap.Logger) *cobra.Command {
	var params cli.RunInspectParams
	cmd := &cobra.Command{
		Use:   "inspect [type...]",
		Short: "Dump the indexed descriptors of Go types",
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Types = args
			return cli.RunInspect(cmd.Context(), logger(), cmd.OutOrStdout(), params)
		},
	}
	cmd.Flags().StringArrayVarP(&params.Packages, "package", "p", nil, "Go package pattern to load")
	cmd.Flags().StringVar(&params.Dir, "dir", "", "Directory package patterns are resolved in")
	_ = cmd.MarkFlagRequired("package")
	return cmd
}
