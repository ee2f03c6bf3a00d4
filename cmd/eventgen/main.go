// Package main provides the eventgen CLI tool for generating a typed event
// catalog from annotated Avro schemas.
//
// Usage:
//
//	eventgen generate --schemas ./schemas --output ./gen/catalog --package catalog
//	eventgen validate --schemas ./schemas
package main

import (
	"fmt"
	"os"

	"github.com/Sokol111/ecommerce-eventbus/internal/eventgen"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "eventgen",
		Short:   "Generate an event catalog from Avro schemas",
		Long:    `eventgen generates event name constants, embedded schemas and registry descriptors from annotated Avro schemas.`,
		Version: version,
	}

	rootCmd.AddCommand(newGenerateCmd(), newValidateCmd())

	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	cfg := &eventgen.Config{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the event catalog package",
		Long: `Generate the event catalog package.

This command reads *.avsc files from the schemas directory, checks them
against the registry rules and writes catalog.gen.go together with the
embedded schema files.

Example:
  eventgen generate --schemas ./schemas --output ./gen/catalog --package catalog`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cfg)
		},
	}

	// Required flags
	cmd.Flags().StringVarP(&cfg.SchemasDir, "schemas", "s", "", "Directory containing annotated *.avsc files (required)")
	cmd.Flags().StringVarP(&cfg.OutputDir, "output", "o", "", "Output directory for generated code (required)")

	// Optional flags
	cmd.Flags().StringVarP(&cfg.Package, "package", "n", "catalog", "Go package name for generated code")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")

	_ = cmd.MarkFlagRequired("schemas")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func newValidateCmd() *cobra.Command {
	cfg := &eventgen.Config{Verbose: true}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check schemas without generating code",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := eventgen.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create generator: %w", err)
			}
			return gen.Validate()
		},
	}

	cmd.Flags().StringVarP(&cfg.SchemasDir, "schemas", "s", "", "Directory containing annotated *.avsc files (required)")
	_ = cmd.MarkFlagRequired("schemas")

	return cmd
}

func runGenerate(cfg *eventgen.Config) error {
	gen, err := eventgen.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	if err := gen.Generate(); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	return nil
}
