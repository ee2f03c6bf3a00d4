// Package main provides eventctl, the operator tool for the event bus.
//
// Usage:
//
//	eventctl streams verify --config ./configs/config.prod.yaml
//	eventctl streams reconcile --stream EVENTS --yes
//	eventctl schemas push --catalog ./schemas
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	configPath  string
	environment string
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "eventctl",
		Short:         "Operate event bus streams and schemas",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file with broker, streams and schema-registry sections")
	rootCmd.PersistentFlags().StringVarP(&flags.environment, "env", "e", "local", "Environment name reported in logs")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(newStreamsCmd(flags), newSchemasCmd(flags))

	return rootCmd
}
