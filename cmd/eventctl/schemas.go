package main

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-eventbus/internal/eventgen"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/schema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newSchemasCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Publish event schemas",
	}
	cmd.AddCommand(newPushCmd(flags))
	return cmd
}

func newPushCmd(flags *globalFlags) *cobra.Command {
	var catalogDir string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Register the catalog's schemas in the Schema Registry",
		Long: `Register the catalog's schemas in the Schema Registry.

Every annotated *.avsc file in the catalog directory is registered under the
subject "<event>-value", in version order. Versions of the same event are
checked for compatibility before anything is sent.

Example:
  eventctl schemas push --config ./configs/config.prod.yaml --catalog ./schemas`,
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors, err := loadCatalog(catalogDir)
			if err != nil {
				return err
			}

			var sync *schema.RegistrySync
			return runApp(flags,
				func(context.Context) error {
					pushed, err := sync.Push(descriptors)
					for _, p := range pushed {
						fmt.Fprintf(cmd.OutOrStdout(), "%-40s v%d id=%d\n", p.Subject, p.Version, p.ID)
					}
					return err
				},
				schema.NewRegistrySyncModule(),
				fx.Populate(&sync),
			)
		},
	}

	cmd.Flags().StringVar(&catalogDir, "catalog", "", "Directory containing annotated *.avsc files (required)")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

// loadCatalog parses the catalog and checks versions locally, so that an
// incompatible catalog fails before the registry is contacted.
func loadCatalog(dir string) ([]events.Descriptor, error) {
	schemas, err := eventgen.ParseSchemas(dir)
	if err != nil {
		return nil, err
	}
	descriptors := lo.Map(schemas, func(s *eventgen.EventSchema, _ int) events.Descriptor { return s.Descriptor })
	if err := schema.CheckVersions(descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}
