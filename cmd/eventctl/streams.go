package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/broker"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/stream"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// errNotConfirmed is returned by reconcile without --yes.
var errNotConfirmed = errors.New("reconcile deletes and recreates streams, losing stored messages; rerun with --yes during a maintenance window")

func newStreamsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streams",
		Short: "Inspect and reconcile JetStream streams",
	}
	cmd.AddCommand(newReconcileCmd(flags), newVerifyCmd(flags))
	return cmd
}

func newReconcileCmd(flags *globalFlags) *cobra.Command {
	var (
		names []string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete and recreate the configured streams",
		Long: `Delete and recreate the configured streams.

Every selected stream is deleted, created from the configuration and read
back. Messages stored in a deleted stream are lost, so the command refuses
to run without --yes.

Example:
  eventctl streams reconcile --config ./configs/config.prod.yaml --stream DLQ --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			return withStreamManager(flags, func(ctx context.Context, m *stream.Manager) error {
				infos, err := m.Reconcile(ctx, names...)
				for _, info := range infos {
					printStream(cmd.OutOrStdout(), info.Config.Name, info.Config.Subjects, info.State.Msgs)
				}
				return err
			})
		},
	}

	cmd.Flags().StringArrayVar(&names, "stream", nil, "Stream to reconcile, repeatable (default: all configured streams)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm that stored messages may be lost")

	return cmd
}

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the broker matches the configured streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStreamManager(flags, func(ctx context.Context, m *stream.Manager) error {
				if err := m.Verify(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "stream topology matches configuration")
				return nil
			})
		},
	}
}

func withStreamManager(flags *globalFlags, run func(ctx context.Context, m *stream.Manager) error) error {
	var manager *stream.Manager
	return runApp(flags,
		func(ctx context.Context) error { return run(ctx, manager) },
		broker.NewBrokerModule(),
		stream.NewStreamModule(stream.WithoutStartupCheck()),
		fx.Populate(&manager),
	)
}

func printStream(w io.Writer, name string, subjects []string, msgs uint64) {
	fmt.Fprintf(w, "%-12s subjects=%v messages=%d\n", name, subjects, msgs)
}
