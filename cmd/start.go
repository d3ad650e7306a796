package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// startCommand builds the `start` subcommand.
func startCommand() *cobra.Command {
	var (
		batchSize int
		window    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "start <provider-id>",
		Short: "Start a new harvest batch for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			a.serveMetrics(ctx)

			if batchSize == 0 {
				batchSize = a.cfg.Harvest.BatchSize
			}
			if window == 0 {
				window = a.cfg.Harvest.Window
			}

			batchID, err := a.orch.StartProcessing(ctx, args[0], batchSize, window)
			if batchID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "batch %s\n", batchID)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "maximum URLs to harvest (0 uses the configured default)")
	cmd.Flags().DurationVar(&window, "window", 0, "processing time window (0 uses the configured default)")

	return cmd
}
