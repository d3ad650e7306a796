package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openrecipes/harvester/internal/domain"
)

// statusCommand builds the `status` subcommand.
func statusCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [batch-id]",
		Short: "Show the status of one batch or the most recent batches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var snapshots []domain.BatchSnapshot
			if len(args) == 1 {
				snapshot, statusErr := a.orch.GetBatchStatus(ctx, args[0])
				if statusErr != nil {
					return statusErr
				}
				snapshots = []domain.BatchSnapshot{snapshot}
			} else {
				snapshots, err = a.orch.ListBatches(ctx, limit)
				if err != nil {
					return err
				}
			}

			renderBatchTable(cmd, snapshots)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent batches to list")

	return cmd
}

// renderBatchTable writes batch snapshots as a table.
func renderBatchTable(cmd *cobra.Command, snapshots []domain.BatchSnapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{
		"Batch", "Provider", "Status", "Processed", "Skipped", "Failed",
		"Pending", "Partial", "Started", "Completed",
	})

	for _, s := range snapshots {
		completed := ""
		if s.CompletedAt != nil {
			completed = s.CompletedAt.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			s.BatchID, s.ProviderID, string(s.Status),
			s.Processed, s.Skipped, s.Failed,
			s.PendingCount, s.Partial,
			s.StartedAt.Format(time.RFC3339), completed,
		})
	}

	t.Render()
}
