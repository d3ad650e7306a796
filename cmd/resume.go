package cmd

import (
	"github.com/spf13/cobra"
)

// resumeCommand builds the `resume` subcommand.
func resumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <batch-id>",
		Short: "Resume an interrupted harvest batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			a.serveMetrics(ctx)

			return a.orch.ResumeProcessing(ctx, args[0])
		},
	}
}
