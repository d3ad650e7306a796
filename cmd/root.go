// Package cmd implements the command-line interface for the recipe
// harvester: starting, resuming and inspecting harvest batches.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug forces debug-level logging.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "harvester",
		Short: "Recipe harvesting pipeline",
		Long:  `Crash-recoverable recipe harvesting: discovers, deduplicates, extracts and persists recipes from configured providers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(startCommand())
	rootCmd.AddCommand(resumeCommand())
	rootCmd.AddCommand(statusCommand())
}

// configPath resolves the config file location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}
