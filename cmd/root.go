// Package cmd wires the anpr-client command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"anpr-client/cmd/detect"
	"anpr-client/cmd/history"
	"anpr-client/cmd/ingest"
	"anpr-client/cmd/serve"
	"anpr-client/internal/container"
)

// RootCommand creates the root command with every subcommand attached.
func RootCommand() *cobra.Command {
	var opts container.Options

	rootCmd := &cobra.Command{
		Use:           "anpr-client",
		Short:         "Client for the vehicle and number plate detection service",
		Long:          `Uploads images to the detection service and keeps a short history of results.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "Path to a config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		serve.Command(&opts),
		detect.Command(&opts),
		ingest.Command(&opts),
		history.Command(&opts),
	)

	return rootCmd
}
