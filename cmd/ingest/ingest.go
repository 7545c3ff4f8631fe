// Package ingest provides the command that records a saved detection response.
package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"anpr-client/internal/container"
	"anpr-client/internal/report"
)

// Command creates the ingest command.
func Command(opts *container.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [response.json|-]",
		Short: "Record a detection response that was already fetched",
		Long:  `Reads a detection service response body from a file, or from stdin when the argument is "-", and records it in the history.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			app, err := container.Build(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer app.Close()

			outcome, err := app.DetectionService.Ingest(cmd.Context(), raw)
			if err != nil {
				return err
			}

			report.Outcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read response file: %w", err)
	}
	return raw, nil
}
