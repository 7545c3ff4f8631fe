// Package detect provides the command that uploads one image.
package detect

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anpr-client/internal/container"
	"anpr-client/internal/report"
)

// Command creates the detect command.
func Command(opts *container.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [image file]",
		Short: "Send an image to the detection service and record the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.Build(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open image: %w", err)
			}
			defer f.Close()

			outcome, err := app.DetectionService.Analyze(cmd.Context(), f.Name(), f)
			if err != nil {
				return err
			}

			report.Outcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
}
