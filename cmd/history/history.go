// Package history provides commands to inspect and clear the saved history.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"anpr-client/internal/container"
	"anpr-client/internal/report"
)

// Command creates the history command and its subcommands.
func Command(opts *container.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the saved analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("please specify a subcommand: list, show, summary, clear")
		},
	}

	var plate string
	var asJSON bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.Build(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer app.Close()

			view, err := app.DetectionService.History(plate)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, view)
			}
			report.History(cmd.OutOrStdout(), view.Entries)
			return nil
		},
	}
	listCmd.Flags().StringVar(&plate, "plate", "", "Only show analyses with a matching plate text")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.Build(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer app.Close()

			entry, err := app.DetectionService.Entry(args[0])
			if err != nil {
				return err
			}
			report.Entry(cmd.OutOrStdout(), *entry)
			return nil
		},
	}

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals over the saved analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.Build(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer app.Close()

			report.Summary(cmd.OutOrStdout(), app.DetectionService.Summary())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.Build(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.DetectionService.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, summaryCmd, clearCmd)
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
