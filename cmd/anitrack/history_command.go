package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anitrack/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show ani-cli's own watch history as anitrack reads it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			snap, err := history.ReadFile(path)
			if err != nil {
				return err
			}
			lines := snap.Lines()
			switch format {
			case outputJSON:
				return writeJSON(cmd, lines)
			case outputYAML:
				return writeYAML(cmd, lines)
			}

			out := cmd.OutOrStdout()
			if warning := snap.SkippedWarning(path); warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), paint(statusWarn, "warning: "+warning, shouldColorize(cmd.ErrOrStderr())))
			}
			if len(lines) == 0 {
				fmt.Fprintf(out, "No entries in %s\n", path)
				return nil
			}
			rows := make([][]string, 0, len(lines))
			for _, line := range lines {
				rows = append(rows, []string{line.ShowID, line.Title, line.Episode})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Episode"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}
