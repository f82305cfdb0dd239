package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the tracking database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(runCtx context.Context, inv *invocation) error {
				out := cmd.OutOrStdout()
				if statusOnly {
					steps, err := inv.store.MigrationStatus(runCtx)
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(steps))
					for _, step := range steps {
						rows = append(rows, []string{strconv.Itoa(step.Version), step.Name, yesNo(step.Applied)})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Version", "Name", "Applied"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft},
					))
					return nil
				}

				report, err := inv.store.Migrate(runCtx)
				if err != nil {
					return err
				}
				if !report.Changed() {
					fmt.Fprintf(out, "Database already at schema version %d\n", report.To)
					return nil
				}
				fmt.Fprintf(out, "Migrated %s from version %d to %d\n", inv.store.Path(), report.From, report.To)
				fmt.Fprintf(out, "Applied: %s\n", strings.Join(report.Applied, ", "))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "List schema steps without applying them")
	return cmd
}
