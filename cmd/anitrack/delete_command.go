package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete SHOW_ID",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a show",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showID := strings.TrimSpace(args[0])
			if showID == "" {
				return fmt.Errorf("show id must not be empty")
			}
			return ctx.withStore(cmd, func(runCtx context.Context, inv *invocation) error {
				entry, err := inv.store.Get(runCtx, showID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if entry == nil {
					fmt.Fprintf(out, "Show %s is not tracked\n", showID)
					return nil
				}
				if !yes {
					confirmed, err := confirmDelete(entry.Title)
					if err != nil {
						return err
					}
					if !confirmed {
						fmt.Fprintln(out, "Nothing deleted.")
						return nil
					}
				}
				removed, err := inv.store.Delete(runCtx, showID)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(out, "Show %s is not tracked\n", showID)
					return nil
				}
				fmt.Fprintf(out, "Stopped tracking %s (%s)\n", entry.Title, showID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func confirmDelete(title string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Stop tracking %s?", title)).
		Affirmative("Delete").
		Negative("Keep").
		Value(&confirmed).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	return confirmed, nil
}
