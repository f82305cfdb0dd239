package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"anitrack/internal/tracking"
	"anitrack/internal/workflow"
)

var errNoSelection = errors.New("no show selected")

func newActionCommand(ctx *commandContext, action workflow.Action, use, short string, aliases ...string) *cobra.Command {
	var showID string
	var pick bool

	cmd := &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(runCtx context.Context, inv *invocation) error {
				orch, err := workflow.NewFromConfig(inv.cfg, inv.store, inv.logger)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(showID)
				if pick {
					target, err = pickShow(runCtx, inv.store)
					if errors.Is(err, errNoSelection) {
						fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected.")
						return nil
					}
					if err != nil {
						return err
					}
				}
				res := orch.Run(runCtx, workflow.Request{
					Action: action,
					ShowID: target,
					Stdin:  cmd.InOrStdin(),
					Stdout: cmd.OutOrStdout(),
					Stderr: cmd.ErrOrStderr(),
				})
				return reportResult(cmd, res)
			})
		},
	}

	if action.Tracked() {
		cmd.Flags().StringVar(&showID, "show", "", "Act on this tracked show id instead of the most recent")
		cmd.Flags().BoolVar(&pick, "pick", false, "Choose the tracked show interactively")
		cmd.MarkFlagsMutuallyExclusive("show", "pick")
	}
	return cmd
}

// reportResult prints the run summary and converts failed outcomes into a
// non-zero exit.
func reportResult(cmd *cobra.Command, res workflow.Result) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	msg := res.Message()
	if msg == "" && res.Err != nil {
		return res.Err
	}
	kind := statusInfo
	switch {
	case res.Committed():
		kind = statusOK
	case res.Outcome.Failed():
		kind = statusError
	case res.Outcome == workflow.OutcomeAmbiguous || res.Outcome == workflow.OutcomeNoChange:
		kind = statusWarn
	}
	fmt.Fprintln(out, paint(kind, msg, colorize))
	if res.Outcome == workflow.OutcomeSessionFailed && res.Exit.ExitCode > 0 {
		fmt.Fprintf(out, "ani-cli exited with status %d\n", res.Exit.ExitCode)
	}
	for _, warning := range res.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), paint(statusWarn, "warning: "+warning, shouldColorize(cmd.ErrOrStderr())))
	}
	if res.Outcome.Failed() {
		return &exitError{code: 1}
	}
	return nil
}

func pickShow(ctx context.Context, store *tracking.Store) (string, error) {
	entries, err := store.ListByRecency(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errNoSelection
	}
	options := make([]huh.Option[string], 0, len(entries))
	for _, entry := range entries {
		options = append(options, huh.NewOption(fmt.Sprintf("%s · episode %s", entry.Title, entry.Episode), entry.ShowID))
	}
	var selected string
	err = huh.NewSelect[string]().
		Title("Which show?").
		Options(options...).
		Value(&selected).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", errNoSelection
	}
	if err != nil {
		return "", fmt.Errorf("show selection: %w", err)
	}
	return selected, nil
}
