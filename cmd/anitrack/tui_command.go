package main

import (
	"context"

	"github.com/spf13/cobra"

	"anitrack/internal/metadata"
	"anitrack/internal/tui"
	"anitrack/internal/workflow"
)

func newTUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Aliases: []string{"dashboard"},
		Short:   "Browse tracked shows and play from an interactive dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, ctx)
		},
	}
}

func runDashboard(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withStore(cmd, func(runCtx context.Context, inv *invocation) error {
		orch, err := workflow.NewFromConfig(inv.cfg, inv.store, inv.logger)
		if err != nil {
			return err
		}
		opts := []tui.Option{tui.WithLogger(inv.logger)}
		if source := orch.Episodes(); source != nil {
			worker := metadata.NewWorker(source, inv.logger)
			defer worker.Close()
			opts = append(opts, tui.WithLoader(worker))
		}
		return tui.Run(runCtx, tui.New(runCtx, inv.store, orch, opts...))
	})
}
