package main

import (
	"github.com/spf13/cobra"

	"anitrack/internal/workflow"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verboseFlag bool

	ctx := newCommandContext(&configFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "anitrack",
		Short:         "Track and resume ani-cli watch progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Mirror log output to stderr")

	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionStart, "start", "Search with ani-cli and record what you watch"))
	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionNext, "next", "Play the episode after the tracked one"))
	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionPrevious, "previous", "Play the episode before the tracked one", "prev"))
	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionReplay, "replay", "Play the tracked episode again"))
	rootCmd.AddCommand(newActionCommand(ctx, workflow.ActionSelect, "select", "Pick an episode of the tracked show in ani-cli"))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTUICommand(ctx))

	return rootCmd
}
