package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"anitrack/internal/deps"
	"anitrack/internal/tracking"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, dependencies and the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if cfg == nil {
				_, err := ctx.ensureConfig()
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configMsg := ctx.configPath
			configKind := statusOK
			if !ctx.configExists {
				configMsg += " (defaults)"
				configKind = statusInfo
			}
			lines = append(lines, renderStatusLine("Config", configKind, configMsg, colorize))

			historyPath := cfg.HistoryPath()
			if _, err := os.Stat(historyPath); err != nil {
				lines = append(lines, renderStatusLine("ani-cli history", statusWarn, historyPath+" (not created yet)", colorize))
			} else {
				lines = append(lines, renderStatusLine("ani-cli history", statusOK, historyPath, colorize))
			}
			metaKind, metaMsg := statusInfo, "disabled"
			if cfg.Metadata.Enabled {
				metaKind, metaMsg = statusOK, cfg.Metadata.BaseURL
			}
			lines = append(lines, renderStatusLine("Episode lookups", metaKind, metaMsg, colorize))
			logMsg := "history file only"
			if cfg.Detection.LogFallback {
				logMsg = fmt.Sprintf("journal tag %q, tie-break %s", cfg.Detection.JournalTag, cfg.Detection.TieBreak)
			}
			lines = append(lines, renderStatusLine("Detection", statusInfo, logMsg, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			for _, status := range statuses {
				kind := statusOK
				msg := status.Path
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
					msg = status.Detail
				}
				lines = append(lines, renderStatusLine(status.Name, kind, msg, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Database", colorize)...)
			lines = append(lines, databaseStatus(cmd.Context(), cfg.Paths.Database, colorize))

			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("missing required dependencies: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func databaseStatus(ctx context.Context, path string, colorize bool) string {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := tracking.Open(path)
	if err != nil {
		return renderStatusLine("Schema", statusError, err.Error(), colorize)
	}
	defer store.Close()
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return renderStatusLine("Schema", statusError, err.Error(), colorize)
	}
	current := tracking.CurrentVersion()
	switch {
	case version == 0:
		return renderStatusLine("Schema", statusInfo, "not initialised; created on first use", colorize)
	case version < current:
		return renderStatusLine("Schema", statusWarn, fmt.Sprintf("version %d of %d; run `anitrack migrate`", version, current), colorize)
	case version > current:
		return renderStatusLine("Schema", statusError, fmt.Sprintf("version %d is newer than this binary (%d)", version, current), colorize)
	default:
		return renderStatusLine("Schema", statusOK, fmt.Sprintf("version %d (%s)", version, path), colorize)
	}
}
