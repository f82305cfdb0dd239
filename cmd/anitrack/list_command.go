package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"anitrack/internal/episode"
	"anitrack/internal/textutil"
	"anitrack/internal/tracking"
)

const lastSeenLayout = "2006-01-02 15:04"

type listedEntry struct {
	tracking.Entry `yaml:",inline"`
	Progress       string `json:"progress,omitempty" yaml:"progress,omitempty"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var since string
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked shows, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			var cutoff time.Time
			if strings.TrimSpace(since) != "" {
				cutoff, err = parseSince(since, time.Now())
				if err != nil {
					return err
				}
			}
			return ctx.withStore(cmd, func(runCtx context.Context, inv *invocation) error {
				var entries []tracking.Entry
				if cutoff.IsZero() {
					entries, err = inv.store.ListByRecency(runCtx)
				} else {
					entries, err = inv.store.ListSince(runCtx, cutoff)
				}
				if err != nil {
					return err
				}
				listed := make([]listedEntry, 0, len(entries))
				for _, entry := range entries {
					cached, _, _ := inv.store.EpisodeList(runCtx, entry.ShowID, 0)
					listed = append(listed, listedEntry{Entry: entry, Progress: progressText(entry, cached)})
				}
				return renderEntries(cmd, format, listed)
			})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", `Only shows watched since WHEN ("48h", "last monday", "2026-01-02")`)
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}

func renderEntries(cmd *cobra.Command, format outputFormat, entries []listedEntry) error {
	switch format {
	case outputJSON:
		return writeJSON(cmd, entries)
	case outputYAML:
		return writeYAML(cmd, entries)
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No tracked shows yet. Run `anitrack start` to record one.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.ShowID,
			entry.Title,
			entry.Episode,
			entry.Progress,
			entry.UpdatedAt.Local().Format(lastSeenLayout),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Episode", "Progress", "Last Seen"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}

// progressText renders "3 of 12" when a total is known from the cached
// episode list or the title.
func progressText(entry tracking.Entry, episodes []string) string {
	total := len(episodes)
	if total == 0 {
		_, total, _ = textutil.ParseTitleTotal(entry.Title)
	}
	if total == 0 {
		return ""
	}
	pos, ok := episode.ProgressPosition(entry.Episode, total, episodes)
	if !ok {
		return fmt.Sprintf("? of %d", total)
	}
	return fmt.Sprintf("%d of %d", pos, total)
}

// parseSince accepts Go durations, dates, and natural language.
func parseSince(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.DateOnly, time.DateTime, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, raw, now.Location()); err == nil {
			return t, nil
		}
	}
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)
	result, err := parser.Parse(raw, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --since %q: %w", raw, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("parse --since %q: unrecognised time", raw)
	}
	return result.Time, nil
}
