// Package tui is the interactive dashboard: a table of tracked shows with a
// details pane, key bindings for the tracked actions and background
// episode-list loading. Actions suspend the dashboard and hand the terminal
// to the player through tea.Exec.
package tui
