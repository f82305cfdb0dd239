package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"anitrack/internal/episode"
	"anitrack/internal/textutil"
	"anitrack/internal/tracking"
)

const (
	defaultWidth       = 100
	defaultTableHeight = 12
	gaugeWidth         = 30
	// chrome is the lines taken by the title, details pane, status and help.
	chrome = 14
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(12)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	detailsStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return styles
}

func columnsFor(width int) []table.Column {
	episodeWidth, seenWidth := 8, 16
	titleWidth := width - episodeWidth - seenWidth - 8
	if titleWidth < 20 {
		titleWidth = 20
	}
	return []table.Column{
		{Title: "Title", Width: titleWidth},
		{Title: "Episode", Width: episodeWidth},
		{Title: "Last Seen", Width: seenWidth},
	}
}

func (m Model) tableHeight() int {
	if m.height <= 0 {
		return defaultTableHeight
	}
	h := m.height - chrome
	if m.help.ShowAll {
		h -= 3
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("anitrack"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(mutedStyle.Render("No tracked shows yet. Run `anitrack start` to record one."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		if entry := m.selected(); entry != nil {
			b.WriteString(m.viewDetails(*entry))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.viewStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) viewDetails(entry tracking.Entry) string {
	var content strings.Builder
	row := func(label, value string) {
		content.WriteString(labelStyle.Render(label))
		content.WriteString(value)
		content.WriteString("\n")
	}

	row("Show", textutil.Truncate(entry.Title, m.width-20))
	row("ID", entry.ShowID)
	row("Episode", entry.Episode)

	state := m.episodes[entry.ShowID]
	var episodes []string
	if state != nil {
		episodes = state.episodes
	}
	row("Progress", m.viewProgress(entry, episodes))
	row("Episodes", episodeStatus(state, m.loader != nil))
	return detailsStyle.Render(strings.TrimRight(content.String(), "\n"))
}

func (m Model) viewProgress(entry tracking.Entry, episodes []string) string {
	total := len(episodes)
	if total == 0 {
		_, total, _ = textutil.ParseTitleTotal(entry.Title)
	}
	if total == 0 {
		return mutedStyle.Render("unknown total")
	}
	pos, ok := episode.ProgressPosition(entry.Episode, total, episodes)
	if !ok {
		return mutedStyle.Render(fmt.Sprintf("? of %d", total))
	}
	return fmt.Sprintf("%s %d of %d", m.gauge.ViewAs(float64(pos)/float64(total)), pos, total)
}

func episodeStatus(state *episodeState, enabled bool) string {
	switch {
	case !enabled:
		return mutedStyle.Render("lookups disabled")
	case state == nil:
		return mutedStyle.Render("not requested")
	case state.loading:
		return mutedStyle.Render("loading…")
	case state.err != nil:
		return errorStyle.Render("unavailable")
	case len(state.episodes) == 0:
		return mutedStyle.Render("none listed")
	default:
		first, last := state.episodes[0], state.episodes[len(state.episodes)-1]
		return fmt.Sprintf("%d available (%s–%s)", len(state.episodes), first, last)
	}
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render("ERROR: " + m.status)
	}
	return infoStyle.Render("INFO: " + m.status)
}
