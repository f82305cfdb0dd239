package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"anitrack/internal/logging"
	"anitrack/internal/metadata"
	"anitrack/internal/textutil"
	"anitrack/internal/tracking"
	"anitrack/internal/workflow"
)

// Store is the slice of the tracking store the dashboard reads and edits.
type Store interface {
	ListByRecency(ctx context.Context) ([]tracking.Entry, error)
	Delete(ctx context.Context, showID string) (bool, error)
}

// Runner executes one tracked action.
type Runner interface {
	Run(ctx context.Context, req workflow.Request) workflow.Result
}

// Loader fetches episode lists in the background.
type Loader interface {
	Submit(req metadata.Request)
	Poll() (metadata.Result, bool)
}

const pollInterval = 250 * time.Millisecond

type tickMsg time.Time

type entriesMsg struct {
	entries []tracking.Entry
	err     error
}

type actionDoneMsg struct {
	result workflow.Result
	err    error
}

type deletedMsg struct {
	showID  string
	removed bool
	err     error
}

// episodeState tracks the background lookup for one show.
type episodeState struct {
	loading  bool
	episodes []string
	err      error
}

// Model is the dashboard of tracked shows.
type Model struct {
	ctx    context.Context
	store  Store
	runner Runner
	loader Loader
	logger *slog.Logger

	entries  []tracking.Entry
	table    table.Model
	gauge    progress.Model
	help     help.Model
	keys     KeyMap
	episodes map[string]*episodeState

	pendingDelete string
	status        string
	statusErr     bool
	width         int
	height        int
}

// Option configures a Model.
type Option func(*Model)

// WithLoader enables background episode-list lookups.
func WithLoader(loader Loader) Option {
	return func(m *Model) {
		if loader != nil {
			m.loader = loader
		}
	}
}

// WithLogger sets the dashboard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New builds the dashboard model.
func New(ctx context.Context, store Store, runner Runner, opts ...Option) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	keys := NewKeyMap()
	tbl := table.New(
		table.WithColumns(columnsFor(defaultWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
	)
	tbl.SetStyles(tableStyles())

	m := Model{
		ctx:      ctx,
		store:    store,
		runner:   runner,
		logger:   logging.NewNop(),
		table:    tbl,
		gauge:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(gaugeWidth), progress.WithoutPercentage()),
		help:     help.New(),
		keys:     keys,
		episodes: make(map[string]*episodeState),
		width:    defaultWidth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.logger = logging.NewComponentLogger(m.logger, "tui")
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadEntries(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadEntries() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.store.ListByRecency(m.ctx)
		return entriesMsg{entries: entries, err: err}
	}
}

func (m Model) deleteEntry(showID string) tea.Cmd {
	return func() tea.Msg {
		removed, err := m.store.Delete(m.ctx, showID)
		return deletedMsg{showID: showID, removed: removed, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.drainLoader()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columnsFor(msg.Width))
		m.table.SetHeight(m.tableHeight())
		return m, nil

	case entriesMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("load tracked shows: %v", msg.err))
			return m, nil
		}
		m.setEntries(msg.entries)
		return m, nil

	case actionDoneMsg:
		m.finishAction(msg)
		return m, m.loadEntries()

	case deletedMsg:
		switch {
		case msg.err != nil:
			m.setError(fmt.Sprintf("delete %s: %v", msg.showID, msg.err))
		case !msg.removed:
			m.setInfo(fmt.Sprintf("%s was not tracked", msg.showID))
		default:
			delete(m.episodes, msg.showID)
			m.setInfo(fmt.Sprintf("Stopped tracking %s", msg.showID))
		}
		return m, m.loadEntries()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pendingDelete != "" {
		showID := m.pendingDelete
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.pendingDelete = ""
			return m, m.deleteEntry(showID)
		case key.Matches(msg, m.keys.Cancel):
			m.pendingDelete = ""
			m.setInfo("Delete cancelled")
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.table.SetHeight(m.tableHeight())
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadEntries()
	case key.Matches(msg, m.keys.Next):
		return m, m.runAction(workflow.ActionNext)
	case key.Matches(msg, m.keys.Previous):
		return m, m.runAction(workflow.ActionPrevious)
	case key.Matches(msg, m.keys.Replay):
		return m, m.runAction(workflow.ActionReplay)
	case key.Matches(msg, m.keys.Select):
		return m, m.runAction(workflow.ActionSelect)
	case key.Matches(msg, m.keys.Delete):
		if entry := m.selected(); entry != nil {
			m.pendingDelete = entry.ShowID
			m.setInfo(fmt.Sprintf("Delete %s? y/n", entry.Title))
		}
		return m, nil
	}

	before := m.table.Cursor()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != before {
		m.requestEpisodes()
	}
	return m, cmd
}

func (m *Model) setEntries(entries []tracking.Entry) {
	var selectedID string
	if entry := m.selected(); entry != nil {
		selectedID = entry.ShowID
	}
	m.entries = entries
	rows := make([]table.Row, 0, len(entries))
	cursor := 0
	for i, entry := range entries {
		rows = append(rows, table.Row{entry.Title, entry.Episode, entry.UpdatedAt.Local().Format("2006-01-02 15:04")})
		if entry.ShowID == selectedID {
			cursor = i
		}
	}
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetCursor(cursor)
	}
	m.requestEpisodes()
}

func (m Model) selected() *tracking.Entry {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.entries) {
		return nil
	}
	entry := m.entries[idx]
	return &entry
}

// requestEpisodes asks the loader for the selected show's list unless it
// is already known.
func (m *Model) requestEpisodes() {
	entry := m.selected()
	if entry == nil || m.loader == nil {
		return
	}
	if state, ok := m.episodes[entry.ShowID]; ok && (state.loading || len(state.episodes) > 0) {
		return
	}
	_, total, _ := textutil.ParseTitleTotal(entry.Title)
	m.episodes[entry.ShowID] = &episodeState{loading: true}
	m.loader.Submit(metadata.Request{ShowID: entry.ShowID, TotalHint: total})
}

func (m *Model) drainLoader() {
	if m.loader == nil {
		return
	}
	for {
		res, ok := m.loader.Poll()
		if !ok {
			return
		}
		state := &episodeState{episodes: res.Episodes, err: res.Err}
		if res.Err != nil {
			m.logger.Debug("episode list lookup failed", logging.Args(
				logging.String("show_id", res.ShowID),
				logging.Error(res.Err),
			)...)
		}
		m.episodes[res.ShowID] = state
	}
}

func (m Model) request(action workflow.Action, showID string) workflow.Request {
	req := workflow.Request{Action: action, ShowID: showID}
	if state, ok := m.episodes[showID]; ok && len(state.episodes) > 0 {
		req.Episodes = append([]string(nil), state.episodes...)
	}
	return req
}

func (m *Model) finishAction(msg actionDoneMsg) {
	if msg.err != nil {
		m.setError(fmt.Sprintf("run action: %v", msg.err))
		return
	}
	res := msg.result
	text := res.Message()
	for _, warning := range res.Warnings {
		text += " (warning: " + warning + ")"
	}
	if res.Outcome.Failed() {
		m.setError(text)
		return
	}
	m.setInfo(text)
}

func (m *Model) setInfo(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
}
