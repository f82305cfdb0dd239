package workflow

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"anitrack/internal/detect"
	"anitrack/internal/episode"
	"anitrack/internal/history"
	"anitrack/internal/logging"
	"anitrack/internal/services"
	"anitrack/internal/session"
	"anitrack/internal/textutil"
	"anitrack/internal/tracking"
)

// Store is the part of the tracking store the orchestrator needs.
type Store interface {
	Latest(ctx context.Context) (*tracking.Entry, error)
	Get(ctx context.Context, showID string) (*tracking.Entry, error)
	Upsert(ctx context.Context, entry tracking.Entry) (tracking.Entry, error)
}

// Launcher runs the player to completion.
type Launcher interface {
	Run(ctx context.Context, req session.Request) (session.ExitOutcome, error)
}

// EpisodeSource supplies a show's ordered episode labels.
type EpisodeSource interface {
	EpisodeList(ctx context.Context, showID string, totalHint int) ([]string, error)
}

// ShowSelector finds a show's 1-based position in the player's search menu.
type ShowSelector interface {
	SelectIndex(ctx context.Context, showID, title string) (int, error)
}

const defaultMetadataWait = 4 * time.Second

// Orchestrator drives one action at a time from lookup through commit.
type Orchestrator struct {
	store       Store
	launcher    Launcher
	player      string
	extraArgs   []string
	historyPath string

	detector *detect.Detector
	policy   detect.Policy
	logs     detect.LogSource
	grace    time.Duration
	watch    bool

	episodes     EpisodeSource
	selector     ShowSelector
	metadataWait time.Duration

	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPlayer sets the player command and flags added to every launch.
func WithPlayer(binary string, extraArgs ...string) Option {
	return func(o *Orchestrator) {
		o.player = strings.TrimSpace(binary)
		o.extraArgs = append([]string(nil), extraArgs...)
	}
}

// WithHistoryPath sets the player's global history file.
func WithHistoryPath(path string) Option {
	return func(o *Orchestrator) { o.historyPath = path }
}

// WithPolicy sets the log fallback policy used by the default detector.
func WithPolicy(policy detect.Policy) Option {
	return func(o *Orchestrator) { o.policy = policy }
}

// WithDetector replaces the change detector outright.
func WithDetector(d *detect.Detector) Option {
	return func(o *Orchestrator) { o.detector = d }
}

// WithLogSource enables the log fallback.
func WithLogSource(src detect.LogSource) Option {
	return func(o *Orchestrator) { o.logs = src }
}

// WithWindowGrace sets the slack added around a session for log lookups.
func WithWindowGrace(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.grace = d
		}
	}
}

// WithHistoryWatch toggles the fsnotify watcher on unseeded runs.
func WithHistoryWatch(enabled bool) Option {
	return func(o *Orchestrator) { o.watch = enabled }
}

// WithEpisodeSource sets where episode lists come from.
func WithEpisodeSource(src EpisodeSource) Option {
	return func(o *Orchestrator) { o.episodes = src }
}

// WithShowSelector sets how -S indexes are found.
func WithShowSelector(sel ShowSelector) Option {
	return func(o *Orchestrator) { o.selector = sel }
}

// WithMetadataWait bounds each advisory lookup.
func WithMetadataWait(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.metadataWait = d
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.newID = next
		}
	}
}

// New builds an orchestrator around store and launcher.
func New(store Store, launcher Launcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		launcher:     launcher,
		player:       "ani-cli",
		policy:       detect.DefaultPolicy(),
		metadataWait: defaultMetadataWait,
		logger:       logging.NewNop(),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.detector == nil {
		o.detector = detect.New(detect.WithClock(o.now), detect.WithPolicy(o.policy))
	}
	o.logger = logging.NewComponentLogger(o.logger, "workflow")
	return o
}

// Episodes returns the configured episode source, which may be nil.
func (o *Orchestrator) Episodes() EpisodeSource { return o.episodes }

// run carries the mutable state of a single Run call.
type run struct {
	ctx    context.Context
	logger *slog.Logger
	res    Result
}

func (r *run) enter(next State) bool {
	from := r.res.State
	if !canTransition(from, next) {
		r.logger.Error("illegal workflow transition",
			logging.String("from", from.String()),
			logging.String("to", next.String()),
		)
		r.res.State = StateAborted
		r.res.Transitions = append(r.res.Transitions, StateAborted)
		return false
	}
	r.res.State = next
	r.res.Transitions = append(r.res.Transitions, next)
	r.logger.Debug("workflow state", logging.String("from", from.String()), logging.String("to", next.String()))
	return true
}

func (r *run) finish(terminal State, outcome Outcome, err error) Result {
	r.res.Outcome = outcome
	r.res.Err = err
	r.enter(terminal)
	attrs := []logging.Attr{
		logging.String("outcome", string(outcome)),
		logging.String("state", r.res.State.String()),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err), logging.String("error_kind", services.Kind(err)))
	}
	switch {
	case outcome.Failed():
		r.logger.Warn("action finished without commit", logging.Args(attrs...)...)
	default:
		r.logger.Info("action finished", logging.Args(attrs...)...)
	}
	return r.res
}

func (r *run) warn(msg string) {
	if slices.Contains(r.res.Warnings, msg) {
		return
	}
	r.res.Warnings = append(r.res.Warnings, msg)
	r.logger.Warn(msg)
}

func (r *run) setShow(showID string) {
	r.ctx = services.WithShowID(r.ctx, showID)
	r.logger = r.logger.With(logging.String(logging.FieldShowID, showID))
}

// Run performs req to completion. Progress is written only when the player
// exits successfully.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	action, err := ParseAction(string(req.Action))
	if err != nil {
		return Result{
			Action: req.Action,
			State:  StateAborted,
			Err:    services.Wrap(services.ErrValidation, "workflow", "run", "", err),
		}
	}

	runID := o.newID()
	ctx = services.WithRequestID(ctx, runID)
	ctx = services.WithAction(ctx, string(action))
	r := &run{
		ctx:    ctx,
		logger: logging.WithContext(ctx, o.logger),
		res:    Result{RunID: runID, Action: action, State: StateIdle},
	}

	r.enter(StateResolving)
	var entry *tracking.Entry
	if action.Tracked() {
		entry, err = o.resolve(r.ctx, req.ShowID)
		if err != nil {
			return r.finish(StateAborted, OutcomeStoreFailed, err)
		}
		if entry == nil {
			return r.finish(StateAborted, OutcomeNoTrackedEntry, episode.ErrNoTrackedEntry)
		}
		r.res.Previous = entry
		r.setShow(entry.ShowID)
	}

	r.enter(StatePlanning)
	plan, err := o.plan(r, action, entry, req.Episodes)
	if err != nil {
		outcome := outcomeForPlanError(err)
		if outcome == OutcomeNoMoreEpisodes {
			return r.finish(StateDone, outcome, err)
		}
		return r.finish(StateAborted, outcome, err)
	}
	r.res.Plan = plan

	r.enter(StateLaunching)
	var (
		env     []string
		before  history.Snapshot
		sig     history.Signature
		watcher *history.Watcher
	)
	if plan.Seed != nil {
		before = history.NewSnapshot(*plan.Seed)
	} else {
		if dir := filepath.Dir(o.historyPath); o.historyPath != "" {
			env = append(env, history.DirEnv+"="+dir)
		}
		sig = history.Stat(o.historyPath)
		before = o.readHistory(r)
		if o.watch && o.historyPath != "" {
			w, err := history.Watch(o.historyPath)
			if err != nil {
				r.logger.Debug("history watch unavailable", logging.Error(err))
			} else {
				watcher = w
				defer watcher.Close()
			}
		}
	}

	r.enter(StateAwaitingExit)
	started := o.now()
	exit, err := o.launcher.Run(r.ctx, session.Request{
		Command: o.player,
		Args:    plan.Args,
		Env:     env,
		Seed:    plan.Seed,
		Stdin:   req.Stdin,
		Stdout:  req.Stdout,
		Stderr:  req.Stderr,
	})
	if err != nil {
		return r.finish(StateAborted, OutcomeLaunchFailed, err)
	}
	ended := o.now()
	r.res.Exit = exit
	touched := plan.Seed == nil && (history.Stat(o.historyPath).Changed(sig) || (watcher != nil && watcher.Touched()))
	if !exit.Success {
		return r.finish(StateAborted, OutcomeSessionFailed, nil)
	}

	r.enter(StateDetecting)
	var after history.Snapshot
	if plan.Seed != nil {
		after, err = history.Parse(bytes.NewReader(exit.SeededHistory))
		if err != nil {
			r.warn(fmt.Sprintf("seeded history unreadable: %v", err))
		}
		if after.Skipped() > 0 {
			r.warn(after.SkippedWarning(filepath.Join(exit.SeedDir, history.FileName)))
		}
	} else {
		after = o.readHistory(r)
		// A rewrite with identical content is not a change.
		r.res.HistoryTouched = touched && !before.Equal(after)
	}

	window := exit.Duration + o.grace
	var logs []detect.LogLine
	if o.logs != nil && len(detect.Diff(before, after)) == 0 {
		logs, err = o.logs.Lines(r.ctx, started.Add(-o.grace), ended.Add(o.grace))
		if err != nil {
			r.logger.Debug("log fallback unavailable", logging.Error(err))
		}
	}
	change := o.detector.Detect(before, after, logs, window)
	r.res.Change = change
	r.logger.Debug("change detected",
		logging.String("kind", change.Kind.String()),
		logging.String("source", string(change.Source)),
		logging.Int("log_lines", len(logs)),
	)

	line, ok := commitLine(action, entry, change, after)
	if !ok {
		if change.Kind == detect.Ambiguous {
			return r.finish(StateDone, OutcomeAmbiguous, nil)
		}
		return r.finish(StateDone, OutcomeNoChange, nil)
	}

	r.enter(StateCommitting)
	if !action.Tracked() {
		r.setShow(line.ShowID)
	}
	saved, err := o.store.Upsert(r.ctx, tracking.Entry{ShowID: line.ShowID, Title: line.Title, Episode: line.Episode})
	if err != nil {
		return r.finish(StateAborted, OutcomeStoreFailed, err)
	}
	r.res.Entry = &saved
	return r.finish(StateDone, OutcomeCommitted, nil)
}

func (o *Orchestrator) resolve(ctx context.Context, showID string) (*tracking.Entry, error) {
	if showID = strings.TrimSpace(showID); showID != "" {
		return o.store.Get(ctx, showID)
	}
	return o.store.Latest(ctx)
}

func (o *Orchestrator) plan(r *run, action Action, entry *tracking.Entry, episodes []string) (episode.NavigationPlan, error) {
	if !action.Tracked() {
		return episode.NavigationPlan{Args: append([]string(nil), o.extraArgs...)}, nil
	}
	pos := entry.Position()
	_, total, _ := textutil.ParseTitleTotal(pos.Title)
	if episodes == nil && o.episodes != nil && action != ActionSelect {
		ctx, cancel := context.WithTimeout(r.ctx, o.metadataWait)
		list, err := o.episodes.EpisodeList(ctx, pos.ShowID, total)
		cancel()
		if err != nil {
			r.warn(fmt.Sprintf("episode list unavailable: %v", err))
		} else {
			episodes = list
		}
	}

	opts := []episode.Option{episode.WithExtraArgs(o.extraArgs...)}
	plan, err := episode.Plan(pos, episode.Action(action), episodes, opts...)
	if err != nil {
		return episode.NavigationPlan{}, err
	}
	if plan.Continues() || o.selector == nil {
		return plan, nil
	}

	ctx, cancel := context.WithTimeout(r.ctx, o.metadataWait)
	index, err := o.selector.SelectIndex(ctx, pos.ShowID, pos.Title)
	cancel()
	if err != nil {
		r.warn(fmt.Sprintf("search position unavailable, the player will ask: %v", err))
		return plan, nil
	}
	return episode.Plan(pos, episode.Action(action), episodes, append(opts, episode.WithSelectIndex(index))...)
}

func (o *Orchestrator) readHistory(r *run) history.Snapshot {
	if o.historyPath == "" {
		return history.NewSnapshot()
	}
	snap, err := history.ReadFile(o.historyPath)
	if err != nil {
		r.warn(fmt.Sprintf("history unreadable: %v", err))
		return history.NewSnapshot()
	}
	if snap.Skipped() > 0 {
		r.warn(snap.SkippedWarning(o.historyPath))
	}
	return snap
}

// commitLine decides what, if anything, a successful session records.
func commitLine(action Action, entry *tracking.Entry, change detect.Change, after history.Snapshot) (history.Line, bool) {
	if !action.Tracked() {
		if change.Kind == detect.Changed {
			return change.Line, true
		}
		return history.Line{}, false
	}

	line := history.Line{ShowID: entry.ShowID, Title: entry.Title, Episode: entry.Episode}
	switch {
	case change.Kind == detect.Changed && change.Line.ShowID == entry.ShowID:
		line = change.Line
	case change.Kind == detect.Ambiguous && change.Includes(entry.ShowID):
		if current, ok := after.Get(entry.ShowID); ok {
			line = current
		}
	}
	if strings.TrimSpace(line.Title) == "" {
		line.Title = entry.Title
	}
	return line, true
}
