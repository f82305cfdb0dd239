package episode

import (
	"errors"
	"fmt"
	"strings"

	"anitrack/internal/history"
	"anitrack/internal/textutil"
)

var (
	// ErrNoMoreEpisodes means the tracked episode is already the last known one.
	ErrNoMoreEpisodes = errors.New("no more episodes")
	// ErrUnresolvableEpisode means the label is neither in the list nor numeric.
	ErrUnresolvableEpisode = errors.New("episode label cannot be resolved")
	// ErrNoTrackedEntry means there is nothing to navigate from.
	ErrNoTrackedEntry = errors.New("no tracked entry")
)

// Action is a navigation request relative to the tracked position.
type Action string

const (
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionReplay   Action = "replay"
	ActionSelect   Action = "select"
)

// ParseAction maps user input onto an Action.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "next", "n":
		return ActionNext, nil
	case "previous", "prev", "p":
		return ActionPrevious, nil
	case "replay", "r":
		return ActionReplay, nil
	case "select", "s":
		return ActionSelect, nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// Position is the tracked state a plan starts from.
type Position struct {
	ShowID  string
	Title   string
	Episode string
}

// NavigationPlan is a fully resolved player invocation.
type NavigationPlan struct {
	Action        Action
	ShowID        string
	Title         string
	TargetEpisode string
	// Args are passed to the player verbatim.
	Args []string
	// Seed, when set, must be written to a private history file before launch
	// so that continue mode resumes right after it.
	Seed *history.Line
	// IsFallback marks plans that pick the episode by number because no
	// continue seed could be derived.
	IsFallback bool
}

// Continues reports whether the plan runs the player in continue mode.
func (p NavigationPlan) Continues() bool { return p.Seed != nil }

type planOptions struct {
	selectIndex int
	total       int
	extraArgs   []string
}

// Option customises planning.
type Option func(*planOptions)

// WithSelectIndex passes the player's 1-based search result index.
func WithSelectIndex(index int) Option {
	return func(o *planOptions) {
		if index > 0 {
			o.selectIndex = index
		}
	}
}

// WithTotalEpisodes bounds Next when no episode list is available.
func WithTotalEpisodes(total int) Option {
	return func(o *planOptions) {
		if total > 0 {
			o.total = total
		}
	}
}

// WithExtraArgs prepends player flags (for example "--dub") to every plan.
func WithExtraArgs(args ...string) Option {
	return func(o *planOptions) {
		o.extraArgs = append(o.extraArgs, args...)
	}
}

// Plan resolves action against pos. episodes is the ordered list of
// available labels and may be empty.
func Plan(pos Position, action Action, episodes []string, opts ...Option) (NavigationPlan, error) {
	if strings.TrimSpace(pos.ShowID) == "" {
		return NavigationPlan{}, ErrNoTrackedEntry
	}
	var o planOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.total == 0 {
		if _, total, ok := textutil.ParseTitleTotal(pos.Title); ok {
			o.total = total
		}
	}

	plan := NavigationPlan{Action: action, ShowID: pos.ShowID, Title: pos.Title}
	switch action {
	case ActionNext:
		target, ok, err := NextTarget(pos.Episode, episodes, o.total)
		if err != nil {
			return NavigationPlan{}, err
		}
		if !ok {
			return NavigationPlan{}, ErrNoMoreEpisodes
		}
		plan.TargetEpisode = target
		plan.Seed = seedLine(pos, pos.Episode)
		plan.Args = continueArgs(o)
	case ActionPrevious:
		target, ok, err := PreviousTarget(pos.Episode, episodes)
		if err != nil {
			return NavigationPlan{}, err
		}
		if !ok {
			return NavigationPlan{}, ErrNoMoreEpisodes
		}
		plan.TargetEpisode = target
		if seed, ok := previousSeed(pos.Episode, episodes); ok {
			plan.Seed = seedLine(pos, seed)
			plan.Args = continueArgs(o)
		} else {
			plan.Args = episodeArgs(pos.Title, target, o)
			plan.IsFallback = true
		}
	case ActionReplay:
		plan.TargetEpisode = replayTarget(pos.Episode, episodes)
		if seed, ok := replaySeed(pos.Episode, episodes); ok && strings.TrimSpace(pos.Episode) != "0" {
			plan.Seed = seedLine(pos, seed)
			plan.Args = continueArgs(o)
		} else {
			plan.Args = episodeArgs(pos.Title, plan.TargetEpisode, o)
			plan.IsFallback = true
		}
	case ActionSelect:
		plan.TargetEpisode = pos.Episode
		plan.Args = titleArgs(pos.Title, o)
	default:
		return NavigationPlan{}, fmt.Errorf("unknown action %q", action)
	}
	return plan, nil
}

func replayTarget(label string, episodes []string) string {
	if strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	if len(episodes) > 0 {
		return episodes[0]
	}
	return "1"
}

func seedLine(pos Position, episode string) *history.Line {
	return &history.Line{ShowID: pos.ShowID, Episode: episode, Title: pos.Title}
}

func continueArgs(o planOptions) []string {
	args := append([]string(nil), o.extraArgs...)
	return append(args, "-c")
}

func titleArgs(title string, o planOptions) []string {
	args := append([]string(nil), o.extraArgs...)
	if o.selectIndex > 0 {
		args = append(args, "-S", fmt.Sprint(o.selectIndex))
	}
	return append(args, textutil.SanitizeTitleForSearch(title))
}

func episodeArgs(title, episode string, o planOptions) []string {
	return append(titleArgs(title, o), "-e", episode)
}
