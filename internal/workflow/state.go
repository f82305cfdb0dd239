package workflow

import (
	"fmt"
	"strings"

	"anitrack/internal/episode"
)

// Action is what the user asked the orchestrator to do.
type Action string

const (
	// ActionStart launches a fresh search and records whatever gets watched.
	ActionStart    Action = "start"
	ActionNext     Action = Action(episode.ActionNext)
	ActionPrevious Action = Action(episode.ActionPrevious)
	ActionReplay   Action = Action(episode.ActionReplay)
	ActionSelect   Action = Action(episode.ActionSelect)
)

// ParseAction maps user input onto an Action.
func ParseAction(raw string) (Action, error) {
	if strings.EqualFold(strings.TrimSpace(raw), string(ActionStart)) {
		return ActionStart, nil
	}
	nav, err := episode.ParseAction(raw)
	if err != nil {
		return "", err
	}
	return Action(nav), nil
}

// Tracked reports whether the action navigates from an existing entry.
func (a Action) Tracked() bool { return a != ActionStart }

// State is a step of a single orchestrated run.
type State int

const (
	StateIdle State = iota
	StateResolving
	StatePlanning
	StateLaunching
	StateAwaitingExit
	StateDetecting
	StateCommitting
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateResolving:    "resolving",
	StatePlanning:     "planning",
	StateLaunching:    "launching",
	StateAwaitingExit: "awaiting_exit",
	StateDetecting:    "detecting",
	StateCommitting:   "committing",
	StateDone:         "done",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateAborted }

// allowed lists the legal successors of each non-terminal state. Committing
// only follows Detecting, and Detecting only follows AwaitingExit.
var allowed = map[State][]State{
	StateIdle:         {StateResolving},
	StateResolving:    {StatePlanning, StateAborted},
	StatePlanning:     {StateLaunching, StateDone, StateAborted},
	StateLaunching:    {StateAwaitingExit, StateAborted},
	StateAwaitingExit: {StateDetecting, StateAborted},
	StateDetecting:    {StateCommitting, StateDone, StateAborted},
	StateCommitting:   {StateDone, StateAborted},
}

func canTransition(from, to State) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Outcome summarises how a run ended.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeCommitted      Outcome = "committed"
	OutcomeNoTrackedEntry Outcome = "no_tracked_entry"
	OutcomeNoMoreEpisodes Outcome = "no_more_episodes"
	OutcomeUnresolvable   Outcome = "unresolvable"
	OutcomeSessionFailed  Outcome = "session_failed"
	OutcomeLaunchFailed   Outcome = "launch_failed"
	OutcomeAmbiguous      Outcome = "ambiguous"
	OutcomeNoChange       Outcome = "no_change"
	OutcomeStoreFailed    Outcome = "store_failed"
)

// Failed reports whether the outcome should be treated as an error by
// callers. Informational no-ops are not failures.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeUnresolvable, OutcomeSessionFailed, OutcomeLaunchFailed, OutcomeStoreFailed:
		return true
	default:
		return false
	}
}
