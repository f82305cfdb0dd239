package workflow

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"anitrack/internal/detect"
	"anitrack/internal/episode"
	"anitrack/internal/session"
	"anitrack/internal/tracking"
)

// Request describes one action run.
type Request struct {
	Action Action
	// ShowID targets a specific tracked show; empty means the most recent.
	ShowID string
	// Episodes is an already known episode list. When nil the orchestrator
	// asks its EpisodeSource.
	Episodes []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the terminal report of a run.
type Result struct {
	RunID   string
	Action  Action
	State   State
	Outcome Outcome

	Plan     episode.NavigationPlan
	Entry    *tracking.Entry
	Previous *tracking.Entry
	Change   detect.Change
	Exit     session.ExitOutcome

	Warnings       []string
	HistoryTouched bool
	Err            error

	Transitions []State
}

// Committed reports whether the run wrote to the store.
func (r Result) Committed() bool { return r.Outcome == OutcomeCommitted }

// Message renders the user-facing summary of the run.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeCommitted:
		if r.Entry == nil {
			return "Progress updated."
		}
		title, ep := r.Entry.Title, r.Entry.Episode
		switch r.Action {
		case ActionStart:
			return fmt.Sprintf("Recorded last seen: %s | episode %s", title, ep)
		case ActionNext:
			return fmt.Sprintf("Updated progress: %s -> episode %s", title, ep)
		case ActionReplay:
			return fmt.Sprintf("Replay finished: %s now on episode %s", title, ep)
		case ActionPrevious:
			return fmt.Sprintf("Previous finished: %s now on episode %s", title, ep)
		default:
			return fmt.Sprintf("Select finished: %s now on episode %s", title, ep)
		}
	case OutcomeNoTrackedEntry:
		return "No last seen entry yet. Run `anitrack start` first."
	case OutcomeNoMoreEpisodes:
		if r.Action == ActionPrevious {
			return "No previous episode available."
		}
		return "No next episode available."
	case OutcomeUnresolvable:
		label := ""
		if r.Previous != nil {
			label = r.Previous.Episode
		}
		return fmt.Sprintf("Cannot work out the %s episode from %q.", r.Action, label)
	case OutcomeSessionFailed:
		return "Playback failed/interrupted. Progress not updated."
	case OutcomeLaunchFailed:
		return fmt.Sprintf("Player failed to start: %s. Progress unchanged.", errText(r.Err))
	case OutcomeStoreFailed:
		return fmt.Sprintf("Could not update progress: %s", errText(r.Err))
	case OutcomeAmbiguous:
		return fmt.Sprintf("Several shows changed during this run (%s); nothing recorded.", strings.Join(r.Change.Candidates, ", "))
	case OutcomeNoChange:
		if r.HistoryTouched {
			return "History changed but no parseable watch entry was detected from this run."
		}
		return "No new history entry detected from this run."
	default:
		return ""
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// outcomeForPlanError maps navigator errors onto outcomes.
func outcomeForPlanError(err error) Outcome {
	switch {
	case errors.Is(err, episode.ErrNoMoreEpisodes):
		return OutcomeNoMoreEpisodes
	case errors.Is(err, episode.ErrNoTrackedEntry):
		return OutcomeNoTrackedEntry
	default:
		return OutcomeUnresolvable
	}
}
