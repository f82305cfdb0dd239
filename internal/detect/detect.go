package detect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"anitrack/internal/history"
)

// Kind classifies what a session did to the history.
type Kind int

const (
	Unchanged Kind = iota
	Changed
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Changed:
		return "changed"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unchanged"
	}
}

// Source records which input produced a Changed result.
type Source string

const (
	SourceHistory Source = "history"
	SourceLog     Source = "log"
)

// Change is the detector's verdict.
type Change struct {
	Kind   Kind
	Line   history.Line
	Source Source
	// Candidates lists every show id that changed when Kind is Ambiguous.
	Candidates []string
}

// ShowID returns the changed show, or "" unless Kind is Changed.
func (c Change) ShowID() string {
	if c.Kind != Changed {
		return ""
	}
	return c.Line.ShowID
}

// Includes reports whether showID is the change or one of the candidates.
func (c Change) Includes(showID string) bool {
	if c.Kind == Changed {
		return c.Line.ShowID == showID
	}
	for _, id := range c.Candidates {
		if id == showID {
			return true
		}
	}
	return false
}

// LogLine is one entry from the player's system log.
type LogLine struct {
	Time    time.Time
	Message string
}

// TieBreak decides what happens when several shows match log lines carrying
// the same timestamp.
type TieBreak string

const (
	// TieNewest picks the show that sits latest in the after snapshot.
	TieNewest TieBreak = "newest"
	// TieAmbiguous refuses to guess and reports Unchanged.
	TieAmbiguous TieBreak = "ambiguous"
)

// ParseTieBreak validates a configured tie-break name.
func ParseTieBreak(raw string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TieNewest:
		return TieNewest, nil
	case TieAmbiguous:
		return TieAmbiguous, nil
	default:
		return "", fmt.Errorf("unknown tie break %q", raw)
	}
}

// Policy bounds the log fallback.
type Policy struct {
	// Window is how far before now a log line may be and still count.
	Window time.Duration
	// Skew tolerates log timestamps slightly ahead of the local clock.
	Skew     time.Duration
	TieBreak TieBreak
}

// DefaultPolicy returns the fallback policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{Window: 5 * time.Second, Skew: 5 * time.Second, TieBreak: TieNewest}
}

// Detector compares history snapshots.
type Detector struct {
	now    func() time.Time
	policy Policy
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock overrides the clock used for the log window.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithPolicy overrides the log fallback policy. Zero fields keep defaults.
func WithPolicy(p Policy) Option {
	return func(d *Detector) {
		if p.Window > 0 {
			d.policy.Window = p.Window
		}
		if p.Skew > 0 {
			d.policy.Skew = p.Skew
		}
		if p.TieBreak != "" {
			d.policy.TieBreak = p.TieBreak
		}
	}
}

// New constructs a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{now: time.Now, policy: DefaultPolicy()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Policy returns the effective policy.
func (d *Detector) Policy() Policy { return d.policy }

// Detect resolves which show a session touched. logs are consulted only when
// the snapshots agree. window overrides the policy window when positive.
func (d *Detector) Detect(before, after history.Snapshot, logs []LogLine, window time.Duration) Change {
	changed := Diff(before, after)
	switch {
	case len(changed) == 1:
		return Change{Kind: Changed, Line: changed[0], Source: SourceHistory}
	case len(changed) > 1:
		ids := make([]string, 0, len(changed))
		for _, line := range changed {
			ids = append(ids, line.ShowID)
		}
		sort.Strings(ids)
		return Change{Kind: Ambiguous, Candidates: ids}
	}
	if window <= 0 {
		window = d.policy.Window
	}
	return d.fromLogs(before, after, logs, window)
}

// Diff returns the after lines that are new or differ from before, in after
// order.
func Diff(before, after history.Snapshot) []history.Line {
	var out []history.Line
	for _, line := range after.Lines() {
		prev, ok := before.Get(line.ShowID)
		if !ok || prev.Episode != line.Episode || prev.Title != line.Title {
			out = append(out, line)
		}
	}
	return out
}

func (d *Detector) fromLogs(before, after history.Snapshot, logs []LogLine, window time.Duration) Change {
	known := after
	if known.Len() == 0 {
		known = before
	}
	if known.Len() == 0 || len(logs) == 0 {
		return Change{Kind: Unchanged}
	}

	now := d.now()
	lower := now.Add(-window)
	upper := now.Add(d.policy.Skew)
	var recent []LogLine
	for _, entry := range logs {
		if entry.Time.Before(lower) || entry.Time.After(upper) {
			continue
		}
		recent = append(recent, entry)
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Time.After(recent[j].Time) })

	keys := make(map[string][]history.Line)
	for _, line := range known.Lines() {
		key := LogKey(line.Title, line.Episode)
		keys[key] = append(keys[key], line)
	}

	for start := 0; start < len(recent); {
		end := start + 1
		for end < len(recent) && recent[end].Time.Equal(recent[start].Time) {
			end++
		}
		matches := matchGroup(recent[start:end], keys)
		start = end
		switch {
		case len(matches) == 1:
			return Change{Kind: Changed, Line: matches[0], Source: SourceLog}
		case len(matches) > 1:
			if d.policy.TieBreak == TieAmbiguous {
				return Change{Kind: Unchanged}
			}
			best := matches[0]
			for _, line := range matches[1:] {
				if known.Position(line.ShowID) > known.Position(best.ShowID) {
					best = line
				}
			}
			return Change{Kind: Changed, Line: best, Source: SourceLog}
		}
	}
	return Change{Kind: Unchanged}
}

func matchGroup(group []LogLine, keys map[string][]history.Line) []history.Line {
	seen := make(map[string]struct{})
	var out []history.Line
	for _, entry := range group {
		for _, line := range keys[MessageKey(entry.Message)] {
			if _, dup := seen[line.ShowID]; dup {
				continue
			}
			seen[line.ShowID] = struct{}{}
			out = append(out, line)
		}
	}
	return out
}
