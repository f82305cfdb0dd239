package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Line is one parsed history entry.
type Line struct {
	ShowID  string `json:"show_id"`
	Episode string `json:"episode"`
	Title   string `json:"title"`
}

// Snapshot is an ordered mapping of show id to its most recent history line.
// Order follows the file: a show whose line appears later sorts later.
type Snapshot struct {
	order   []string
	lines   map[string]Line
	skipped int
}

// ParseLine decodes a single history line. Tab-delimited lines split into at
// most three fields; otherwise the line is split on whitespace and the title
// is everything after the first two tokens.
func ParseLine(raw string) (Line, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Line{}, false
	}

	var line Line
	if strings.Contains(trimmed, "\t") {
		parts := strings.SplitN(trimmed, "\t", 3)
		if len(parts) != 3 {
			return Line{}, false
		}
		line = Line{
			Episode: strings.TrimSpace(parts[0]),
			ShowID:  strings.TrimSpace(parts[1]),
			Title:   strings.TrimSpace(parts[2]),
		}
	} else {
		fields := strings.Fields(trimmed)
		if len(fields) < 3 {
			return Line{}, false
		}
		line = Line{
			Episode: fields[0],
			ShowID:  fields[1],
			Title:   strings.Join(fields[2:], " "),
		}
	}

	if line.Episode == "" || line.ShowID == "" || line.Title == "" {
		return Line{}, false
	}
	return line, true
}

// FormatLine renders a line in the tab-delimited form the player writes.
func FormatLine(line Line) string {
	return line.Episode + "\t" + line.ShowID + "\t" + line.Title + "\n"
}

// Parse reads every line from r. Malformed non-empty lines are counted in
// Skipped and otherwise ignored.
func Parse(r io.Reader) (Snapshot, error) {
	snap := Snapshot{lines: make(map[string]Line)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line, ok := ParseLine(raw)
		if !ok {
			snap.skipped++
			continue
		}
		snap.put(line)
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("scan history: %w", err)
	}
	return snap, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(raw string) Snapshot {
	snap, _ := Parse(strings.NewReader(raw))
	return snap
}

// ReadFile parses the history file at path. A missing file yields an empty
// snapshot rather than an error.
func ReadFile(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{lines: make(map[string]Line)}, nil
		}
		return Snapshot{}, fmt.Errorf("open history %s: %w", path, err)
	}
	defer file.Close()
	return Parse(file)
}

// NewSnapshot builds a snapshot from lines in order.
func NewSnapshot(lines ...Line) Snapshot {
	snap := Snapshot{lines: make(map[string]Line, len(lines))}
	for _, line := range lines {
		snap.put(line)
	}
	return snap
}

func (s *Snapshot) put(line Line) {
	if s.lines == nil {
		s.lines = make(map[string]Line)
	}
	if _, exists := s.lines[line.ShowID]; exists {
		for i, id := range s.order {
			if id == line.ShowID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.order = append(s.order, line.ShowID)
	s.lines[line.ShowID] = line
}

// Get returns the line recorded for showID.
func (s Snapshot) Get(showID string) (Line, bool) {
	line, ok := s.lines[showID]
	return line, ok
}

// Lines returns all lines in file order.
func (s Snapshot) Lines() []Line {
	out := make([]Line, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.lines[id])
	}
	return out
}

// Position reports the order index of showID, or -1 when absent.
func (s Snapshot) Position(showID string) int {
	for i, id := range s.order {
		if id == showID {
			return i
		}
	}
	return -1
}

// Len reports the number of distinct shows.
func (s Snapshot) Len() int { return len(s.order) }

// Skipped reports how many malformed lines were ignored while parsing.
func (s Snapshot) Skipped() int { return s.skipped }

// Equal reports whether both snapshots hold the same lines in the same order
// and skipped the same number of malformed lines.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.order) != len(other.order) || s.skipped != other.skipped {
		return false
	}
	for i, id := range s.order {
		if other.order[i] != id || other.lines[id] != s.lines[id] {
			return false
		}
	}
	return true
}

// SkippedWarning renders the malformed-line warning for path, or "" when
// nothing was skipped.
func (s Snapshot) SkippedWarning(path string) string {
	if s.skipped == 0 {
		return ""
	}
	return fmt.Sprintf("ignored %d malformed line(s) in %s", s.skipped, path)
}
