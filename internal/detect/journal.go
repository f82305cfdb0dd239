package detect

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"anitrack/internal/textutil"
)

// LogSource returns log lines emitted by the player between since and until.
type LogSource interface {
	Lines(ctx context.Context, since, until time.Time) ([]LogLine, error)
}

// Executor runs a command and returns its standard output.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

var episodeCountPattern = regexp.MustCompile(`\s*\(\s*\d+\s+episodes?\s*\)`)

// LogKey renders the key the player logs when it starts an episode: the title
// without its episode-count parenthetical, then the episode label.
func LogKey(title, episode string) string {
	repaired := textutil.RepairTitle(title)
	prefix, _, _ := strings.Cut(repaired, "(")
	return NormalizeLogKey(prefix + " " + strings.TrimSpace(episode))
}

// MessageKey normalises a logged message for comparison with LogKey. A
// count parenthetical left in the message is dropped.
func MessageKey(message string) string {
	return NormalizeLogKey(episodeCountPattern.ReplaceAllString(message, " "))
}

// NormalizeLogKey strips ASCII punctuation and collapses whitespace.
func NormalizeLogKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r <= unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ParseJournalLine parses one line of `journalctl --output=short-unix`:
// "<secs>.<frac> <host> <tag>[pid]: <message>".
func ParseJournalLine(raw string) (LogLine, bool) {
	stamp, rest, ok := strings.Cut(strings.TrimSpace(raw), " ")
	if !ok {
		return LogLine{}, false
	}
	ts, ok := parseUnixStamp(stamp)
	if !ok {
		return LogLine{}, false
	}
	_, message, ok := strings.Cut(rest, ": ")
	if !ok {
		return LogLine{}, false
	}
	return LogLine{Time: ts, Message: strings.TrimSpace(message)}, true
}

func parseUnixStamp(raw string) (time.Time, bool) {
	secsRaw, fracRaw, _ := strings.Cut(raw, ".")
	secs, err := strconv.ParseInt(secsRaw, 10, 64)
	if err != nil || secs < 0 {
		return time.Time{}, false
	}
	var nanos int64
	if fracRaw != "" {
		if len(fracRaw) > 9 {
			fracRaw = fracRaw[:9]
		}
		fracRaw += strings.Repeat("0", 9-len(fracRaw))
		nanos, err = strconv.ParseInt(fracRaw, 10, 64)
		if err != nil || nanos < 0 {
			return time.Time{}, false
		}
	}
	return time.Unix(secs, nanos).UTC(), true
}

// ParseJournal parses every recognisable line of output.
func ParseJournal(output string) []LogLine {
	var lines []LogLine
	for _, raw := range strings.Split(output, "\n") {
		if line, ok := ParseJournalLine(raw); ok {
			lines = append(lines, line)
		}
	}
	return lines
}
