package textutil

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const episodesSuffix = "episodes"

var folder = cases.Fold()

// SanitizeTitleForSearch removes a trailing "(N episodes)" parenthetical so the
// remaining title can be handed to the player as a search query.
func SanitizeTitleForSearch(title string) string {
	trimmed := strings.TrimSpace(title)
	open := strings.LastIndex(trimmed, "(")
	if open < 0 || !strings.HasSuffix(trimmed, ")") {
		return trimmed
	}
	if !strings.Contains(trimmed[open:], episodesSuffix) {
		return trimmed
	}
	return strings.TrimSpace(trimmed[:open])
}

// ParseTitleTotal splits "Title (N episodes)" into its base title and episode
// count. The boolean is false when the title carries no usable count.
func ParseTitleTotal(title string) (string, int, bool) {
	trimmed := strings.TrimSpace(title)
	open := strings.LastIndex(trimmed, "(")
	if open < 0 || !strings.HasSuffix(trimmed, ")") {
		return trimmed, 0, false
	}
	inner := strings.TrimSpace(trimmed[open+1 : len(trimmed)-1])
	count, ok := strings.CutSuffix(inner, " "+episodesSuffix)
	if !ok {
		return trimmed, 0, false
	}
	total, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || total < 0 {
		return trimmed, 0, false
	}
	return strings.TrimSpace(trimmed[:open]), total, true
}

// RepairTitle inserts the missing space in titles such as
// "Naruto(220 episodes)" so they read "Naruto (220 episodes)". Titles without
// an episode-count parenthetical are returned trimmed but otherwise unchanged.
func RepairTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	open := strings.LastIndex(trimmed, "(")
	if open <= 0 || !strings.HasSuffix(trimmed, ")") {
		return trimmed
	}
	if !strings.Contains(trimmed[open:], episodesSuffix) {
		return trimmed
	}
	if trimmed[open-1] == ' ' {
		return trimmed
	}
	return trimmed[:open] + " " + trimmed[open:]
}

// NormalizeForMatch folds a title into lowercase alphanumeric words separated
// by single spaces. Compatibility forms are decomposed first so full-width and
// accented variants compare equal to their plain spellings.
func NormalizeForMatch(title string) string {
	decomposed := norm.NFKD.String(title)
	var b strings.Builder
	b.Grow(len(decomposed))
	pendingSpace := false
	for _, r := range folder.String(decomposed) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
