package episode

import (
	"math"
	"strconv"
	"strings"
)

const labelEpsilon = 1e-6

// ParseOrdinal parses a label such as "12" or "13.5".
func ParseOrdinal(label string) (float64, bool) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// FormatOrdinal renders an ordinal back into display form: whole numbers
// without a fraction, others with the shortest exact decimal.
func FormatOrdinal(value float64) string {
	if IsEffectiveInteger(value) {
		return strconv.FormatInt(int64(math.Round(value)), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// IsEffectiveInteger reports whether value is integral within tolerance.
func IsEffectiveInteger(value float64) bool {
	return math.Abs(value-math.Round(value)) < labelEpsilon
}

// IntegerLabel renders value as a whole-number label. Negative or
// non-integral values yield false.
func IntegerLabel(value float64) (string, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return "", false
	}
	rounded := math.Round(value)
	if !IsEffectiveInteger(rounded) {
		return "", false
	}
	return strconv.FormatInt(int64(rounded), 10), true
}

// LabelsMatch compares two labels exactly, or numerically when both parse.
func LabelsMatch(a, b string) bool {
	left := strings.TrimSpace(a)
	right := strings.TrimSpace(b)
	if left == right {
		return true
	}
	x, okX := ParseOrdinal(left)
	y, okY := ParseOrdinal(right)
	return okX && okY && math.Abs(x-y) < labelEpsilon
}

// CompareLabels orders numeric labels numerically ahead of non-numeric ones,
// which sort lexically.
func CompareLabels(a, b string) int {
	x, okX := ParseOrdinal(a)
	y, okY := ParseOrdinal(b)
	switch {
	case okX && okY:
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case okX:
		return -1
	case okY:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// IndexOf returns the index of label in episodes, or -1.
func IndexOf(episodes []string, label string) int {
	for i, candidate := range episodes {
		if LabelsMatch(candidate, label) {
			return i
		}
	}
	return -1
}

// PreviousTarget computes the episode before label. It returns false at the
// floor: the first list element, or a step that would go below zero.
func PreviousTarget(label string, episodes []string) (string, bool, error) {
	if idx := IndexOf(episodes, label); idx >= 0 {
		if idx == 0 {
			return "", false, nil
		}
		return episodes[idx-1], true, nil
	}
	current, ok := ParseOrdinal(label)
	if !ok {
		return "", false, ErrUnresolvableEpisode
	}
	prev := current - 1
	if prev < -labelEpsilon {
		return "", false, nil
	}
	return FormatOrdinal(prev), true, nil
}

// NextTarget computes the episode after label. total is the known episode
// count, or zero when unknown. It returns false at the ceiling.
func NextTarget(label string, episodes []string, total int) (string, bool, error) {
	if idx := IndexOf(episodes, label); idx >= 0 {
		if idx+1 >= len(episodes) {
			return "", false, nil
		}
		return episodes[idx+1], true, nil
	}
	current, ok := ParseOrdinal(label)
	if !ok {
		return "", false, ErrUnresolvableEpisode
	}
	// Without a list the step is one episode, so 13.5 is followed by 14.5.
	next := current + 1
	if total > 0 && next > float64(total)+labelEpsilon {
		return "", false, nil
	}
	return FormatOrdinal(next), true, nil
}

// replaySeed is the label to seed so that continuing lands on label again.
func replaySeed(label string, episodes []string) (string, bool) {
	if idx := IndexOf(episodes, label); idx >= 0 {
		if idx == 0 {
			return "", false
		}
		return episodes[idx-1], true
	}
	current, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || current <= 1 {
		return "", false
	}
	return strconv.Itoa(current - 1), true
}

// previousSeed is the label to seed so that continuing lands on the episode
// before label.
func previousSeed(label string, episodes []string) (string, bool) {
	if idx := IndexOf(episodes, label); idx >= 0 {
		if idx <= 1 {
			return "", false
		}
		return episodes[idx-2], true
	}
	target, ok, err := PreviousTarget(label, nil)
	if err != nil || !ok {
		return "", false
	}
	value, ok := ParseOrdinal(target)
	if !ok || value <= 1 {
		return "", false
	}
	return IntegerLabel(value - 1)
}

// HasNext reports whether Next could produce a target.
func HasNext(label string, episodes []string, total int) bool {
	_, ok, err := NextTarget(label, episodes, total)
	return ok || err != nil
}

// HasPrevious reports whether Previous could produce a target.
func HasPrevious(label string, episodes []string) bool {
	_, ok, _ := PreviousTarget(label, episodes)
	return ok
}

// ProgressPosition returns the 1-based position of label for display,
// clamped to total.
func ProgressPosition(label string, total int, episodes []string) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	if idx := IndexOf(episodes, label); idx >= 0 {
		return min(idx+1, total), true
	}
	current, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || current < 0 {
		return 0, false
	}
	return min(current, total), true
}
