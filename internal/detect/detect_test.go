package detect_test

import (
	"slices"
	"testing"
	"time"

	"anitrack/internal/detect"
	"anitrack/internal/history"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newDetector(policy detect.Policy) *detect.Detector {
	return detect.New(
		detect.WithClock(func() time.Time { return fixedNow }),
		detect.WithPolicy(policy),
	)
}

func TestDetectSingleChange(t *testing.T) {
	before := history.NewSnapshot(
		history.Line{ShowID: "a", Episode: "1", Title: "Alpha"},
		history.Line{ShowID: "b", Episode: "3", Title: "Beta"},
	)
	after := history.NewSnapshot(
		history.Line{ShowID: "a", Episode: "1", Title: "Alpha"},
		history.Line{ShowID: "b", Episode: "4", Title: "Beta"},
	)
	change := newDetector(detect.Policy{}).Detect(before, after, nil, 0)
	if change.Kind != detect.Changed || change.Line.ShowID != "b" || change.Line.Episode != "4" {
		t.Fatalf("unexpected change %#v", change)
	}
	if change.Source != detect.SourceHistory {
		t.Fatalf("expected history source, got %q", change.Source)
	}
}

func TestDetectNewShowCountsAsChange(t *testing.T) {
	after := history.NewSnapshot(history.Line{ShowID: "n", Episode: "1", Title: "New"})
	change := newDetector(detect.Policy{}).Detect(history.NewSnapshot(), after, nil, 0)
	if change.ShowID() != "n" {
		t.Fatalf("expected new show, got %#v", change)
	}
}

func TestDetectAmbiguous(t *testing.T) {
	before := history.NewSnapshot(history.Line{ShowID: "a", Episode: "1", Title: "Alpha"})
	after := history.NewSnapshot(
		history.Line{ShowID: "c", Episode: "1", Title: "Gamma"},
		history.Line{ShowID: "a", Episode: "2", Title: "Alpha"},
	)
	change := newDetector(detect.Policy{}).Detect(before, after, nil, 0)
	if change.Kind != detect.Ambiguous {
		t.Fatalf("expected ambiguous, got %v", change.Kind)
	}
	if !slices.Equal(change.Candidates, []string{"a", "c"}) {
		t.Fatalf("candidates = %v", change.Candidates)
	}
	if !change.Includes("c") || change.Includes("z") {
		t.Fatal("Includes mismatch")
	}
}

func TestDetectUnchangedWithoutLogs(t *testing.T) {
	snap := history.NewSnapshot(history.Line{ShowID: "a", Episode: "1", Title: "Alpha"})
	if change := newDetector(detect.Policy{}).Detect(snap, snap, nil, 0); change.Kind != detect.Unchanged {
		t.Fatalf("expected unchanged, got %v", change.Kind)
	}
}

func TestLogFallbackRepairsTitle(t *testing.T) {
	snap := history.NewSnapshot(
		history.Line{ShowID: "nar", Episode: "1", Title: "Naruto(220 episodes)"},
		history.Line{ShowID: "dn", Episode: "1", Title: "Death Note: Rewrite (1 episodes)"},
	)
	logs := []detect.LogLine{
		{Time: fixedNow.Add(-2 * time.Second), Message: "Naruto 1"},
	}
	change := newDetector(detect.Policy{}).Detect(snap, snap, logs, 10*time.Second)
	if change.Kind != detect.Changed || change.Line.ShowID != "nar" || change.Source != detect.SourceLog {
		t.Fatalf("unexpected change %#v", change)
	}
}

func TestLogFallbackWindowBoundaries(t *testing.T) {
	snap := history.NewSnapshot(history.Line{ShowID: "a", Episode: "2", Title: "Alpha (12 episodes)"})
	policy := detect.Policy{Window: 30 * time.Second, Skew: 2 * time.Second}
	cases := []struct {
		name   string
		offset time.Duration
		want   detect.Kind
	}{
		{"at lower edge", -30 * time.Second, detect.Changed},
		{"before window", -31 * time.Second, detect.Unchanged},
		{"within skew", 2 * time.Second, detect.Changed},
		{"beyond skew", 3 * time.Second, detect.Unchanged},
	}
	for _, tc := range cases {
		logs := []detect.LogLine{{Time: fixedNow.Add(tc.offset), Message: "Alpha 2"}}
		change := newDetector(policy).Detect(snap, snap, logs, 0)
		if change.Kind != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, change.Kind, tc.want)
		}
	}
}

func TestLogFallbackPrefersNewestGroup(t *testing.T) {
	snap := history.NewSnapshot(
		history.Line{ShowID: "a", Episode: "2", Title: "Alpha"},
		history.Line{ShowID: "b", Episode: "5", Title: "Beta"},
	)
	logs := []detect.LogLine{
		{Time: fixedNow.Add(-1 * time.Second), Message: "Alpha 2"},
		{Time: fixedNow.Add(-4 * time.Second), Message: "Beta 5"},
		{Time: fixedNow.Add(-1 * time.Second), Message: "unrelated"},
	}
	change := newDetector(detect.Policy{}).Detect(snap, snap, logs, 0)
	if change.Line.ShowID != "a" {
		t.Fatalf("expected newest log line to win, got %#v", change)
	}
}

func TestLogFallbackTieBreakPolicies(t *testing.T) {
	snap := history.NewSnapshot(
		history.Line{ShowID: "a", Episode: "2", Title: "Alpha"},
		history.Line{ShowID: "b", Episode: "5", Title: "Beta"},
	)
	at := fixedNow.Add(-time.Second)
	logs := []detect.LogLine{
		{Time: at, Message: "Beta 5"},
		{Time: at, Message: "Alpha 2"},
	}

	newest := newDetector(detect.Policy{TieBreak: detect.TieNewest}).Detect(snap, snap, logs, 0)
	if newest.Kind != detect.Changed || newest.Line.ShowID != "b" {
		t.Fatalf("newest tie break: %#v", newest)
	}

	strict := newDetector(detect.Policy{TieBreak: detect.TieAmbiguous}).Detect(snap, snap, logs, 0)
	if strict.Kind != detect.Unchanged {
		t.Fatalf("ambiguous tie break: %#v", strict)
	}
}

func TestParseTieBreak(t *testing.T) {
	if tb, err := detect.ParseTieBreak(""); err != nil || tb != detect.TieNewest {
		t.Fatalf("default tie break = %q, %v", tb, err)
	}
	if _, err := detect.ParseTieBreak("oldest"); err == nil {
		t.Fatal("expected error for unknown tie break")
	}
}

func TestLogKeys(t *testing.T) {
	if got := detect.LogKey("Death Note: Rewrite (1 episodes)", "1"); got != "Death Note Rewrite 1" {
		t.Fatalf("LogKey = %q", got)
	}
	if got := detect.LogKey("Naruto(220 episodes)", "1"); got != "Naruto 1" {
		t.Fatalf("LogKey repaired = %q", got)
	}
	if got := detect.MessageKey("Naruto(220 episodes) 1"); got != "Naruto 1" {
		t.Fatalf("MessageKey = %q", got)
	}
}

func TestParseJournalLine(t *testing.T) {
	line, ok := detect.ParseJournalLine("1772039324.974245 fedora ani-cli[407433]: Shingeki no Kyojin 0")
	if !ok {
		t.Fatal("expected journal line to parse")
	}
	if line.Message != "Shingeki no Kyojin 0" {
		t.Fatalf("message = %q", line.Message)
	}
	if line.Time.UnixNano() != 1_772_039_324_974_245_000 {
		t.Fatalf("time = %d", line.Time.UnixNano())
	}
	for _, raw := range []string{"", "nospace", "abc host tag: msg", "1.5 host no-colon"} {
		if _, ok := detect.ParseJournalLine(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
	if got := len(detect.ParseJournal("-- No entries --\n1.0 h t[1]: A 1\n")); got != 1 {
		t.Fatalf("ParseJournal kept %d lines", got)
	}
}
