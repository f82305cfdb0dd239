//go:build linux

package detect_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"anitrack/internal/detect"
)

type fakeExecutor struct {
	binary string
	args   []string
	out    string
	err    error
}

func (f *fakeExecutor) Output(_ context.Context, binary string, args []string) ([]byte, error) {
	f.binary = binary
	f.args = append([]string(nil), args...)
	return []byte(f.out), f.err
}

func TestJournalLinesBuildsQuery(t *testing.T) {
	exec := &fakeExecutor{out: "1700000001.5 host ani-cli[9]: Alpha 2\n"}
	source := detect.NewJournal("", "", detect.WithExecutor(exec))
	since := time.Unix(1700000000, 0)
	lines, err := source.Lines(context.Background(), since, since.Add(10*time.Second))
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if exec.binary != "journalctl" {
		t.Fatalf("binary = %q", exec.binary)
	}
	want := []string{"-t", "ani-cli", "--since", "@1700000000", "--until", "@1700000011", "--output=short-unix", "--no-pager"}
	if !slices.Equal(exec.args, want) {
		t.Fatalf("args = %v", exec.args)
	}
	if len(lines) != 1 || lines[0].Message != "Alpha 2" {
		t.Fatalf("lines = %#v", lines)
	}
}

func TestJournalLinesPropagatesFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("boom")}
	source := detect.NewJournal("journalctl", "ani-cli", detect.WithExecutor(exec))
	if _, err := source.Lines(context.Background(), time.Now(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}
