//go:build linux

package detect

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Journal reads player log lines from systemd-journald.
type Journal struct {
	binary string
	tag    string
	exec   Executor
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithExecutor injects a command runner (primarily for tests).
func WithExecutor(exec Executor) JournalOption {
	return func(j *Journal) {
		if exec != nil {
			j.exec = exec
		}
	}
}

// NewJournal returns a LogSource backed by journalctl. Empty arguments fall
// back to "journalctl" and the "ani-cli" tag.
func NewJournal(binary, tag string, opts ...JournalOption) LogSource {
	j := &Journal{
		binary: strings.TrimSpace(binary),
		tag:    strings.TrimSpace(tag),
		exec:   commandExecutor{},
	}
	if j.binary == "" {
		j.binary = "journalctl"
	}
	if j.tag == "" {
		j.tag = "ani-cli"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j
}

// Lines queries the journal for the tag between since and until, both
// rounded outward to whole seconds.
func (j *Journal) Lines(ctx context.Context, since, until time.Time) ([]LogLine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	args := []string{
		"-t", j.tag,
		"--since", fmt.Sprintf("@%d", since.Unix()),
		"--until", fmt.Sprintf("@%d", until.Unix()+1),
		"--output=short-unix",
		"--no-pager",
	}
	out, err := j.exec.Output(ctx, j.binary, args)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	return ParseJournal(string(out)), nil
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return out, nil
}
