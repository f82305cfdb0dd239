package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"anitrack/internal/history"
	"anitrack/internal/logging"
	"anitrack/internal/services"
)

// DefaultKillGrace is how long a cancelled player gets to exit before it is
// killed outright.
const DefaultKillGrace = 3 * time.Second

// Request describes one player launch. Nil streams inherit the process's
// standard streams.
type Request struct {
	Command string
	Args    []string
	// Env entries ("KEY=VALUE") are layered over the current environment.
	Env []string
	// Seed, when set, is written as the sole line of a private history file
	// that the player is pointed at for the duration of the run.
	Seed   *history.Line
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ExitOutcome summarises a finished run. A nonzero exit is reported here,
// never as an error.
type ExitOutcome struct {
	Success  bool
	Signaled bool
	ExitCode int
	Duration time.Duration
	// SeedDir is the private history directory used for a seeded run. It has
	// already been removed when Run returns.
	SeedDir string
	// SeededHistory is the private history file as the player left it.
	SeededHistory []byte
}

// Runner launches the player and hands it the terminal.
type Runner struct {
	logger    *slog.Logger
	now       func() time.Time
	killGrace time.Duration
	tempDir   string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the duration clock (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithKillGrace bounds how long a cancelled child may linger.
func WithKillGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.killGrace = d
		}
	}
}

// WithTempDir sets the parent directory for seed directories.
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		r.tempDir = strings.TrimSpace(dir)
	}
}

// New constructs a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger:    logging.NewNop(),
		now:       time.Now,
		killGrace: DefaultKillGrace,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = logging.NewComponentLogger(r.logger, "session")
	return r
}

// Run launches the player and blocks until it exits. The error is non-nil only
// when the player could not be started or the seed could not be prepared.
func (r *Runner) Run(ctx context.Context, req Request) (ExitOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return ExitOutcome{}, services.Wrap(services.ErrConfiguration, "session", "launch", "player command required", nil)
	}
	logger := logging.WithContext(ctx, r.logger)

	var outcome ExitOutcome
	env := append([]string(nil), req.Env...)
	if req.Seed != nil {
		dir, err := writeSeed(r.tempDir, *req.Seed)
		if err != nil {
			return ExitOutcome{}, services.Wrap(services.ErrExternalTool, "session", "seed history", "", err)
		}
		outcome.SeedDir = dir
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				logger.Warn("seed directory cleanup failed", logging.String("seed_dir", dir), logging.Error(err))
			}
		}()
		env = append(env, history.DirEnv+"="+dir)
	}

	stdin, stdout, stderr := req.Stdin, req.Stdout, req.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	guard := acquireTerminal(stdin)
	defer guard.release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, req.Args...) //nolint:gosec
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.killGrace
	guard.configure(cmd)
	cmd.Cancel = func() error {
		return interruptProcess(cmd, guard.grouped())
	}

	// Interrupts belong to the player. Termination stops the player through
	// runCtx so the seed directory and terminal are still cleaned up.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, append([]os.Signal{os.Interrupt}, terminationSignals...)...)
	defer signal.Stop(signals)
	var terminated atomic.Bool
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		for {
			select {
			case sig := <-signals:
				if sig == os.Interrupt {
					continue
				}
				logger.Warn("terminating player", logging.String("signal", sig.String()))
				terminated.Store(true)
				cancel()
			case <-watchDone:
				return
			}
		}
	}()

	logger.Debug("launching player",
		logging.String("command", command),
		logging.Any("args", req.Args),
		logging.Bool("foreground", guard.grouped()),
		logging.Bool("seeded", req.Seed != nil),
	)

	start := r.now()
	if err := cmd.Start(); err != nil {
		return ExitOutcome{}, services.Wrap(services.ErrExternalTool, "session", "launch", fmt.Sprintf("start %s", command), err)
	}
	waitErr := cmd.Wait()
	outcome.Duration = r.now().Sub(start)
	guard.release()

	state := cmd.ProcessState
	cancelled := runCtx.Err() != nil || terminated.Load()
	switch {
	case state == nil:
		outcome.ExitCode = -1
		outcome.Signaled = cancelled
	default:
		outcome.ExitCode = state.ExitCode()
		outcome.Signaled = cancelled || state.ExitCode() == -1
		outcome.Success = state.Success() && !cancelled
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !cancelled {
		logger.Warn("player wait reported an error", logging.Error(waitErr))
	}

	if outcome.SeedDir != "" {
		data, err := os.ReadFile(filepath.Join(outcome.SeedDir, history.FileName))
		switch {
		case err == nil:
			outcome.SeededHistory = data
		case !errors.Is(err, os.ErrNotExist):
			logger.Warn("seeded history unreadable", logging.Error(err))
		}
	}

	logger.Info("player exited",
		logging.Bool("success", outcome.Success),
		logging.Bool("signaled", outcome.Signaled),
		logging.Int("exit_code", outcome.ExitCode),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}

func writeSeed(parent string, line history.Line) (string, error) {
	dir, err := os.MkdirTemp(parent, "anitrack-seed-")
	if err != nil {
		return "", fmt.Errorf("create seed dir: %w", err)
	}
	path := filepath.Join(dir, history.FileName)
	if err := os.WriteFile(path, []byte(history.FormatLine(line)), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write seed history: %w", err)
	}
	return dir, nil
}
