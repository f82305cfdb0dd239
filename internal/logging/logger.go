package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"anitrack/internal/config"
)

// LogFileName is the active log file inside the configured log directory.
const LogFileName = "anitrack.log"

// Options describes logger construction parameters.
type Options struct {
	Level     string
	Format    string
	Writer    io.Writer
	AddSource bool
	// SessionID tags every record when set.
	SessionID string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	handler, err := newHandler(opts)
	if err != nil {
		return nil, err
	}
	if opts.SessionID != "" {
		handler = newSessionIDHandler(handler, opts.SessionID)
	}
	return slog.New(handler), nil
}

func newHandler(opts Options) (slog.Handler, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	addSource := opts.AddSource || levelVar.Level() <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		return newJSONHandler(writer, levelVar, addSource), nil
	case "console", "":
		return newPrettyHandler(writer, levelVar, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// Runtime bundles the process logger with the rotating file behind it.
type Runtime struct {
	Logger    *slog.Logger
	SessionID string
	Path      string
	file      *lumberjack.Logger
}

// Close flushes and closes the log file.
func (r *Runtime) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// NewFromConfig creates the application logger. Records go to a rotating file
// under the configured log directory; when verbose is set the same records are
// teed to stderr in console form.
func NewFromConfig(cfg *config.Config, stderr io.Writer, verbose bool) (*Runtime, error) {
	sessionID := uuid.NewString()
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console", Writer: stderr, SessionID: sessionID})
		if err != nil {
			return nil, err
		}
		return &Runtime{Logger: logger, SessionID: sessionID}, nil
	}

	logDir := strings.TrimSpace(cfg.Paths.LogDir)
	if logDir == "" {
		return nil, errors.New("log directory is not configured")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	path := filepath.Join(logDir, LogFileName)
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	}

	fileHandler, err := newHandler(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Writer: file})
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	handlers := []slog.Handler{fileHandler}
	if verbose && stderr != nil {
		level := cfg.Logging.Level
		if parseLevel(level) > slog.LevelInfo {
			level = "info"
		}
		console, err := newHandler(Options{Level: level, Format: "console", Writer: stderr})
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		handlers = append(handlers, console)
	}

	handler := newSessionIDHandler(TeeHandler(handlers...), sessionID)
	return &Runtime{
		Logger:    slog.New(handler),
		SessionID: sessionID,
		Path:      path,
		file:      file,
	}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
