package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"anitrack/internal/history"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains data directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	Database string `toml:"database"`
	LogDir   string `toml:"log_dir"`
}

// Player contains settings for launching the external player.
type Player struct {
	Binary     string   `toml:"binary"`
	HistoryDir string   `toml:"history_dir"`
	Mode       string   `toml:"mode"`
	ExtraArgs  []string `toml:"extra_args"`
}

// Detection contains settings for working out what a session watched.
type Detection struct {
	LogFallback        bool   `toml:"log_fallback"`
	JournalBinary      string `toml:"journal_binary"`
	JournalTag         string `toml:"journal_tag"`
	WindowGraceSeconds int    `toml:"window_grace_seconds"`
	// TieBreak is "newest" or "ambiguous".
	TieBreak     string `toml:"tie_break"`
	WatchHistory bool   `toml:"watch_history"`
}

// Metadata contains settings for the episode catalogue API.
type Metadata struct {
	Enabled         bool   `toml:"enabled"`
	BaseURL         string `toml:"base_url"`
	SearchReferer   string `toml:"search_referer"`
	EpisodesReferer string `toml:"episodes_referer"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	RetryAttempts   int    `toml:"retry_attempts"`
	RetryDelayMS    int    `toml:"retry_delay_ms"`
	// WaitSeconds bounds how long a foreground action waits on a lookup.
	WaitSeconds int `toml:"wait_seconds"`
	// CacheHours is how long a fetched episode list is reused.
	CacheHours int `toml:"cache_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for anitrack.
//
// Configuration sections by subsystem:
//   - Paths: data directory, database file and log directory
//   - Player: player binary, history location, translation mode, extra flags
//   - Detection: log fallback and history watching
//   - Metadata: episode catalogue lookups
//   - Logging: log format, level, and rotation
type Config struct {
	Paths     Paths     `toml:"paths"`
	Player    Player    `toml:"player"`
	Detection Detection `toml:"detection"`
	Metadata  Metadata  `toml:"metadata"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/anitrack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("anitrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Paths.Database)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the player's history file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Player.HistoryDir, history.FileName)
}

// WindowGrace is the slack added around a session when reading logs.
func (c *Config) WindowGrace() time.Duration {
	return time.Duration(c.Detection.WindowGraceSeconds) * time.Second
}

// MetadataTimeout bounds a single catalogue request.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutSeconds) * time.Second
}

// MetadataRetryDelay is the pause between catalogue attempts.
func (c *Config) MetadataRetryDelay() time.Duration {
	return time.Duration(c.Metadata.RetryDelayMS) * time.Millisecond
}

// MetadataWait bounds foreground waits on background lookups.
func (c *Config) MetadataWait() time.Duration {
	return time.Duration(c.Metadata.WaitSeconds) * time.Second
}

// EpisodeCacheTTL is how long cached episode lists stay fresh.
func (c *Config) EpisodeCacheTTL() time.Duration {
	return time.Duration(c.Metadata.CacheHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "anitrack")
	}
	return "~/.local/share/anitrack"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
