package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"anitrack/internal/history"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePlayer(); err != nil {
		return err
	}
	c.normalizeDetection()
	c.normalizeMetadata()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir()
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, "anitrack.db")
	}
	if c.Paths.Database, err = expandPath(strings.TrimSpace(c.Paths.Database)); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlayer() error {
	if value, ok := os.LookupEnv(PlayerBinaryEnv); ok && strings.TrimSpace(value) != "" {
		c.Player.Binary = value
	}
	c.Player.Binary = strings.TrimSpace(c.Player.Binary)
	if c.Player.Binary == "" {
		c.Player.Binary = defaultPlayerBinary
	}

	dir := history.ResolveDir(c.Player.HistoryDir, os.Getenv)
	var err error
	if c.Player.HistoryDir, err = expandPath(dir); err != nil {
		return fmt.Errorf("player.history_dir: %w", err)
	}

	if strings.TrimSpace(c.Player.Mode) == "" || c.Player.Mode == defaultPlayerMode {
		if value, ok := os.LookupEnv(PlayerModeEnv); ok && strings.TrimSpace(value) != "" {
			c.Player.Mode = value
		}
	}
	c.Player.Mode = strings.ToLower(strings.TrimSpace(c.Player.Mode))
	if c.Player.Mode == "" {
		c.Player.Mode = defaultPlayerMode
	}

	args := c.Player.ExtraArgs[:0]
	for _, arg := range c.Player.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.Player.ExtraArgs = args
	return nil
}

func (c *Config) normalizeDetection() {
	c.Detection.JournalBinary = strings.TrimSpace(c.Detection.JournalBinary)
	if c.Detection.JournalBinary == "" {
		c.Detection.JournalBinary = defaultJournalBinary
	}
	c.Detection.JournalTag = strings.TrimSpace(c.Detection.JournalTag)
	if c.Detection.JournalTag == "" {
		c.Detection.JournalTag = defaultJournalTag
	}
	c.Detection.TieBreak = strings.ToLower(strings.TrimSpace(c.Detection.TieBreak))
	if c.Detection.TieBreak == "" {
		c.Detection.TieBreak = defaultTieBreak
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.BaseURL = strings.TrimSpace(c.Metadata.BaseURL)
	if c.Metadata.BaseURL == "" {
		c.Metadata.BaseURL = defaultMetadataBaseURL
	}
	c.Metadata.SearchReferer = strings.TrimSpace(c.Metadata.SearchReferer)
	if c.Metadata.SearchReferer == "" {
		c.Metadata.SearchReferer = defaultSearchReferer
	}
	c.Metadata.EpisodesReferer = strings.TrimSpace(c.Metadata.EpisodesReferer)
	if c.Metadata.EpisodesReferer == "" {
		c.Metadata.EpisodesReferer = defaultEpisodesReferer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
