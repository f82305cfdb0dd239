package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		return errors.New("paths.database must be set")
	}
	if strings.HasSuffix(c.Paths.Database, "/") {
		return errors.New("paths.database must name a file, not a directory")
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if c.Player.Binary == "" {
		return errors.New("player.binary must be set")
	}
	switch c.Player.Mode {
	case "sub", "dub":
	default:
		return fmt.Errorf("player.mode must be sub or dub, got %q", c.Player.Mode)
	}
	for _, arg := range c.Player.ExtraArgs {
		switch arg {
		case "-c", "--continue", "-e", "--episode", "-S", "--select-nth":
			return fmt.Errorf("player.extra_args must not contain %q; anitrack sets it per action", arg)
		}
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.WindowGraceSeconds < 0 {
		return errors.New("detection.window_grace_seconds must be >= 0")
	}
	switch c.Detection.TieBreak {
	case "newest", "ambiguous":
	default:
		return fmt.Errorf("detection.tie_break must be newest or ambiguous, got %q", c.Detection.TieBreak)
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if !c.Metadata.Enabled {
		return nil
	}
	parsed, err := url.Parse(c.Metadata.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("metadata.base_url must be an absolute URL, got %q", c.Metadata.BaseURL)
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		return errors.New("metadata.timeout_seconds must be positive")
	}
	if c.Metadata.RetryAttempts < 1 {
		return errors.New("metadata.retry_attempts must be at least 1")
	}
	if c.Metadata.RetryDelayMS < 0 {
		return errors.New("metadata.retry_delay_ms must be >= 0")
	}
	if c.Metadata.WaitSeconds < 0 {
		return errors.New("metadata.wait_seconds must be >= 0")
	}
	if c.Metadata.CacheHours < 0 {
		return errors.New("metadata.cache_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB <= 0 {
		return errors.New("logging.max_size_mb must be positive")
	}
	if c.Logging.MaxBackups < 0 {
		return errors.New("logging.max_backups must be >= 0")
	}
	if c.Logging.MaxAgeDays < 0 {
		return errors.New("logging.max_age_days must be >= 0")
	}
	return nil
}
