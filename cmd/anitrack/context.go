package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"anitrack/internal/config"
	"anitrack/internal/logging"
	"anitrack/internal/tracking"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

// invocation bundles what a command needs for one invocation.
type invocation struct {
	cfg     *config.Config
	store   *tracking.Store
	logger  *slog.Logger
	runtime *logging.Runtime
}

func (s *invocation) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.runtime != nil {
		_ = s.runtime.Close()
	}
}

// withStore loads configuration, starts logging and opens the store for
// the duration of fn.
func (c *commandContext) withStore(cmd *cobra.Command, fn func(context.Context, *invocation) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	rt, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr(), c.verbose())
	if err != nil {
		return fmt.Errorf("start logging: %w", err)
	}
	s := &invocation{cfg: cfg, runtime: rt, logger: rt.Logger}
	defer s.close()

	store, err := tracking.Open(cfg.Paths.Database)
	if err != nil {
		return fmt.Errorf("open tracking database: %w", err)
	}
	s.store = store

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// A brand-new database is initialised in place; upgrading an existing
	// one stays an explicit `anitrack migrate`.
	if version, err := store.SchemaVersion(ctx); err == nil && version == 0 {
		if _, err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("initialise tracking database: %w", err)
		}
	}
	if err := fn(ctx, s); err != nil {
		if errors.Is(err, tracking.ErrSchemaOutdated) {
			return fmt.Errorf("%w (database %s)", tracking.ErrSchemaOutdated, cfg.Paths.Database)
		}
		return err
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
