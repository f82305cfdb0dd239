package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"anitrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Metadata lookups and the journal fallback are off so tests never reach the
// network or the host journal; options turn them back on.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.Database = filepath.Join(base, "data", "anitrack.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "data", "logs")
	cfgVal.Player.HistoryDir = filepath.Join(base, "state", "ani-cli")
	cfgVal.Metadata.Enabled = false
	cfgVal.Detection.LogFallback = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMetadataURL enables catalogue lookups against url (usually an
// httptest server).
func WithMetadataURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.Enabled = true
		b.cfg.Metadata.BaseURL = url
		b.cfg.Metadata.RetryDelayMS = 1
	}
}

// WithTieBreak sets the log fallback tie-break policy.
func WithTieBreak(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.TieBreak = policy
	}
}

// WithStubbedPlayer writes script as an executable player and points the
// config at it. The script runs under /bin/sh.
func WithStubbedPlayer(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ani-cli")
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
			b.t.Fatalf("write stub player: %v", err)
		}
		b.cfg.Player.Binary = target
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the player is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ani-cli"}
		}
		binDir := filepath.Join(b.baseDir, "path-bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
