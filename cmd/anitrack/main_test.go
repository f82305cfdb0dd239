package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anitrack/internal/testsupport"
	"anitrack/internal/tracking"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestListEmptyAndPopulated(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No tracked shows yet")

	testsupport.Track(t, env.store, "a1", "Frieren (28 episodes)", "5")
	testsupport.Track(t, env.store, "b2", "Dungeon Meshi", "12")

	out, _, err = runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Dungeon Meshi")
	requireContains(t, out, "5 of 28")
	if strings.Index(out, "Dungeon Meshi") > strings.Index(out, "Frieren") {
		t.Fatalf("expected most recent first:\n%s", out)
	}
}

func TestListJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.Track(t, env.store, "a1", "Frieren (28 episodes)", "5")

	out, _, err := runCLI(t, []string{"list", "--output", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("list json: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(decoded) != 1 || decoded[0]["show_id"] != "a1" || decoded[0]["episode"] != "5" || decoded[0]["progress"] != "5 of 28" {
		t.Fatalf("unexpected json %v", decoded)
	}

	out, _, err = runCLI(t, []string{"list", "-o", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("list yaml: %v", err)
	}
	requireContains(t, out, "show_id: a1")

	if _, _, err := runCLI(t, []string{"list", "-o", "xml"}, env.configPath); err == nil {
		t.Fatal("expected unknown format to fail")
	}
}

func TestListSinceFiltersOldEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.Track(t, env.store, "a1", "Frieren", "5")

	out, _, err := runCLI(t, []string{"list", "--since", "1h"}, env.configPath)
	if err != nil {
		t.Fatalf("list --since: %v", err)
	}
	requireContains(t, out, "Frieren")

	out, _, err = runCLI(t, []string{"list", "--since", "2099-01-01"}, env.configPath)
	if err != nil {
		t.Fatalf("list --since future: %v", err)
	}
	requireContains(t, out, "No tracked shows yet")
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)

	got, err := parseSince("48h", now)
	if err != nil || !got.Equal(now.Add(-48*time.Hour)) {
		t.Fatalf("duration: %v %v", got, err)
	}
	got, err = parseSince("2026-03-01", now)
	if err != nil || !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: %v %v", got, err)
	}
	got, err = parseSince("yesterday", now)
	if err != nil {
		t.Fatalf("natural language: %v", err)
	}
	if got.Day() != 11 || got.Month() != time.March {
		t.Fatalf("expected yesterday to land on March 11, got %v", got)
	}
	if _, err := parseSince("whenever", now); err == nil {
		t.Fatal("expected unparseable input to fail")
	}
}

func TestDeleteWithYes(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.Track(t, env.store, "a1", "Frieren", "5")

	out, _, err := runCLI(t, []string{"delete", "a1", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Stopped tracking Frieren")

	entry, err := env.store.Get(context.Background(), "a1")
	if err != nil || entry != nil {
		t.Fatalf("expected entry removed, got %v %v", entry, err)
	}

	out, _, err = runCLI(t, []string{"delete", "a1", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	requireContains(t, out, "is not tracked")
}

func TestHistoryShowsParsedLinesAndWarnings(t *testing.T) {
	env := setupCLITestEnv(t)
	writeHistory(t, env.cfg, "3\tabc\tFrieren (28 episodes)", "garbage", "7\txyz\tDungeon Meshi")

	out, errOut, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "abc")
	requireContains(t, out, "Dungeon Meshi")
	requireContains(t, errOut, "ignored 1 malformed line(s)")
}

func TestMigrateStatusAndNoop(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"migrate"}, env.configPath)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	requireContains(t, out, "already at schema version")

	out, _, err = runCLI(t, []string{"migrate", "--status"}, env.configPath)
	if err != nil {
		t.Fatalf("migrate --status: %v", err)
	}
	requireContains(t, out, "yes")
}

func TestFreshDatabaseIsInitialisedOnFirstUse(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Paths.Database = filepath.Join(env.baseDir, "fresh", "anitrack.db")
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"list"}, env.configPath); err != nil {
		t.Fatalf("list on fresh database: %v", err)
	}
	store, err := tracking.Open(env.cfg.Paths.Database)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	version, err := store.SchemaVersion(context.Background())
	if err != nil || version != tracking.CurrentVersion() {
		t.Fatalf("expected version %d, got %d (%v)", tracking.CurrentVersion(), version, err)
	}
}

func TestNextUpdatesProgressThroughPlayer(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedPlayer(
		`[ "$1" = "-c" ] || exit 9
printf '6\ta1\tFrieren\n' > "$ANI_CLI_HIST_DIR/ani-hsts"`))
	testsupport.Track(t, env.store, "a1", "Frieren", "5")

	out, _, err := runCLI(t, []string{"next"}, env.configPath)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	requireContains(t, out, "Updated progress: Frieren -> episode 6")

	entry, err := env.store.Get(context.Background(), "a1")
	if err != nil || entry == nil || entry.Episode != "6" {
		t.Fatalf("expected episode 6, got %v %v", entry, err)
	}
}

func TestFailedPlaybackExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedPlayer(`exit 3`))
	testsupport.Track(t, env.store, "a1", "Frieren", "5")

	out, _, err := runCLI(t, []string{"replay", "--show", "a1"}, env.configPath)
	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 1 {
		t.Fatalf("expected exit error, got %v", err)
	}
	requireContains(t, out, "Playback failed/interrupted")
	requireContains(t, out, "ani-cli exited with status 3")

	entry, err := env.store.Get(context.Background(), "a1")
	if err != nil || entry == nil || entry.Episode != "5" {
		t.Fatalf("expected episode 5 untouched, got %v %v", entry, err)
	}
}

func TestNextWithoutTrackedEntry(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedPlayer(`exit 0`))

	out, _, err := runCLI(t, []string{"next"}, env.configPath)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	requireContains(t, out, "No last seen entry yet")
}

func TestDoctorReportsMissingPlayer(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Player.Binary = filepath.Join(env.baseDir, "missing", "ani-cli")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "missing required dependencies: ani-cli") {
		t.Fatalf("expected missing dependency error, got %v", err)
	}
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "Schema")
}

func TestDoctorHealthy(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedPlayer(`exit 0`))

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK]")
	requireContains(t, out, "version")
}
