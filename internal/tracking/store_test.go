package tracking_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"anitrack/internal/services"
	"anitrack/internal/testsupport"
	"anitrack/internal/tracking"
)

func TestOpenRequiresMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "anitrack.db")
	store, err := tracking.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := store.Latest(context.Background()); !errors.Is(err, tracking.ErrSchemaOutdated) {
		t.Fatalf("expected ErrSchemaOutdated before migrate, got %v", err)
	}
	if !errors.Is(func() error { _, err := store.Latest(context.Background()); return err }(), services.ErrStore) {
		t.Fatal("expected store marker on outdated schema")
	}

	report, err := store.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if report.From != 0 || report.To != tracking.CurrentVersion() || len(report.Applied) != tracking.CurrentVersion() {
		t.Fatalf("unexpected report %#v", report)
	}

	again, err := store.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if again.Changed() {
		t.Fatalf("expected no-op second migrate, got %#v", again)
	}
}

func TestUpsertIsLastWriteWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Track(t, store, "show-1", "Show One", "1")
	updated := testsupport.Track(t, store, "show-1", "Show One Renamed", "2.5")

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Title != "Show One Renamed" || latest.Episode != "2.5" {
		t.Fatalf("unexpected latest %#v", latest)
	}
	if latest.Ordinal == nil || *latest.Ordinal != 2.5 {
		t.Fatalf("expected ordinal 2.5, got %v", latest.Ordinal)
	}
	if !latest.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Fatalf("stored stamp %v differs from returned %v", latest.UpdatedAt, updated.UpdatedAt)
	}

	entries, err := store.ListByRecency(ctx)
	if err != nil {
		t.Fatalf("ListByRecency: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single row, got %d", len(entries))
	}
}

func TestUpsertStampsAreStrictlyIncreasing(t *testing.T) {
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "anitrack.db")
	store, err := tracking.Open(path, tracking.WithClock(func() time.Time { return frozen }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	ids := []string{"a", "b", "c", "a"}
	var last time.Time
	for _, id := range ids {
		entry := testsupport.Track(t, store, id, "Title "+id, "1")
		if !entry.UpdatedAt.After(last) {
			t.Fatalf("stamp %v not after %v", entry.UpdatedAt, last)
		}
		last = entry.UpdatedAt
	}

	entries, err := store.ListByRecency(context.Background())
	if err != nil {
		t.Fatalf("ListByRecency: %v", err)
	}
	var order []string
	for _, e := range entries {
		order = append(order, e.ShowID)
	}
	if !slices.Equal(order, []string{"a", "c", "b"}) {
		t.Fatalf("unexpected recency order %v", order)
	}
}

func TestUpsertIgnoresCallerTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	past := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	entry, err := store.Upsert(context.Background(), tracking.Entry{ShowID: "x", Title: "X", Episode: "3", UpdatedAt: past})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if entry.UpdatedAt.Equal(past) {
		t.Fatal("expected store to assign its own timestamp")
	}
}

func TestUpsertRejectsEmptyFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := store.Upsert(context.Background(), tracking.Entry{ShowID: " ", Episode: "1"}); !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestLatestEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	latest, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected no entry, got %#v", latest)
	}
}

func TestDeleteAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Track(t, store, "keep", "Keep", "4")
	testsupport.Track(t, store, "drop", "Drop", "9")
	if err := store.PutEpisodeList(ctx, "drop", []string{"1", "2"}); err != nil {
		t.Fatalf("PutEpisodeList: %v", err)
	}

	removed, err := store.Delete(ctx, "drop")
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	removed, err = store.Delete(ctx, "drop")
	if err != nil || removed {
		t.Fatalf("second Delete = %v, %v", removed, err)
	}
	if entry, err := store.Get(ctx, "drop"); err != nil || entry != nil {
		t.Fatalf("expected deleted entry to be gone, got %#v %v", entry, err)
	}
	if _, ok, _ := store.EpisodeList(ctx, "drop", 0); ok {
		t.Fatal("expected cached episode list to be removed with the entry")
	}
	latest, err := store.Latest(ctx)
	if err != nil || latest == nil || latest.ShowID != "keep" {
		t.Fatalf("expected keep to remain latest, got %#v %v", latest, err)
	}
}

func TestListSince(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-48 * time.Hour)
	path := filepath.Join(t.TempDir(), "anitrack.db")
	store, err := tracking.Open(path, tracking.WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	testsupport.Track(t, store, "old", "Old", "1")
	clock = now
	testsupport.Track(t, store, "new", "New", "1")

	entries, err := store.ListSince(context.Background(), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(entries) != 1 || entries[0].ShowID != "new" {
		t.Fatalf("unexpected entries %#v", entries)
	}
}

func TestEpisodeListCacheExpiry(t *testing.T) {
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "anitrack.db")
	store, err := tracking.Open(path, tracking.WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	ctx := context.Background()

	if err := store.PutEpisodeList(ctx, "s", []string{"1", "1.5", "2"}); err != nil {
		t.Fatalf("PutEpisodeList: %v", err)
	}
	episodes, ok, err := store.EpisodeList(ctx, "s", time.Hour)
	if err != nil || !ok || !slices.Equal(episodes, []string{"1", "1.5", "2"}) {
		t.Fatalf("EpisodeList = %v %v %v", episodes, ok, err)
	}
	clock = clock.Add(2 * time.Hour)
	if _, ok, _ := store.EpisodeList(ctx, "s", time.Hour); ok {
		t.Fatal("expected stale cache entry to be ignored")
	}
	if _, ok, _ := store.EpisodeList(ctx, "s", 0); !ok {
		t.Fatal("expected zero max age to accept any entry")
	}
}

func TestMigrateBackfillsOrdinalsFromVersionOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	stmts := []string{
		`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`,
		`INSERT INTO schema_version (version, applied_at) VALUES (1, '2025-01-01T00:00:00.000000000Z')`,
		`CREATE TABLE tracked_entries (show_id TEXT PRIMARY KEY, title TEXT NOT NULL, episode_label TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`INSERT INTO tracked_entries VALUES ('a', 'Alpha', '13.5', '2025-01-01T00:00:00.000000000Z')`,
		`INSERT INTO tracked_entries VALUES ('b', 'Beta', 'OVA', '2025-01-02T00:00:00.000000000Z')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	_ = db.Close()

	store, err := tracking.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	status, err := store.MigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("MigrationStatus: %v", err)
	}
	if !status[0].Applied || status[1].Applied {
		t.Fatalf("unexpected status %#v", status)
	}

	report, err := store.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if report.From != 1 || report.To != tracking.CurrentVersion() {
		t.Fatalf("unexpected report %#v", report)
	}

	alpha, err := store.Get(context.Background(), "a")
	if err != nil || alpha == nil || alpha.Ordinal == nil || *alpha.Ordinal != 13.5 {
		t.Fatalf("expected backfilled ordinal, got %#v %v", alpha, err)
	}
	beta, err := store.Get(context.Background(), "b")
	if err != nil || beta == nil || beta.Ordinal != nil {
		t.Fatalf("expected no ordinal for OVA, got %#v %v", beta, err)
	}
	latest, err := store.Latest(context.Background())
	if err != nil || latest == nil || latest.ShowID != "b" {
		t.Fatalf("expected legacy stamps to order rows, got %#v %v", latest, err)
	}
}

func TestMigrateFromVersionTwoMatchesFreshSchema(t *testing.T) {
	dir := t.TempDir()
	upgradedPath := filepath.Join(dir, "upgraded.db")
	db, err := sql.Open("sqlite", upgradedPath)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`,
		readMigration(t, "0001_tracked_entries.sql"),
		`INSERT INTO schema_version (version, applied_at) VALUES (1, '2025-01-01T00:00:00.000000000Z')`,
		readMigration(t, "0002_episode_ordinal.sql"),
		`INSERT INTO schema_version (version, applied_at) VALUES (2, '2025-02-01T00:00:00.000000000Z')`,
		`INSERT INTO tracked_entries VALUES ('a', 'Alpha', '7', '2025-02-02T00:00:00.000000000Z', 7)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	_ = db.Close()

	upgraded, err := tracking.Open(upgradedPath)
	if err != nil {
		t.Fatalf("Open upgraded: %v", err)
	}
	report, err := upgraded.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate upgraded: %v", err)
	}
	if report.From != 2 || report.To != tracking.CurrentVersion() || len(report.Applied) != tracking.CurrentVersion()-2 {
		t.Fatalf("unexpected report %#v", report)
	}
	version, err := upgraded.SchemaVersion(context.Background())
	if err != nil || version != tracking.CurrentVersion() {
		t.Fatalf("upgraded SchemaVersion = %d %v", version, err)
	}
	alpha, err := upgraded.Get(context.Background(), "a")
	if err != nil || alpha == nil || alpha.Episode != "7" {
		t.Fatalf("expected row to survive the upgrade, got %#v %v", alpha, err)
	}
	_ = upgraded.Close()

	freshPath := filepath.Join(dir, "fresh.db")
	fresh, err := tracking.Open(freshPath)
	if err != nil {
		t.Fatalf("Open fresh: %v", err)
	}
	if _, err := fresh.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate fresh: %v", err)
	}
	version, err = fresh.SchemaVersion(context.Background())
	if err != nil || version != tracking.CurrentVersion() {
		t.Fatalf("fresh SchemaVersion = %d %v", version, err)
	}
	_ = fresh.Close()

	got := schemaObjects(t, upgradedPath)
	want := schemaObjects(t, freshPath)
	if !slices.Equal(got, want) {
		t.Fatalf("upgraded schema differs from fresh schema:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("migrations", name))
	if err != nil {
		t.Fatalf("read migration %s: %v", name, err)
	}
	return string(data)
}

// schemaObjects lists every schema object as "type name: sql".
func schemaObjects(t *testing.T, path string) []string {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	rows, err := db.Query(`SELECT type, name, sql FROM sqlite_master ORDER BY type, name`)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	defer rows.Close()
	var objects []string
	for rows.Next() {
		var kind, name string
		var text sql.NullString
		if err := rows.Scan(&kind, &name, &text); err != nil {
			t.Fatalf("scan sqlite_master: %v", err)
		}
		objects = append(objects, kind+" "+name+": "+text.String)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate sqlite_master: %v", err)
	}
	if len(objects) == 0 {
		t.Fatalf("no schema objects in %s", path)
	}
	return objects
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO schema_version VALUES (999, 'x')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = db.Close()

	if _, err := tracking.Open(path); !errors.Is(err, tracking.ErrSchemaTooNew) {
		t.Fatalf("expected ErrSchemaTooNew, got %v", err)
	}
}

func TestEntryPosition(t *testing.T) {
	entry := tracking.Entry{ShowID: "id", Title: "T", Episode: "3"}
	pos := entry.Position()
	if pos.ShowID != "id" || pos.Title != "T" || pos.Episode != "3" {
		t.Fatalf("unexpected position %#v", pos)
	}
}
