package tracking

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"anitrack/internal/episode"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrMigrationLocked means another process holds the migration lock.
var ErrMigrationLocked = errors.New("migration already in progress")

type migration struct {
	version int
	name    string
	sql     string
	// backfill runs after sql inside the same transaction.
	backfill func(context.Context, *sql.Tx) error
}

var backfills = map[int]func(context.Context, *sql.Tx) error{
	2: backfillOrdinals,
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	for i, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version prefix", name)
		}
		if version != i+1 {
			return nil, fmt.Errorf("migration %s: expected version %d", name, i+1)
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{
			version:  version,
			name:     strings.TrimSuffix(name, ".sql"),
			sql:      string(data),
			backfill: backfills[version],
		})
	}
	return migrations, nil
}

// CurrentVersion is the schema version this binary expects.
func CurrentVersion() int {
	migrations, err := loadMigrations()
	if err != nil {
		return 0
	}
	return len(migrations)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readVersion(ctx context.Context, q queryer) (int, error) {
	var tableExists int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return 0, nil
	}
	var version int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// SchemaVersion reads the version stored in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	version, err := readVersion(ensureContext(ctx), s.db)
	if err != nil {
		return 0, storeError("schema version", err)
	}
	return version, nil
}

// MigrationStatus lists every known step and whether it has been applied.
func (s *Store) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return nil, storeError("migration status", err)
	}
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, MigrationStatus{Version: m.version, Name: m.name, Applied: m.version <= version})
	}
	return out, nil
}

// Migrate brings the schema up to CurrentVersion one step at a time. Each step
// and its version bump commit together, so an interrupted run resumes from the
// last completed step.
func (s *Store) Migrate(ctx context.Context) (MigrationReport, error) {
	ctx = ensureContext(ctx)
	migrations, err := loadMigrations()
	if err != nil {
		return MigrationReport{}, storeError("migrate", err)
	}

	lock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			err = ErrMigrationLocked
		}
		return MigrationReport{}, storeError("migrate", err)
	}
	defer func() { _ = lock.Unlock() }()

	from, err := readVersion(ctx, s.db)
	if err != nil {
		return MigrationReport{}, storeError("migrate", err)
	}
	if from > len(migrations) {
		return MigrationReport{}, storeError("migrate", fmt.Errorf("%w: database has version %d, binary supports %d", ErrSchemaTooNew, from, len(migrations)))
	}

	report := MigrationReport{From: from, To: from}
	for _, m := range migrations[from:] {
		if err := s.applyMigration(ctx, m); err != nil {
			s.version = report.To
			return report, storeError("migrate", err)
		}
		report.To = m.version
		report.Applied = append(report.Applied, m.name)
	}
	s.version = report.To
	return report, nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)",
		); err != nil {
			return fmt.Errorf("ensure schema_version: %w", err)
		}
		current, err := readVersion(ctx, tx)
		if err != nil {
			return err
		}
		if current != m.version-1 {
			return fmt.Errorf("apply migration %s: database moved to version %d", m.name, current)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		if m.backfill != nil {
			if err := m.backfill(ctx, tx); err != nil {
				return fmt.Errorf("backfill migration %s: %w", m.name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			m.version, formatTimestamp(s.now()),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
		return nil
	})
}

func backfillOrdinals(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT show_id, episode_label FROM tracked_entries`)
	if err != nil {
		return err
	}
	type pending struct {
		showID  string
		ordinal float64
	}
	var updates []pending
	for rows.Next() {
		var showID, label string
		if err := rows.Scan(&showID, &label); err != nil {
			_ = rows.Close()
			return err
		}
		if value, ok := episode.ParseOrdinal(label); ok {
			updates = append(updates, pending{showID: showID, ordinal: value})
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, `UPDATE tracked_entries SET episode_ordinal = ? WHERE show_id = ?`, u.ordinal, u.showID); err != nil {
			return err
		}
	}
	return nil
}
