package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"anitrack/internal/episode"
)

var (
	// ErrSchemaOutdated is returned by data operations until Migrate has run.
	ErrSchemaOutdated = errors.New("database schema is outdated; run `anitrack migrate`")
	// ErrSchemaTooNew means the database was written by a newer release.
	ErrSchemaTooNew = errors.New("database schema is newer than this binary")
)

// Store persists tracked entries in SQLite.
type Store struct {
	db      *sql.DB
	path    string
	now     func() time.Time
	lockTTL time.Duration
	version int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the commit-time clock (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLockTimeout bounds how long Migrate waits for the migration lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// Open creates or connects to the database at path and reads its schema
// version. It does not migrate.
func Open(path string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, storeError("open", errors.New("database path required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storeError("open", fmt.Errorf("ensure database dir: %w", err))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeError("open", fmt.Errorf("open sqlite db: %w", err))
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, storeError("open", fmt.Errorf("apply pragma %q: %w", pragma, execErr))
		}
	}

	store := &Store{db: db, path: path, now: time.Now, lockTTL: 10 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	version, err := readVersion(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, storeError("open", err)
	}
	if version > CurrentVersion() {
		_ = db.Close()
		return nil, storeError("open", fmt.Errorf("%w: database has version %d, binary supports %d", ErrSchemaTooNew, version, CurrentVersion()))
	}
	store.version = version
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) ready(operation string) error {
	if s.version < CurrentVersion() {
		return storeError(operation, fmt.Errorf("%w (at version %d of %d)", ErrSchemaOutdated, s.version, CurrentVersion()))
	}
	return nil
}

// Upsert records entry as the show's latest position. UpdatedAt is assigned
// by the store and is strictly greater than every earlier commit.
func (s *Store) Upsert(ctx context.Context, entry Entry) (Entry, error) {
	if err := s.ready("upsert"); err != nil {
		return Entry{}, err
	}
	ctx = ensureContext(ctx)
	entry.ShowID = strings.TrimSpace(entry.ShowID)
	entry.Episode = strings.TrimSpace(entry.Episode)
	entry.Title = strings.TrimSpace(entry.Title)
	if entry.ShowID == "" || entry.Episode == "" {
		return Entry{}, storeError("upsert", errors.New("show id and episode are required"))
	}
	entry.Ordinal = nil
	if value, ok := episode.ParseOrdinal(entry.Episode); ok {
		entry.Ordinal = &value
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stamp := s.now().UTC()
		var prevRaw sql.NullString
		if err := tx.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM tracked_entries`).Scan(&prevRaw); err != nil {
			return fmt.Errorf("read latest stamp: %w", err)
		}
		if prevRaw.Valid {
			if prev, err := parseTimeString(prevRaw.String); err == nil && !stamp.After(prev) {
				stamp = prev.Add(time.Microsecond)
			}
		}
		entry.UpdatedAt = stamp
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO tracked_entries (show_id, title, episode_label, episode_ordinal, updated_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(show_id) DO UPDATE SET
                 title = excluded.title,
                 episode_label = excluded.episode_label,
                 episode_ordinal = excluded.episode_ordinal,
                 updated_at = excluded.updated_at`,
			entry.ShowID,
			entry.Title,
			entry.Episode,
			nullableFloat(entry.Ordinal),
			formatTimestamp(stamp),
		)
		return err
	})
	if err != nil {
		return Entry{}, storeError("upsert", err)
	}
	return entry, nil
}

// Latest returns the most recently updated entry, or nil when none exist.
func (s *Store) Latest(ctx context.Context) (*Entry, error) {
	if err := s.ready("latest"); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM tracked_entries ORDER BY updated_at DESC LIMIT 1`)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("latest", err)
	}
	return entry, nil
}

// Get returns the entry for showID, or nil when it is not tracked.
func (s *Store) Get(ctx context.Context, showID string) (*Entry, error) {
	if err := s.ready("get"); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM tracked_entries WHERE show_id = ?`, strings.TrimSpace(showID))
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get", err)
	}
	return entry, nil
}

// ListByRecency returns every entry, most recent first.
func (s *Store) ListByRecency(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, "list", `SELECT `+entryColumns+` FROM tracked_entries ORDER BY updated_at DESC`)
}

// ListSince returns entries updated at or after cutoff, most recent first.
func (s *Store) ListSince(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	return s.list(ctx, "list since",
		`SELECT `+entryColumns+` FROM tracked_entries WHERE updated_at >= ? ORDER BY updated_at DESC`,
		formatTimestamp(cutoff))
}

func (s *Store) list(ctx context.Context, operation, query string, args ...any) ([]Entry, error) {
	if err := s.ready(operation); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, storeError(operation, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storeError(operation, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(operation, err)
	}
	return entries, nil
}

// Delete removes showID and its cached episode list. It reports whether a
// tracked entry existed.
func (s *Store) Delete(ctx context.Context, showID string) (bool, error) {
	if err := s.ready("delete"); err != nil {
		return false, err
	}
	ctx = ensureContext(ctx)
	showID = strings.TrimSpace(showID)
	var removed int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tracked_entries WHERE show_id = ?`, showID)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM episode_cache WHERE show_id = ?`, showID)
		return err
	})
	if err != nil {
		return false, storeError("delete", err)
	}
	return removed > 0, nil
}

// PutEpisodeList caches the ordered episode labels for showID.
func (s *Store) PutEpisodeList(ctx context.Context, showID string, episodes []string) error {
	if err := s.ready("cache episodes"); err != nil {
		return err
	}
	payload, err := json.Marshal(episodes)
	if err != nil {
		return storeError("cache episodes", fmt.Errorf("marshal episodes: %w", err))
	}
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO episode_cache (show_id, episodes_json, fetched_at) VALUES (?, ?, ?)
         ON CONFLICT(show_id) DO UPDATE SET episodes_json = excluded.episodes_json, fetched_at = excluded.fetched_at`,
		strings.TrimSpace(showID),
		string(payload),
		formatTimestamp(s.now()),
	)
	return storeError("cache episodes", err)
}

// EpisodeList returns the cached labels for showID when they are younger than
// maxAge. A non-positive maxAge accepts any age.
func (s *Store) EpisodeList(ctx context.Context, showID string, maxAge time.Duration) ([]string, bool, error) {
	if err := s.ready("cached episodes"); err != nil {
		return nil, false, err
	}
	var payload, fetchedRaw string
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT episodes_json, fetched_at FROM episode_cache WHERE show_id = ?`,
		strings.TrimSpace(showID),
	).Scan(&payload, &fetchedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError("cached episodes", err)
	}
	if maxAge > 0 {
		fetched, err := parseTimeString(fetchedRaw)
		if err != nil || s.now().Sub(fetched) > maxAge {
			return nil, false, nil
		}
	}
	var episodes []string
	if err := json.Unmarshal([]byte(payload), &episodes); err != nil {
		return nil, false, storeError("cached episodes", fmt.Errorf("decode episodes: %w", err))
	}
	return episodes, true, nil
}
