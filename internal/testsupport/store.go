package testsupport

import (
	"context"
	"testing"

	"anitrack/internal/config"
	"anitrack/internal/tracking"
)

// MustOpenStore opens and migrates a tracking.Store for tests and registers
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tracking.Store {
	t.Helper()

	store, err := tracking.Open(cfg.Paths.Database)
	if err != nil {
		t.Fatalf("tracking.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("store.Migrate: %v", err)
	}
	return store
}

// Track records an entry for tests using the provided store.
func Track(t testing.TB, store *tracking.Store, showID, title, episode string) tracking.Entry {
	t.Helper()

	entry, err := store.Upsert(context.Background(), tracking.Entry{ShowID: showID, Title: title, Episode: episode})
	if err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return entry
}
