package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anitrack/internal/history"
)

// WriteHistory replaces the history file at path with lines in the player's
// tab-delimited format.
func WriteHistory(t testing.TB, path string, lines ...history.Line) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(history.FormatLine(line))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
