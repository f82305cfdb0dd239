package history

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileName is the history file the player keeps inside its history directory.
const FileName = "ani-hsts"

// DirEnv is the environment variable the player reads to locate its history
// directory. Seeded sessions point it at a private temp directory.
const DirEnv = "ANI_CLI_HIST_DIR"

// Getenv looks up an environment variable.
type Getenv func(string) string

// ResolveDir picks the player's history directory. An explicit dir wins, then
// ANI_CLI_HIST_DIR, then $XDG_STATE_HOME/ani-cli, then
// ~/.local/state/ani-cli.
func ResolveDir(dir string, getenv Getenv) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if dir = strings.TrimSpace(dir); dir != "" {
		return dir
	}
	if v := strings.TrimSpace(getenv(DirEnv)); v != "" {
		return v
	}
	if v := strings.TrimSpace(getenv("XDG_STATE_HOME")); v != "" {
		return filepath.Join(v, "ani-cli")
	}
	home := strings.TrimSpace(getenv("HOME"))
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	return filepath.Join(home, ".local", "state", "ani-cli")
}

// ResolvePath returns the full path of the history file.
func ResolvePath(dir string, getenv Getenv) string {
	return filepath.Join(ResolveDir(dir, getenv), FileName)
}

// Signature captures enough file metadata to tell whether the history file
// was rewritten between two points in time.
type Signature struct {
	Exists  bool
	Size    int64
	ModTime time.Time
}

// Stat reads the signature of path. Unreadable files report Exists=false.
func Stat(path string) Signature {
	info, err := os.Stat(path)
	if err != nil {
		return Signature{}
	}
	return Signature{Exists: true, Size: info.Size(), ModTime: info.ModTime()}
}

// Changed reports whether two signatures differ.
func (s Signature) Changed(other Signature) bool {
	return s.Exists != other.Exists || s.Size != other.Size || !s.ModTime.Equal(other.ModTime)
}
