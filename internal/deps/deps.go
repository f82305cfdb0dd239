package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"anitrack/internal/config"
)

// ErrPlayerNotFound means the configured player binary cannot be executed.
var ErrPlayerNotFound = errors.New("ani-cli not found")

// Requirement defines an external binary anitrack relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configuration depends on. The journal
// reader is only listed when the log fallback can run on this platform.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{{
		Name:        "ani-cli",
		Command:     cfg.Player.Binary,
		Description: "Launches playback and writes the watch history",
	}}
	if cfg.Detection.LogFallback && runtime.GOOS == "linux" {
		reqs = append(reqs, Requirement{
			Name:        "journalctl",
			Command:     cfg.Detection.JournalBinary,
			Description: "Reads player log lines when the history file did not change",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable, non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// ResolvePlayer returns the absolute path of the player binary.
func ResolvePlayer(binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("%w: player binary not configured", ErrPlayerNotFound)
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not on PATH or not executable; install ani-cli or set %s", ErrPlayerNotFound, binary, config.PlayerBinaryEnv)
	}
	return path, nil
}
