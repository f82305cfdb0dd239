//go:build !(linux || darwin || freebsd)

package session

import (
	"io"
	"os"
	"os/exec"
)

var terminationSignals []os.Signal

// terminalGuard is inert where process-group handoff is unavailable.
type terminalGuard struct{}

func acquireTerminal(io.Reader) *terminalGuard { return &terminalGuard{} }

func (*terminalGuard) grouped() bool { return false }

func (*terminalGuard) configure(*exec.Cmd) {}

func (*terminalGuard) release() {}

func interruptProcess(cmd *exec.Cmd, _ bool) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
