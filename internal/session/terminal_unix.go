//go:build linux || darwin || freebsd

package session

import (
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// terminationSignals end a session early; the player is stopped and cleanup
// runs before Run returns.
var terminationSignals = []os.Signal{syscall.SIGTERM, syscall.SIGHUP}

// terminalGuard hands the controlling terminal to the player's process group
// and takes it back afterwards.
type terminalGuard struct {
	fd       int
	pgrp     int
	state    *term.State
	active   bool
	released bool
}

// acquireTerminal reports an active guard only when stdin is a terminal whose
// foreground group is ours; otherwise the player runs in our group.
func acquireTerminal(stdin io.Reader) *terminalGuard {
	file, ok := stdin.(*os.File)
	if !ok || !isatty.IsTerminal(file.Fd()) {
		return &terminalGuard{}
	}
	fd := int(file.Fd())
	owner, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil || owner != unix.Getpgrp() {
		return &terminalGuard{}
	}
	state, err := term.GetState(fd)
	if err != nil {
		return &terminalGuard{}
	}
	return &terminalGuard{fd: fd, pgrp: owner, state: state, active: true}
}

func (g *terminalGuard) grouped() bool { return g.active }

// configure starts the child as leader of a new foreground process group.
// Ctty names the child's descriptor for the terminal, which is its stdin.
func (g *terminalGuard) configure(cmd *exec.Cmd) {
	if !g.active {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:    true,
		Foreground: true,
		Ctty:       0,
	}
}

func (g *terminalGuard) release() {
	if !g.active || g.released {
		return
	}
	g.released = true
	// A background group writing TIOCSPGRP would be stopped by SIGTTOU.
	signal.Ignore(syscall.SIGTTOU)
	_ = unix.IoctlSetPointerInt(g.fd, unix.TIOCSPGRP, g.pgrp)
	signal.Reset(syscall.SIGTTOU)
	_ = term.Restore(g.fd, g.state)
}

func interruptProcess(cmd *exec.Cmd, grouped bool) error {
	if cmd.Process == nil {
		return nil
	}
	if grouped {
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
	return cmd.Process.Signal(unix.SIGTERM)
}
