package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"anitrack/internal/workflow"
)

// actionExec adapts an orchestrator run to tea.ExecCommand so the player
// gets the real terminal while the dashboard is suspended.
type actionExec struct {
	ctx    context.Context
	runner Runner
	req    workflow.Request
	result workflow.Result
}

func (a *actionExec) SetStdin(r io.Reader)  { a.req.Stdin = r }
func (a *actionExec) SetStdout(w io.Writer) { a.req.Stdout = w }
func (a *actionExec) SetStderr(w io.Writer) { a.req.Stderr = w }

func (a *actionExec) Run() error {
	a.result = a.runner.Run(a.ctx, a.req)
	return nil
}

func (m Model) runAction(action workflow.Action) tea.Cmd {
	entry := m.selected()
	if entry == nil {
		return nil
	}
	exec := &actionExec{ctx: m.ctx, runner: m.runner, req: m.request(action, entry.ShowID)}
	return tea.Exec(exec, func(err error) tea.Msg {
		return actionDoneMsg{result: exec.result, err: err}
	})
}
