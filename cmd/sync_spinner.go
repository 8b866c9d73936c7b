package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/dealer-pipeline/internal/application"
	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type syncResolvedMsg struct {
	outcome application.Outcome
	err     error
}

// syncModel follows one inflight save. While the repository has not answered
// it spins next to the proposed change; once resolved it shows how.
type syncModel struct {
	spinner  spinner.Model
	pending  string
	wait     tea.Cmd
	outcome  application.Outcome
	err      error
	resolved bool
	styles   syncStyles
}

type syncStyles struct {
	ok   lipgloss.Style
	warn lipgloss.Style
	fail lipgloss.Style
}

func newSyncModel(pending domain.PendingTransition, wait tea.Cmd) syncModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return syncModel{
		spinner: s,
		pending: fmt.Sprintf("%s %s -> %s (v%d)", pending.RecordID, pending.FromStage, pending.ToStage, pending.Proposed.Version),
		wait:    wait,
		styles: syncStyles{
			ok:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			warn: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			fail: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
}

func (m syncModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.wait)
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case syncResolvedMsg:
		m.resolved = true
		m.outcome = msg.outcome
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m syncModel) View() string {
	if !m.resolved {
		return fmt.Sprintf("%s syncing %s", m.spinner.View(), m.pending)
	}
	if m.err != nil {
		return ""
	}

	style := m.styles.fail
	switch m.outcome.Kind {
	case application.OutcomeConfirmed:
		style = m.styles.ok
	case application.OutcomeConflictResolved, application.OutcomeSuperseded:
		style = m.styles.warn
	}
	return style.Render(fmt.Sprintf("%s %s", m.pending, m.outcome.Kind)) + "\n"
}

// waitWithSpinner draws sync progress on output until inflight resolves or ctx
// is done.
func waitWithSpinner(ctx context.Context, output io.Writer, inflight *application.Inflight) (application.Outcome, error) {
	waitCmd := func() tea.Msg {
		outcome, err := inflight.Wait(ctx)
		return syncResolvedMsg{outcome: outcome, err: err}
	}

	p := tea.NewProgram(
		newSyncModel(inflight.Pending(), waitCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.Outcome{}, err
	}

	result, ok := finalModel.(syncModel)
	if !ok {
		return application.Outcome{}, fmt.Errorf("unexpected final sync model type %T", finalModel)
	}

	return result.outcome, result.err
}
