package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusFunc updates the line shown under the spinner.
type StatusFunc func(status string)

type statusMsg string

type doneMsg struct{}

// waitModel animates a spinner until the task reports completion.
type waitModel struct {
	spinner spinner.Model
	label   string
	status  string
	cancel  context.CancelFunc
	done    bool
}

func newWaitModel(label string, cancel context.CancelFunc) waitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return waitModel{spinner: s, label: label, cancel: cancel}
}

func (m waitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.status = "cancelling..."
		}
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.done {
		return ""
	}
	view := fmt.Sprintf("  %s %s\n", m.spinner.View(), m.label)
	if m.status != "" {
		view += lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(4).Render(m.status) + "\n"
	}
	return view
}

// Wait runs task while a spinner labelled label animates on out. The task
// may update the status line through its StatusFunc. Pressing ctrl+c
// cancels the task's context. When out is not a terminal the label and
// status updates are printed as plain lines instead.
func Wait(ctx context.Context, out io.Writer, label string, task func(context.Context, StatusFunc) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !IsTerminal(out) {
		_, _ = fmt.Fprintln(out, label)
		return task(ctx, func(status string) {
			_, _ = fmt.Fprintln(out, status)
		})
	}

	p := tea.NewProgram(newWaitModel(label, cancel), tea.WithOutput(out))

	result := make(chan error, 1)
	go func() {
		result <- task(ctx, func(status string) { p.Send(statusMsg(status)) })
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("spinner failed: %w", err)
	}
	return <-result
}
