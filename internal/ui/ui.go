// Package ui renders the gitalky state machine as a terminal application
// using Bubble Tea. It owns no pipeline logic of its own: every keystroke
// either edits a text field or calls a method on *statemachine.Machine, and
// View renders whatever the Machine currently reports.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/d4ncer/gitalky/internal/statemachine"
)

// pollInterval matches the 100ms event-loop timeout the state machine's
// refresh scheduling is specified against.
const pollInterval = 100 * time.Millisecond

var (
	styleDim      = lipgloss.NewStyle().Faint(true)
	styleDanger   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	styleOK       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleHeader   = lipgloss.NewStyle().Bold(true)
	stylePrompt   = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
)

type tickMsg time.Time

// Model is the Bubble Tea model driving one gitalky session against a
// single Machine.
type Model struct {
	machine *statemachine.Machine
	input   textinput.Model
	confirm textinput.Model
	width   int
}

// New constructs a Model for machine, ready to run with tea.NewProgram.
func New(machine *statemachine.Machine) Model {
	in := textinput.New()
	in.Placeholder = "what do you want to do?"
	in.Focus()
	in.CharLimit = 500

	conf := textinput.New()
	conf.Placeholder = "type CONFIRM to proceed"
	conf.CharLimit = 20

	return Model{machine: machine, input: in, confirm: conf}
}

// Init probes model reachability once and starts the poll ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.probeCmd(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) probeCmd() tea.Cmd {
	return func() tea.Msg {
		m.machine.ProbeReachability(context.Background())
		return nil
	}
}

// Update dispatches terminal events to the Machine and its text fields. Key
// handling is scoped to the Machine's current state, matching the
// transitions the state machine itself permits.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.machine.Tick(false)
		if m.machine.ShouldRefresh() {
			_ = m.machine.Refresh()
		}
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.machine.State() {
	case statemachine.StateInput:
		return m.handleInputKey(msg)
	case statemachine.StatePreview:
		return m.handlePreviewKey(msg)
	case statemachine.StateConfirmDangerous:
		return m.handleConfirmKey(msg)
	case statemachine.StateShowingOutput:
		return m.handleShowingOutputKey(msg)
	default:
		return m, nil
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		query := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if query == "" {
			return m, nil
		}
		m.machine.Tick(true)
		return m, m.submitCmd(query)
	case tea.KeyRunes:
		if len(msg.Runes) == 1 && msg.Runes[0] == 'R' {
			m.machine.Tick(true)
			return m, m.probeCmd()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.machine.Tick(true)
	return m, cmd
}

func (m Model) submitCmd(query string) tea.Cmd {
	return func() tea.Msg {
		m.machine.SubmitQuery(context.Background(), query)
		return nil
	}
}

func (m Model) handlePreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.machine.Cancel()
	case tea.KeyEnter:
		m.machine.Advance()
		if m.machine.State() == statemachine.StateExecuting {
			m.machine.Execute()
		}
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.confirm.SetValue("")
		m.machine.Cancel()
		return m, nil
	case tea.KeyEnter:
		word := m.confirm.Value()
		m.confirm.SetValue("")
		if err := m.machine.Confirm(word); err == nil {
			m.machine.Execute()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.confirm, cmd = m.confirm.Update(msg)
	return m, cmd
}

func (m Model) handleShowingOutputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.machine.Cancel()
	case tea.KeyEnter:
		m.machine.Dismiss()
	}
	return m, nil
}

// View renders the current state. It never mutates the Machine.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(styleHeader.Render("gitalky"))
	sb.WriteString("  ")
	if m.machine.Mode() == statemachine.ModeOffline {
		sb.WriteString(styleDanger.Render("[offline]"))
	} else {
		sb.WriteString(styleOK.Render("[normal]"))
	}
	sb.WriteString("\n\n")

	switch m.machine.State() {
	case statemachine.StateInput:
		sb.WriteString(stylePrompt.Render("> "))
		sb.WriteString(m.input.View())
	case statemachine.StateTranslating:
		sb.WriteString(styleDim.Render("translating..."))
	case statemachine.StatePreview:
		sb.WriteString(m.viewPreview())
	case statemachine.StateConfirmDangerous:
		sb.WriteString(m.viewPreview())
		sb.WriteString("\n\n")
		sb.WriteString(styleDanger.Render("dangerous operation - "))
		sb.WriteString(m.confirm.View())
	case statemachine.StateExecuting:
		sb.WriteString(styleDim.Render("executing..."))
	case statemachine.StateShowingOutput:
		sb.WriteString(m.viewOutcome())
	}

	sb.WriteString("\n\n")
	sb.WriteString(styleDim.Render("Esc cancel · R refresh reachability · Ctrl-C quit"))
	return sb.String()
}

func (m Model) viewPreview() string {
	vc := m.machine.Proposed()
	if vc == nil {
		return ""
	}
	line := fmt.Sprintf("git %s", vc.Command)
	if vc.IsDangerous {
		return styleDanger.Render(line) + styleDim.Render(fmt.Sprintf("  (%s)", vc.DangerKind))
	}
	return styleOK.Render(line)
}

func (m Model) viewOutcome() string {
	if err := m.machine.LastError(); err != nil {
		return styleDanger.Render("error: ") + err.Error()
	}
	outcome := m.machine.Outcome()
	if outcome == nil {
		return styleDim.Render("(no output)")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "exit %d\n", outcome.ExitCode)
	if outcome.Stdout != "" {
		sb.WriteString(outcome.Stdout)
	}
	if outcome.Stderr != "" {
		sb.WriteString("\n")
		sb.WriteString(styleDim.Render(outcome.Stderr))
	}
	return sb.String()
}
