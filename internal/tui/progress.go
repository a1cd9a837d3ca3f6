// Package tui renders pipeline progress in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const barWidth = 40

// ProgressMsg reports particles finished so far.
type ProgressMsg struct {
	Done  int
	Total int
}

// DoneMsg reports the final outcome of a run.
type DoneMsg struct {
	Stars    int
	Excluded int
	Err      error
}

// RunModel is a bubbletea model that tracks one pipeline run fed
// through an update channel.
type RunModel struct {
	name    string
	updates <-chan tea.Msg

	done, total     int
	stars, excluded int
	err             error
	finished        bool
	aborted         bool
	start           time.Time
}

func NewRunModel(name string, updates <-chan tea.Msg) RunModel {
	return RunModel{name: name, updates: updates, start: time.Now()}
}

// Aborted reports whether the user quit before the run finished.
func (m RunModel) Aborted() bool { return m.aborted }

func (m RunModel) Init() tea.Cmd { return m.wait() }

func (m RunModel) wait() tea.Cmd {
	return func() tea.Msg { return <-m.updates }
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil
	case ProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		return m, m.wait()
	case DoneMsg:
		m.finished = true
		m.stars = msg.Stars
		m.excluded = msg.Excluded
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m RunModel) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render("galsynth") + "  " + white.Render(m.name) + "\n\n")
	b.WriteString("  " + m.bar() + "\n")
	b.WriteString(dim.Render(fmt.Sprintf("  %d/%d particles  %s",
		m.done, m.total, time.Since(m.start).Round(time.Second))) + "\n")

	switch {
	case m.err != nil:
		b.WriteString("\n" + red.Render("  run failed: "+m.err.Error()) + "\n")
	case m.finished:
		line := fmt.Sprintf("  %d stars", m.stars)
		if m.excluded > 0 {
			line += yellow.Render(fmt.Sprintf("  (%d outside track)", m.excluded))
		}
		b.WriteString("\n" + green.Render(line) + "\n")
	default:
		b.WriteString(dim.Render("  q to abort") + "\n")
	}
	return b.String()
}

func (m RunModel) bar() string {
	filled := 0
	if m.total > 0 {
		filled = m.done * barWidth / m.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return green.Render(strings.Repeat("█", filled)) +
		dim.Render(strings.Repeat("░", barWidth-filled))
}
