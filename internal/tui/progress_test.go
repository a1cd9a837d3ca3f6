package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressUpdates(t *testing.T) {
	updates := make(chan tea.Msg, 1)
	m := NewRunModel("test", updates)

	next, _ := m.Update(ProgressMsg{Done: 5, Total: 10})
	m = next.(RunModel)

	view := m.View()
	if !strings.Contains(view, "5/10 particles") {
		t.Errorf("expected particle count in view, got:\n%s", view)
	}
	if !strings.Contains(view, "█") || !strings.Contains(view, "░") {
		t.Error("expected partially filled bar")
	}
}

func TestDoneMsgQuits(t *testing.T) {
	m := NewRunModel("test", make(chan tea.Msg))

	next, cmd := m.Update(DoneMsg{Stars: 123, Excluded: 4})
	m = next.(RunModel)

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	view := m.View()
	if !strings.Contains(view, "123 stars") {
		t.Errorf("expected star count, got:\n%s", view)
	}
	if !strings.Contains(view, "4 outside track") {
		t.Errorf("expected exclusion note, got:\n%s", view)
	}
}

func TestErrorShown(t *testing.T) {
	m := NewRunModel("test", make(chan tea.Msg))

	next, _ := m.Update(DoneMsg{Err: errors.New("boom")})
	m = next.(RunModel)

	if !strings.Contains(m.View(), "run failed: boom") {
		t.Error("expected failure line in view")
	}
}

func TestAbortKey(t *testing.T) {
	m := NewRunModel("test", make(chan tea.Msg))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(RunModel)

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !m.Aborted() {
		t.Error("expected aborted flag")
	}
}
