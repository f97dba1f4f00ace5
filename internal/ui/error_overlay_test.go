package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestErrorOverlay(t *testing.T) {
	m := NewErrorOverlayModel()
	m.UpdateSize(80)

	background := "background line"
	if got := m.RenderOverlay(background); got != background {
		t.Errorf("Hidden overlay changed the view: %q", got)
	}

	m.Show("Reply failed", errors.New("timeout"))
	if !m.IsVisible() || m.Err() == nil {
		t.Fatal("Expected visible overlay with error")
	}
	if view := m.RenderOverlay(background); !strings.Contains(view, "timeout") {
		t.Errorf("Overlay missing error text:\n%s", view)
	}

	tests := []struct {
		key       tea.KeyMsg
		dismissed bool
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, false},
		{tea.KeyMsg{Type: tea.KeyEnter}, true},
	}
	for _, tt := range tests {
		if got := m.HandleKey(tt.key); got != tt.dismissed {
			t.Errorf("HandleKey(%s) = %v, want %v", tt.key, got, tt.dismissed)
		}
	}
	if m.IsVisible() || m.Err() != nil {
		t.Error("Expected overlay hidden after enter")
	}
}
