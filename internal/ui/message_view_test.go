package ui

import (
	"strings"
	"testing"
	"time"

	"flowchat/internal/locale"
	"flowchat/internal/models"
)

func testClock(t *testing.T) locale.Clock {
	t.Helper()
	clock, err := locale.Parse("en-US")
	if err != nil {
		t.Fatal(err)
	}
	return clock.In(time.UTC)
}

func TestMessageViewStyleTagMatchesRole(t *testing.T) {
	ts := time.Date(2024, 2, 2, 16, 45, 10, 0, time.UTC)

	tests := []struct {
		role  models.Role
		label string
	}{
		{models.RoleUser, "You"},
		{models.RoleAssistant, "Assistant"},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			view := NewMessageView(models.NewMessage(tt.role, "hello there", ts), testClock(t), nil)

			if view.StyleTag() != tt.role.String() {
				t.Errorf("StyleTag() = %q, want %q", view.StyleTag(), tt.role)
			}
			if view.TimeOfDay() != "4:45:10 PM" {
				t.Errorf("TimeOfDay() = %q, want %q", view.TimeOfDay(), "4:45:10 PM")
			}

			rendered := view.Render(80)
			for _, want := range []string{tt.label, "hello there", "4:45:10 PM"} {
				if !strings.Contains(rendered, want) {
					t.Errorf("Render() missing %q:\n%s", want, rendered)
				}
			}
		})
	}
}

func TestMessageViewKeepsLiteralContent(t *testing.T) {
	content := "**not bold** and `not code`"
	view := NewMessageView(models.NewMessage(models.RoleUser, content, time.Now()), testClock(t), nil)

	if !strings.Contains(view.Render(100), content) {
		t.Errorf("Expected literal content without markdown renderer")
	}
}

func TestMessageViewNarrowWidth(t *testing.T) {
	view := NewMessageView(models.NewMessage(models.RoleAssistant, "ok", time.Now()), testClock(t), nil)

	rendered := view.Render(0)
	if !strings.Contains(rendered, "ok") {
		t.Errorf("Render(0) lost content:\n%s", rendered)
	}
	if view.TimeOfDay() == "" {
		t.Error("TimeOfDay() is empty")
	}
}

func TestRenderMessagesOrder(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		models.NewMessage(models.RoleUser, "first", now),
		models.NewMessage(models.RoleAssistant, "second", now),
		models.NewMessage(models.RoleUser, "third", now),
	}

	out := RenderMessages(msgs, testClock(t), nil, 80)

	first := strings.Index(out, "first")
	second := strings.Index(out, "second")
	third := strings.Index(out, "third")
	if first < 0 || second < first || third < second {
		t.Errorf("Messages rendered out of order:\n%s", out)
	}
}

func TestRenderMarkdownNilRenderer(t *testing.T) {
	if got := renderMarkdown(nil, "# title"); got != "# title" {
		t.Errorf("renderMarkdown(nil) = %q", got)
	}
}
