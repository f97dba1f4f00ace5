package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"flowchat/internal/locale"
	"flowchat/internal/models"
)

const minMessageWidth = 24

// MessageView renders a single message. It holds no state of its own.
type MessageView struct {
	message  models.Message
	clock    locale.Clock
	markdown *glamour.TermRenderer
}

// NewMessageView builds a view for msg. A nil markdown renderer shows the
// content verbatim.
func NewMessageView(msg models.Message, clock locale.Clock, markdown *glamour.TermRenderer) MessageView {
	return MessageView{
		message:  msg,
		clock:    clock,
		markdown: markdown,
	}
}

// StyleTag names the style the message is drawn with; it is the role.
func (v MessageView) StyleTag() string {
	return v.message.Role.String()
}

func (v MessageView) TimeOfDay() string {
	return v.clock.Format(v.message.Timestamp)
}

func (v MessageView) Label() string {
	if v.message.Role == models.RoleUser {
		return "You"
	}
	return "Assistant"
}

func (v MessageView) Render(width int) string {
	if width < minMessageWidth {
		width = minMessageWidth
	}

	header := GetMessageLabelStyle(v.message.Role).Render(v.Label()) +
		" " + TimestampStyle.Render(v.TimeOfDay())

	content := renderMarkdown(v.markdown, v.message.Content)

	return GetMessageContentStyle(v.message.Role, width).Render(header + "\n" + content)
}

// RenderMessages renders a sequence of messages separated by blank lines
func RenderMessages(msgs []models.Message, clock locale.Clock, markdown *glamour.TermRenderer, width int) string {
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, NewMessageView(msg, clock, markdown).Render(width))
	}
	return strings.Join(blocks, "\n\n")
}
