package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

const (
	AppTitle     = "LLM Flow Chat"
	headerHeight = 2
)

// ShellModel is the page chrome around a single conversation
type ShellModel struct {
	conversation ConversationModel
	width        int
	height       int
}

func NewShellModel(conversation ConversationModel) ShellModel {
	return ShellModel{
		conversation: conversation,
		width:        conversation.width,
		height:       conversation.height + headerHeight,
	}
}

func (m ShellModel) Init() tea.Cmd {
	return m.conversation.Init()
}

func (m ShellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - headerHeight}
		newModel, cmd := m.conversation.Update(inner)
		m.conversation = newModel.(ConversationModel)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.conversation.Close()
			return m, tea.Quit
		}
	}

	newModel, cmd := m.conversation.Update(msg)
	m.conversation = newModel.(ConversationModel)
	return m, cmd
}

func (m ShellModel) View() string {
	header := HeaderStyle.Width(m.width).Render(TitleWithPaddingStyle.Render(AppTitle))
	return header + "\n" + m.conversation.View()
}

// Conversation returns the mounted conversation view
func (m ShellModel) Conversation() ConversationModel {
	return m.conversation
}
