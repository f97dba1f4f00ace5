package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"flowchat/internal/archive"
	"flowchat/internal/locale"
	"flowchat/internal/logging"
	"flowchat/internal/models"
)

type historyState int

const (
	historySessions historyState = iota
	historyTranscript
)

// HistoryModel browses archived sessions read-only
type HistoryModel struct {
	store    archive.Store
	clock    locale.Clock
	list     list.Model
	viewport viewport.Model
	state    historyState
	current  models.Session
	width    int
	height   int
	err      error
}

type sessionItem struct {
	session models.Session
	clock   locale.Clock
}

func (i sessionItem) Title() string {
	return fmt.Sprintf("%s %s", i.session.StartedAt.Format("2006-01-02"), i.clock.Format(i.session.StartedAt))
}

func (i sessionItem) Description() string {
	return fmt.Sprintf("Messages: %d | ID: %s", i.session.MessageCount, i.session.ID)
}

func (i sessionItem) FilterValue() string { return i.Title() }

type SessionsLoaded struct {
	Sessions []models.Session
}

type TranscriptLoaded struct {
	Session  models.Session
	Messages []models.Message
}

type HistoryError struct {
	Err error
}

func NewHistoryModel(store archive.Store, clock locale.Clock, width, height int) HistoryModel {
	l := list.New(nil, CreateThemedDelegate(), width, height-2)
	l.Title = "Past Sessions"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	ConfigureListStyles(&l)

	l.KeyMap.CursorUp = key.NewBinding(key.WithKeys("up"))
	l.KeyMap.CursorDown = key.NewBinding(key.WithKeys("down"))
	l.KeyMap.Filter = key.NewBinding(key.WithKeys("/"))
	l.KeyMap.ClearFilter = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.CancelWhileFiltering = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.AcceptWhileFiltering = key.NewBinding(key.WithKeys("enter"))
	l.KeyMap.ShowFullHelp = key.NewBinding()
	l.KeyMap.CloseFullHelp = key.NewBinding()
	l.KeyMap.Quit = key.NewBinding()
	l.KeyMap.ForceQuit = key.NewBinding()

	vp := viewport.New(width-6, height-6)
	vp.KeyMap.HalfPageDown = key.NewBinding()
	vp.KeyMap.HalfPageUp = key.NewBinding()

	return HistoryModel{
		store:    store,
		clock:    clock,
		list:     l,
		viewport: vp,
		state:    historySessions,
		width:    width,
		height:   height,
	}
}

func (m HistoryModel) Init() tea.Cmd {
	return m.loadSessions()
}

func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = msg.Height - 6
		return m, nil

	case SessionsLoaded:
		m.setSessions(msg.Sessions)
		return m, nil

	case TranscriptLoaded:
		m.current = msg.Session
		m.state = historyTranscript
		content := RenderMessages(msg.Messages, m.clock, nil, m.width)
		if len(msg.Messages) == 0 {
			content = EmptyStateStyle.Render("This session has no messages.")
		}
		m.viewport.SetContent(content)
		m.viewport.GotoTop()
		return m, nil

	case HistoryError:
		logging.Error("History browser error: %v", msg.Err)
		m.err = msg.Err
		return m, nil

	case tea.KeyMsg:
		if m.err != nil {
			switch msg.String() {
			case "ctrl+c", "ctrl+x":
				return m, tea.Quit
			case "esc":
				m.err = nil
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "ctrl+x":
			return m, tea.Quit
		}

		if m.state == historyTranscript {
			if msg.String() == "esc" {
				m.state = historySessions
				return m, nil
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "enter":
				item, ok := m.list.SelectedItem().(sessionItem)
				if !ok {
					return m, nil
				}
				return m, m.loadTranscript(item.session)

			case "ctrl+d":
				item, ok := m.list.SelectedItem().(sessionItem)
				if !ok {
					return m, nil
				}
				return m, m.deleteSession(item.session.ID)
			}
		}
	}

	if m.state == historyTranscript {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *HistoryModel) setSessions(sessions []models.Session) {
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = sessionItem{session: s, clock: m.clock}
	}
	m.list.SetItems(items)
}

func (m HistoryModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Esc to go back", m.err))
	}

	if m.state == historyTranscript {
		item := sessionItem{session: m.current, clock: m.clock}
		title := TitleWithPaddingStyle.Render(item.Title()) + MetadataStyle.Render(item.Description())
		return lipgloss.JoinVertical(lipgloss.Left,
			title,
			RenderViewportWithBorder(m.viewport.View()),
			helpStyle.Render("↑/↓: Scroll • PgUp/PgDn: Page Scroll • Esc: Back • Ctrl+X: Exit"),
		)
	}

	helpText := "↑/↓: Navigate • Enter: Open • /: Filter • Ctrl+D: Delete • Ctrl+X: Exit"
	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		helpStyle.Render(helpText),
	)
}

func (m HistoryModel) loadSessions() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		sessions, err := store.ListSessions(context.Background())
		if err != nil {
			return HistoryError{Err: err}
		}
		return SessionsLoaded{Sessions: sessions}
	}
}

func (m HistoryModel) loadTranscript(session models.Session) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		msgs, err := store.GetMessages(context.Background(), session.ID)
		if err != nil {
			return HistoryError{Err: err}
		}
		return TranscriptLoaded{Session: session, Messages: msgs}
	}
}

func (m HistoryModel) deleteSession(sessionID string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if err := store.DeleteSession(context.Background(), sessionID); err != nil {
			return HistoryError{Err: fmt.Errorf("failed to delete session: %w", err)}
		}
		logging.Info("Deleted archived session %s", sessionID)

		sessions, err := store.ListSessions(context.Background())
		if err != nil {
			return HistoryError{Err: err}
		}
		return SessionsLoaded{Sessions: sessions}
	}
}
