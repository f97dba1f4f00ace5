package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"flowchat/internal/archive"
	"flowchat/internal/backend"
	"flowchat/internal/conversation"
	"flowchat/internal/locale"
	"flowchat/internal/logging"
	"flowchat/internal/models"
)

const (
	textareaHeight   = 3
	helpHeight       = 1
	statusHeight     = 1
	scrollHeight     = 1
	borderHeight     = 2
	padding          = 1
	minViewport      = 3
	emptyPlaceholder = "No messages yet. Type below and press Enter to send."
)

// Responder produces the reply to a submitted user message
type Responder interface {
	Reply(ctx context.Context, req backend.Request) (string, error)
}

type ConversationOptions struct {
	// Responder is optional; without one submissions stay local.
	Responder   Responder
	BackendName string
	SendHistory bool

	// Archive is optional; it receives every appended message in order.
	Archive *archive.Writer

	Clock    locale.Clock
	Markdown bool
}

// ConversationModel owns the message sequence and the draft, and renders
// them as a scrollable message list above an input box.
type ConversationModel struct {
	conv         *conversation.Conversation
	opts         ConversationOptions
	viewport     viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	errorOverlay ErrorOverlayModel
	mdRenderer   *glamour.TermRenderer
	width        int
	height       int
	status       string
	ctx          context.Context
	cancelFunc   context.CancelFunc
}

type ReplyReceived struct {
	RequestID string
	Content   string
}

type ReplyFailed struct {
	RequestID string
	Err       error
}

type ArchiveFailed struct {
	Err error
}

type ClipboardCopied struct {
	Err error
}

func NewConversationModel(opts ConversationOptions, width, height int) ConversationModel {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(width - 4)
	ta.SetHeight(textareaHeight)
	ta.ShowLineNumbers = false

	// Enter submits; the input never grows new lines
	ta.KeyMap.InsertNewline = key.NewBinding()
	ta.KeyMap.LineNext = key.NewBinding()
	ta.KeyMap.LinePrevious = key.NewBinding()

	vp := viewport.New(width-6, viewportHeight(height))
	vp.MouseWheelDelta = 2

	// Arrows and page up/down scroll the message list
	vp.KeyMap.Down = key.NewBinding(key.WithKeys("down"))
	vp.KeyMap.Up = key.NewBinding(key.WithKeys("up"))
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	vp.KeyMap.PageUp = key.NewBinding(key.WithKeys("pgup"))
	vp.KeyMap.HalfPageDown = key.NewBinding()
	vp.KeyMap.HalfPageUp = key.NewBinding()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	ctx, cancel := context.WithCancel(context.Background())

	errOverlay := NewErrorOverlayModel()
	errOverlay.UpdateSize(width)

	var mdRenderer *glamour.TermRenderer
	if opts.Markdown {
		mdRenderer = createMarkdownRenderer(width)
	}

	m := ConversationModel{
		conv:         conversation.New(),
		opts:         opts,
		viewport:     vp,
		textarea:     ta,
		spinner:      sp,
		errorOverlay: errOverlay,
		mdRenderer:   mdRenderer,
		width:        width,
		height:       height,
		ctx:          ctx,
		cancelFunc:   cancel,
	}
	m.renderMessages()
	return m
}

func viewportHeight(height int) int {
	h := height - textareaHeight - helpHeight - statusHeight - scrollHeight - borderHeight - padding
	if h < minViewport {
		return minViewport
	}
	return h
}

func (m ConversationModel) Init() tea.Cmd {
	if m.opts.Archive == nil {
		return textarea.Blink
	}
	return tea.Batch(textarea.Blink, waitForArchiveError(m.opts.Archive))
}

// Close cancels any reply request still in flight
func (m ConversationModel) Close() {
	m.cancelFunc()
}

// Conversation exposes the underlying state for read access
func (m ConversationModel) Conversation() *conversation.Conversation {
	return m.conv
}

func (m ConversationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = viewportHeight(msg.Height)
		m.textarea.SetWidth(msg.Width - 4)
		m.errorOverlay.UpdateSize(msg.Width)
		if m.opts.Markdown {
			m.mdRenderer = createMarkdownRenderer(msg.Width)
		}
		m.renderMessages()
		return m, nil

	case tea.KeyMsg:
		if m.errorOverlay.IsVisible() {
			m.errorOverlay.HandleKey(msg)
			return m, nil
		}

		switch msg.String() {
		case "enter":
			return m.submit()

		case "ctrl+y":
			last, ok := m.conv.Last()
			if !ok {
				return m, nil
			}
			return m, copyToClipboard(last.Content)
		}

	case ReplyReceived:
		reply, err := m.conv.Resolve(msg.RequestID, msg.Content)
		if err != nil {
			logging.Error("Dropping reply for request %s: %v", msg.RequestID, err)
			return m, nil
		}
		logging.Info("Reply %s received for request %s", reply.ID, msg.RequestID)
		m.archiveMessage(reply)
		m.renderMessages()
		m.viewport.GotoBottom()
		return m, nil

	case ReplyFailed:
		if err := m.conv.Fail(msg.RequestID, msg.Err); err != nil {
			logging.Error("Dropping failure for request %s: %v", msg.RequestID, err)
			return m, nil
		}
		logging.Error("Reply request %s failed: %v", msg.RequestID, msg.Err)
		m.errorOverlay.Show("Reply failed", msg.Err)
		return m, nil

	case ArchiveFailed:
		logging.Error("Archive write failed: %v", msg.Err)
		m.status = "Archive unavailable: " + msg.Err.Error()
		return m, waitForArchiveError(m.opts.Archive)

	case ClipboardCopied:
		if msg.Err != nil {
			logging.Warn("Clipboard copy failed: %v", msg.Err)
			m.status = "Copy failed: " + msg.Err.Error()
		} else {
			m.status = "Copied last message"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.conv.Pending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	if value := m.textarea.Value(); value != m.conv.Draft() {
		m.conv.EditDraft(value)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m ConversationModel) submit() (tea.Model, tea.Cmd) {
	// One reply at a time; the draft waits until the pending one settles
	if m.conv.Pending() {
		return m, nil
	}

	msg, ok := m.conv.Submit()
	if !ok {
		return m, nil
	}

	logging.Debug("Submitted message %s (%d chars)", msg.ID, len(msg.Content))

	m.archiveMessage(msg)
	m.textarea.Reset()
	m.status = ""
	m.renderMessages()
	m.viewport.GotoBottom()

	if m.opts.Responder == nil {
		return m, nil
	}

	req := m.conv.BeginRequest(msg.ID)
	return m, tea.Batch(m.requestReply(req, msg), m.spinner.Tick)
}

// requestReply runs the responder off the event loop. The history is
// captured here because the conversation must not be read from the command.
func (m ConversationModel) requestReply(req conversation.Request, msg models.Message) tea.Cmd {
	responder := m.opts.Responder
	ctx := m.ctx

	history := []string{}
	if m.opts.SendHistory {
		history = m.conv.UserHistory(msg.ID)
	}

	return func() tea.Msg {
		answer, err := responder.Reply(ctx, backend.Request{
			ID:      msg.ID,
			Content: msg.Content,
			History: history,
		})
		if err != nil {
			return ReplyFailed{RequestID: req.ID, Err: err}
		}
		return ReplyReceived{RequestID: req.ID, Content: answer}
	}
}

// archiveMessage queues msg on the event loop, so the archive sees messages
// in the same order as the conversation.
func (m ConversationModel) archiveMessage(msg models.Message) {
	if m.opts.Archive != nil {
		m.opts.Archive.Enqueue(msg)
	}
}

func waitForArchiveError(w *archive.Writer) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-w.Errors()
		if !ok {
			return nil
		}
		return ArchiveFailed{Err: err}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return ClipboardCopied{Err: clipboard.WriteAll(text)}
	}
}

func (m *ConversationModel) renderMessages() {
	if m.conv.Len() == 0 {
		m.viewport.SetContent(EmptyStateStyle.Render(emptyPlaceholder))
		return
	}

	m.viewport.SetContent(RenderMessages(m.conv.Messages(), m.opts.Clock, m.mdRenderer, m.width))
}

func (m ConversationModel) View() string {
	var b strings.Builder

	b.WriteString(RenderViewportWithBorder(m.viewport.View()))
	b.WriteString("\n")

	b.WriteString(m.renderScrollIndicator())
	b.WriteString("\n")

	b.WriteString(statusBarStyle.Render(m.statusLine()))
	b.WriteString("\n")

	b.WriteString(m.textarea.View() + "\n")

	helpText := "Enter: Send • Ctrl+Y: Copy last • ↑/↓: Scroll • PgUp/PgDn: Page Scroll • Ctrl+C: Exit"
	b.WriteString(helpStyle.Render(helpText))

	return m.errorOverlay.RenderOverlay(b.String())
}

func (m ConversationModel) statusLine() string {
	mode := "Local only"
	if m.opts.Responder != nil {
		mode = "Backend: " + m.opts.BackendName
	}

	line := fmt.Sprintf("%s | Messages: %d", mode, m.conv.Len())

	if m.conv.Pending() {
		line += " | " + m.spinner.View() + " Waiting for reply..."
	} else if m.status != "" {
		line += " | " + m.status
	}

	return line
}

func (m ConversationModel) renderScrollIndicator() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	return ScrollIndicatorStyle.Render(fmt.Sprintf("Scroll: %d%% ↕", scrollPercent))
}
