package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"flowchat/internal/archive"
	"flowchat/internal/backend"
	"flowchat/internal/conversation"
	"flowchat/internal/models"
)

type fakeResponder struct {
	answer string
	err    error
	got    []backend.Request
}

func (f *fakeResponder) Reply(ctx context.Context, req backend.Request) (string, error) {
	f.got = append(f.got, req)
	return f.answer, f.err
}

func newTestConversation(t *testing.T, opts ConversationOptions) ConversationModel {
	t.Helper()
	opts.Clock = testClock(t)
	return NewConversationModel(opts, 80, 24)
}

func send(m ConversationModel, msg tea.Msg) (ConversationModel, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(ConversationModel), cmd
}

func typeText(m ConversationModel, text string) ConversationModel {
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func pressEnter(m ConversationModel) (ConversationModel, tea.Cmd) {
	return send(m, tea.KeyMsg{Type: tea.KeyEnter})
}

func contents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Content
	}
	return out
}

func TestTypingEditsDraftOnly(t *testing.T) {
	m := newTestConversation(t, ConversationOptions{})

	m = typeText(m, "hel")
	m = typeText(m, "lo")

	if got := m.Conversation().Draft(); got != "hello" {
		t.Errorf("Draft = %q, want %q", got, "hello")
	}
	if m.Conversation().Len() != 0 {
		t.Errorf("Typing created %d messages", m.Conversation().Len())
	}
}

func TestEnterSubmitsDraft(t *testing.T) {
	m := newTestConversation(t, ConversationOptions{})

	m = typeText(m, "a")
	m, _ = pressEnter(m)
	m = typeText(m, "b")
	m, _ = pressEnter(m)

	got := contents(m.Conversation().Messages())
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Messages = %v, want [a b]", got)
	}
	for _, msg := range m.Conversation().Messages() {
		if msg.Role != models.RoleUser {
			t.Errorf("Role = %q, want user", msg.Role)
		}
	}
	if m.Conversation().Draft() != "" || m.textarea.Value() != "" {
		t.Errorf("Input not cleared: draft=%q textarea=%q", m.Conversation().Draft(), m.textarea.Value())
	}
}

func TestEnterIgnoresBlankDraft(t *testing.T) {
	m := newTestConversation(t, ConversationOptions{})

	m, _ = pressEnter(m)
	if m.Conversation().Len() != 0 {
		t.Fatalf("Empty draft created a message")
	}

	m = typeText(m, "   ")
	m, cmd := pressEnter(m)

	if m.Conversation().Len() != 0 {
		t.Errorf("Whitespace draft created a message")
	}
	if m.Conversation().Draft() != "   " || m.textarea.Value() != "   " {
		t.Errorf("Whitespace draft was changed: draft=%q textarea=%q", m.Conversation().Draft(), m.textarea.Value())
	}
	if cmd != nil {
		t.Error("Blank submit should not issue commands")
	}
}

func TestSubmitWithoutResponderMakesNoRequest(t *testing.T) {
	m := newTestConversation(t, ConversationOptions{})

	m = typeText(m, "hi")
	m, _ = pressEnter(m)
	m = typeText(m, "hi")
	m, _ = pressEnter(m)

	msgs := m.Conversation().Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID == msgs[1].ID {
		t.Errorf("Duplicate IDs for repeated text: %s", msgs[0].ID)
	}
	if m.Conversation().Pending() {
		t.Error("No request should be pending without a responder")
	}
}

func TestViewRendersMessages(t *testing.T) {
	m := newTestConversation(t, ConversationOptions{})

	if !strings.Contains(m.View(), "No messages yet") {
		t.Errorf("Expected empty state in view:\n%s", m.View())
	}

	m = typeText(m, "rendered text")
	m, _ = pressEnter(m)

	view := m.View()
	if !strings.Contains(view, "rendered text") {
		t.Errorf("Expected message content in view:\n%s", view)
	}
	if !strings.Contains(view, "Local only") {
		t.Errorf("Expected local mode in status line:\n%s", view)
	}
}

func TestReplyRoundTrip(t *testing.T) {
	responder := &fakeResponder{answer: "pong"}
	m := newTestConversation(t, ConversationOptions{Responder: responder, SendHistory: true, BackendName: "test"})

	m = typeText(m, "ping")
	m, _ = pressEnter(m)

	if !m.Conversation().Pending() {
		t.Fatal("Expected pending request after submit with responder")
	}

	// Submissions are held while a reply is pending
	m = typeText(m, "queued")
	m, _ = pressEnter(m)
	if m.Conversation().Len() != 1 {
		t.Errorf("Expected held submission, got %d messages", m.Conversation().Len())
	}
	if m.Conversation().Draft() != "queued" {
		t.Errorf("Held draft = %q, want %q", m.Conversation().Draft(), "queued")
	}

	userMsg, _ := m.Conversation().Last()
	pending := pendingRequest(t, m.Conversation(), userMsg.ID)

	reply := m.requestReply(pending, userMsg)()
	received, ok := reply.(ReplyReceived)
	if !ok {
		t.Fatalf("Expected ReplyReceived, got %T", reply)
	}
	if len(responder.got) != 1 || responder.got[0].Content != "ping" || responder.got[0].ID != userMsg.ID {
		t.Errorf("Responder got %+v", responder.got)
	}

	m, _ = send(m, received)

	msgs := m.Conversation().Messages()
	if len(msgs) != 2 || msgs[1].Role != models.RoleAssistant || msgs[1].Content != "pong" {
		t.Fatalf("Messages after reply = %+v", msgs)
	}
	if m.Conversation().Pending() {
		t.Error("Request still pending after reply")
	}
	if !strings.Contains(m.View(), "pong") {
		t.Errorf("Reply not rendered:\n%s", m.View())
	}

	// Held draft can now be sent, carrying the earlier user message as history
	m, _ = pressEnter(m)
	second, _ := m.Conversation().Last()
	req := pendingRequest(t, m.Conversation(), second.ID)
	m.requestReply(req, second)()

	if len(responder.got) != 2 {
		t.Fatalf("Expected 2 responder calls, got %d", len(responder.got))
	}
	if h := responder.got[1].History; len(h) != 1 || h[0] != "ping" {
		t.Errorf("History = %v, want [ping]", h)
	}
}

func TestReplyFailureShowsOverlay(t *testing.T) {
	responder := &fakeResponder{err: errors.New("connection refused")}
	m := newTestConversation(t, ConversationOptions{Responder: responder})

	m = typeText(m, "ping")
	m, _ = pressEnter(m)
	userMsg, _ := m.Conversation().Last()
	req := pendingRequest(t, m.Conversation(), userMsg.ID)

	failed, ok := m.requestReply(req, userMsg)().(ReplyFailed)
	if !ok {
		t.Fatal("Expected ReplyFailed")
	}
	m, _ = send(m, failed)

	if m.Conversation().Len() != 1 {
		t.Errorf("Failure changed the sequence: %d messages", m.Conversation().Len())
	}
	if !m.errorOverlay.IsVisible() {
		t.Fatal("Expected error overlay after failure")
	}
	if !strings.Contains(m.View(), "connection refused") {
		t.Errorf("Overlay missing error text:\n%s", m.View())
	}

	// Keys go to the overlay while it is open
	m = typeText(m, "x")
	if m.Conversation().Draft() != "" {
		t.Errorf("Typing reached the draft behind the overlay: %q", m.Conversation().Draft())
	}

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.errorOverlay.IsVisible() {
		t.Error("Esc did not dismiss the overlay")
	}
}

func TestStaleReplyIgnored(t *testing.T) {
	m := newTestConversation(t, ConversationOptions{})

	m, _ = send(m, ReplyReceived{RequestID: "unknown", Content: "ghost"})
	if m.Conversation().Len() != 0 {
		t.Errorf("Reply for unknown request was appended")
	}
}

func TestArchiveKeepsConversationOrder(t *testing.T) {
	store, err := archive.NewInMemoryStore()
	if err != nil {
		t.Fatalf("NewInMemoryStore failed: %v", err)
	}
	defer store.Close()

	session := models.NewSession(time.Now())
	if err := store.StartSession(context.Background(), session); err != nil {
		t.Fatal(err)
	}

	writer := archive.NewWriter(store, session.ID, 8)
	responder := &fakeResponder{answer: "pong"}
	m := newTestConversation(t, ConversationOptions{Responder: responder, Archive: writer})

	m = typeText(m, "ping")
	m, _ = pressEnter(m)
	userMsg, _ := m.Conversation().Last()
	req := pendingRequest(t, m.Conversation(), userMsg.ID)
	m, _ = send(m, m.requestReply(req, userMsg)())

	m = typeText(m, "again")
	m, _ = pressEnter(m)

	writer.Close()
	for err := range writer.Errors() {
		t.Errorf("Unexpected archive error: %v", err)
	}

	stored, err := store.GetMessages(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := contents(m.Conversation().Messages())
	got := contents(stored)
	if len(got) != 3 || strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Archived %v, want %v", got, want)
	}
	for i, msg := range m.Conversation().Messages() {
		if stored[i].ID != msg.ID || stored[i].Role != msg.Role {
			t.Errorf("stored[%d] = %+v, want %+v", i, stored[i], msg)
		}
	}
}

func TestArchiveFailureShownInStatus(t *testing.T) {
	store, err := archive.NewInMemoryStore()
	if err != nil {
		t.Fatalf("NewInMemoryStore failed: %v", err)
	}
	defer store.Close()

	// No StartSession, so every append fails
	writer := archive.NewWriter(store, "missing", 1)
	defer writer.Close()

	m := newTestConversation(t, ConversationOptions{Archive: writer})
	m = typeText(m, "hello")
	m, _ = pressEnter(m)

	failed, ok := waitForArchiveError(writer)().(ArchiveFailed)
	if !ok {
		t.Fatal("Expected ArchiveFailed")
	}

	m, cmd := send(m, failed)
	if !strings.Contains(m.View(), archive.ErrSessionNotFound.Error()) {
		t.Errorf("Expected archive error in status line:\n%s", m.View())
	}
	if cmd == nil {
		t.Error("Expected the model to keep listening for archive errors")
	}
	if m.Conversation().Len() != 1 {
		t.Errorf("Archive failure changed the conversation: %d messages", m.Conversation().Len())
	}
}

func TestWaitForArchiveErrorWithoutArchive(t *testing.T) {
	if cmd := waitForArchiveError(nil); cmd != nil {
		t.Error("Expected nil command when archive is disabled")
	}
}

func pendingRequest(t *testing.T, c *conversation.Conversation, messageID string) conversation.Request {
	t.Helper()
	for _, req := range c.PendingRequests() {
		if req.MessageID == messageID {
			return req
		}
	}
	t.Fatalf("No pending request for message %s", messageID)
	return conversation.Request{}
}
