// Package conversation holds the state of a single chat: the append-only
// message sequence, the draft being typed, and the reply requests issued for
// submitted messages.
package conversation

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowchat/internal/models"
)

var (
	ErrUnknownRequest = errors.New("unknown reply request")
	ErrRequestSettled = errors.New("reply request already settled")
)

// Conversation is not safe for concurrent use. It is owned by the UI event
// loop and mutated only from there.
type Conversation struct {
	messages []models.Message
	draft    string
	requests map[string]*Request
	pending  int
	now      func() time.Time
}

func New() *Conversation {
	return &Conversation{
		requests: make(map[string]*Request),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for message and request timestamps
func (c *Conversation) SetClock(now func() time.Time) {
	c.now = now
}

// EditDraft replaces the draft. No validation happens until Submit.
func (c *Conversation) EditDraft(s string) {
	c.draft = s
}

func (c *Conversation) Draft() string {
	return c.draft
}

// Submit turns the draft into a user message. A draft that is empty after
// trimming is ignored and leaves all state untouched.
func (c *Conversation) Submit() (models.Message, bool) {
	if strings.TrimSpace(c.draft) == "" {
		return models.Message{}, false
	}

	msg := models.NewMessage(models.RoleUser, c.draft, c.now())
	c.messages = append(c.messages, msg)
	c.draft = ""

	return msg, true
}

// Messages returns a copy of the sequence in insertion order
func (c *Conversation) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the most recently appended message
func (c *Conversation) Last() (models.Message, bool) {
	if len(c.messages) == 0 {
		return models.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// UserHistory returns the contents of user messages appended before the
// message with the given ID whose reply request was fulfilled.
func (c *Conversation) UserHistory(beforeID string) []string {
	answered := make(map[string]bool, len(c.requests))
	for _, req := range c.requests {
		if req.State == RequestFulfilled {
			answered[req.MessageID] = true
		}
	}

	history := []string{}
	for _, msg := range c.messages {
		if msg.ID == beforeID {
			break
		}
		if msg.Role == models.RoleUser && answered[msg.ID] {
			history = append(history, msg.Content)
		}
	}
	return history
}

// BeginRequest records a pending reply request for a submitted message
func (c *Conversation) BeginRequest(messageID string) Request {
	req := &Request{
		ID:        uuid.NewString(),
		MessageID: messageID,
		State:     RequestPending,
		StartedAt: c.now(),
	}
	c.requests[req.ID] = req
	c.pending++
	return *req
}

// Resolve settles a pending request with the responder's answer and appends
// it to the sequence as an assistant message.
func (c *Conversation) Resolve(requestID, content string) (models.Message, error) {
	req, err := c.settle(requestID)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.NewMessage(models.RoleAssistant, content, req.FinishedAt)
	c.messages = append(c.messages, msg)

	req.State = RequestFulfilled
	req.ReplyID = msg.ID
	return msg, nil
}

// Fail settles a pending request with an error. The sequence is unchanged.
func (c *Conversation) Fail(requestID string, cause error) error {
	req, err := c.settle(requestID)
	if err != nil {
		return err
	}

	req.State = RequestFailed
	req.Err = cause
	return nil
}

func (c *Conversation) settle(requestID string) (*Request, error) {
	req, ok := c.requests[requestID]
	if !ok {
		return nil, ErrUnknownRequest
	}
	if req.State != RequestPending {
		return nil, ErrRequestSettled
	}

	req.FinishedAt = c.now()
	c.pending--
	return req, nil
}

// Request looks up a reply request by ID
func (c *Conversation) Request(requestID string) (Request, bool) {
	req, ok := c.requests[requestID]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// Pending reports whether any reply request is still outstanding
func (c *Conversation) Pending() bool {
	return c.pending > 0
}

// PendingRequests returns the outstanding requests, oldest first
func (c *Conversation) PendingRequests() []Request {
	var out []Request
	for _, req := range c.requests {
		if req.State == RequestPending {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
