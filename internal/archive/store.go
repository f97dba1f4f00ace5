// Package archive keeps a write-behind record of chat sessions on disk.
package archive

import (
	"context"
	"errors"

	"flowchat/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Store methods return ctx.Err() without touching the database when ctx is
// already done. A started transaction always runs to completion.
type Store interface {
	// StartSession records a new session
	StartSession(ctx context.Context, session *models.Session) error

	// AppendMessage stores a message after the session's existing ones.
	// Concurrent calls are safe and each message gets its own sequence slot.
	AppendMessage(ctx context.Context, sessionID string, msg models.Message) error

	// ListSessions returns all sessions, newest first
	ListSessions(ctx context.Context) ([]models.Session, error)

	// GetMessages returns a session's messages in the order they were appended.
	// A stored message with an unknown role is an error.
	GetMessages(ctx context.Context, sessionID string) ([]models.Message, error)

	// DeleteSession removes a session and all its messages
	DeleteSession(ctx context.Context, sessionID string) error

	Close() error
}
