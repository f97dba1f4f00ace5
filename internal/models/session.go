package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one run of the chat client as recorded in the archive.
type Session struct {
	ID           string
	StartedAt    time.Time
	MessageCount int
}

func NewSession(startedAt time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
	}
}
