package conversation

import "time"

type RequestState int

const (
	RequestPending RequestState = iota
	RequestFulfilled
	RequestFailed
)

func (s RequestState) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestFulfilled:
		return "fulfilled"
	case RequestFailed:
		return "failed"
	}
	return "unknown"
}

// Request tracks one reply round-trip for a submitted user message.
type Request struct {
	ID         string
	MessageID  string
	ReplyID    string
	State      RequestState
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}
