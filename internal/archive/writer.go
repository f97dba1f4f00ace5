package archive

import (
	"context"
	"time"

	"flowchat/internal/logging"
	"flowchat/internal/models"
)

const writeTimeout = 5 * time.Second

// Writer appends one session's messages from a single goroutine, in the
// order they were enqueued.
type Writer struct {
	store     Store
	sessionID string
	queue     chan models.Message
	errs      chan error
	done      chan struct{}
}

// NewWriter starts the writer goroutine. buffer is how many messages may be
// queued before Enqueue blocks.
func NewWriter(store Store, sessionID string, buffer int) *Writer {
	w := &Writer{
		store:     store,
		sessionID: sessionID,
		queue:     make(chan models.Message, buffer),
		errs:      make(chan error, 16),
		done:      make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer close(w.done)
	defer close(w.errs)

	for msg := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := w.store.AppendMessage(ctx, w.sessionID, msg)
		cancel()
		if err == nil {
			continue
		}

		select {
		case w.errs <- err:
		default:
			logging.Error("Archive error dropped, queue full: %v", err)
		}
	}
}

// Enqueue schedules msg to be appended after everything enqueued before it.
// It must not be called after Close.
func (w *Writer) Enqueue(msg models.Message) {
	w.queue <- msg
}

// Errors delivers failed appends. It is closed once the writer has stopped.
func (w *Writer) Errors() <-chan error {
	return w.errs
}

// Close stops accepting messages and waits for queued ones to be written
func (w *Writer) Close() {
	close(w.queue)
	<-w.done
}
