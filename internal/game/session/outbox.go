// Package session tracks connected clients, the broadcast channel each one is
// subscribed to, and the buffered outbound queue feeding its transport.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutboxFull is returned when a slow client has not drained its queue.
var ErrOutboxFull = errors.New("outbox full")

// ErrOutboxClosed is returned when pushing to a disconnected client.
var ErrOutboxClosed = errors.New("outbox closed")

// Outbox routes encoded frames to a Go channel drained by the transport's
// writer goroutine.
type Outbox struct {
	id     string
	frames chan []byte
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given connection id.
//
// Postcondition: bufferSize <= 0 falls back to 64.
func NewOutbox(id string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		id:     id,
		frames: make(chan []byte, bufferSize),
	}
}

// Push enqueues one frame without blocking.
//
// Postcondition: Returns ErrOutboxClosed or ErrOutboxFull (wrapped) when the
// frame was not enqueued.
func (o *Outbox) Push(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("connection %s: %w", o.id, ErrOutboxClosed)
	}
	select {
	case o.frames <- frame:
		return nil
	default:
		return fmt.Errorf("connection %s: %w", o.id, ErrOutboxFull)
	}
}

// Frames returns the read side drained by the transport.
func (o *Outbox) Frames() <-chan []byte {
	return o.frames
}

// Close closes the frame channel. It is idempotent.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.frames)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
