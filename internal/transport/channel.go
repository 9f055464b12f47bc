// Package transport moves raw protocol frames between the shell and an agent
// backend. A Channel delivers frames in order and leaves interpretation to
// the protocol package. Two implementations exist: a websocket channel for a
// real agent process and an in-process pipe for tests and embedded use.
package transport

import (
	"context"
	"errors"
)

// ErrClosed reports an operation on a channel whose peer or owner has
// closed it. Receiving ErrClosed is the normal end of a conversation.
var ErrClosed = errors.New("transport: channel closed")

// Channel is an ordered, bidirectional frame stream.
type Channel interface {
	// Receive blocks until the next frame arrives, ctx ends, or the channel
	// closes. Frames come back in send order.
	Receive(ctx context.Context) ([]byte, error)
	// Send transmits one frame. The slice is not retained.
	Send(ctx context.Context, frame []byte) error
	// Close tears the channel down; pending and future calls on either end
	// finish with ErrClosed. Close is idempotent.
	Close() error
}
