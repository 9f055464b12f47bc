package transport

import (
	"context"
	"sync"
)

const pipeBuffer = 16

// Pipe is one end of an in-process channel pair. It carries the same
// ordering contract as the websocket channel and exists so the shell can run
// against an embedded agent (and tests against a scripted one) with no
// network at all.
type Pipe struct {
	recv <-chan []byte
	send chan<- []byte
	done chan struct{}
	once *sync.Once
}

// NewPipe returns the two connected ends. Closing either end closes both.
func NewPipe() (*Pipe, *Pipe) {
	ab := make(chan []byte, pipeBuffer)
	ba := make(chan []byte, pipeBuffer)
	done := make(chan struct{})
	once := &sync.Once{}
	a := &Pipe{recv: ba, send: ab, done: done, once: once}
	b := &Pipe{recv: ab, send: ba, done: done, once: once}
	return a, b
}

// Receive returns the next frame. Frames already in flight when the pipe
// closes are still delivered before ErrClosed.
func (p *Pipe) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-p.recv:
		return frame, nil
	default:
	}
	select {
	case frame := <-p.recv:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		select {
		case frame := <-p.recv:
			return frame, nil
		default:
			return nil, ErrClosed
		}
	}
}

func (p *Pipe) Send(ctx context.Context, frame []byte) error {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.send <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	}
}

func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
