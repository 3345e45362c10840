package link

import (
	"context"
	"errors"
	"sync"
)

// Transport moves whole messages between the host and the glasses.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// ErrClosed is returned by a pipe end after either side closed it.
var ErrClosed = errors.New("transport closed")

// PipeEnd is one side of an in-memory message transport.
type PipeEnd struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns two connected in-memory transport ends. Closing either end
// closes both.
func Pipe() (*PipeEnd, *PipeEnd) {
	a := make(chan []byte, 64)
	b := make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}

	return &PipeEnd{in: a, out: b, closed: closed, once: once},
		&PipeEnd{in: b, out: a, closed: closed, once: once}
}

// Send delivers a copy of frame to the other end.
func (p *PipeEnd) Send(ctx context.Context, frame []byte) error {
	msg := make([]byte, len(frame))
	copy(msg, frame)

	select {
	case <-p.closed:
		return ErrClosed
	default:
	}

	select {
	case p.out <- msg:
		return nil
	case <-p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv waits for the next message from the other end.
func (p *PipeEnd) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes both ends of the pipe.
func (p *PipeEnd) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
