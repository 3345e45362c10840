// Package link serializes commands to the glasses: one ordered queue, one
// request in flight, one response per request.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KonamiWu/lenslink/internal/protocol"
)

// ErrLinkClosed is wrapped in the TransportError returned once the link stops.
var ErrLinkClosed = errors.New("link closed")

// Requester sends a command and waits for its raw response.
type Requester interface {
	Request(ctx context.Context, cmd protocol.Command) ([]byte, error)
}

type result struct {
	data []byte
	err  error
}

type request struct {
	ctx            context.Context
	cmd            protocol.Command
	expectResponse bool
	done           chan result
}

func (r *request) finish(data []byte, err error) {
	select {
	case r.done <- result{data: data, err: err}:
	default:
	}
}

// Link owns one device connection.
type Link struct {
	transport Transport
	config    Config
	log       zerolog.Logger

	queue   chan *request
	stopped chan struct{}

	mu      sync.Mutex
	running bool
	err     error
}

// New creates a Link over the given transport. Call Run to start it.
func New(t Transport, opts ...Option) *Link {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Link{
		transport: t,
		config:    cfg,
		log:       cfg.Logger.With().Str("component", "link").Logger(),
		queue:     make(chan *request, cfg.QueueSize),
		stopped:   make(chan struct{}),
	}
}

// Run processes queued requests until ctx is done or the transport fails.
// Pending and queued requests then fail with a TransportError.
func (l *Link) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("link already running")
	}
	l.running = true
	l.mu.Unlock()

	recvCtx, cancelRecv := context.WithCancel(ctx)
	defer cancelRecv()

	inbound := make(chan []byte, 32)
	recvErr := make(chan error, 1)
	go l.receive(recvCtx, inbound, recvErr)

	err := l.loop(ctx, inbound, recvErr)
	l.stop(err)
	return err
}

func (l *Link) loop(ctx context.Context, inbound <-chan []byte, recvErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return &protocol.TransportError{Op: "run", Err: ctx.Err()}
		case err := <-recvErr:
			return err
		case msg := <-inbound:
			l.unsolicited(msg)
		case req := <-l.queue:
			if err := l.process(ctx, req, inbound, recvErr); err != nil {
				return err
			}
		}
	}
}

func (l *Link) receive(ctx context.Context, inbound chan<- []byte, recvErr chan<- error) {
	for {
		msg, err := l.transport.Recv(ctx)
		if err != nil {
			recvErr <- &protocol.TransportError{Op: "recv", Err: err}
			return
		}
		select {
		case inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// process writes one request and, if it expects a response, waits for it.
// A non-nil return stops the link.
func (l *Link) process(ctx context.Context, req *request, inbound <-chan []byte, recvErr <-chan error) error {
	if err := req.ctx.Err(); err != nil {
		req.finish(nil, err)
		return nil
	}

	frame := req.cmd.Frame()
	l.log.Debug().
		Str("cmd", req.cmd.Name()).
		Hex("frame", frame).
		Msg("send")

	if err := l.transport.Send(ctx, frame); err != nil {
		terr := &protocol.TransportError{Op: "send", Err: err}
		req.finish(nil, terr)
		return terr
	}

	if !req.expectResponse {
		req.finish(nil, nil)
		return nil
	}

	timeout := time.NewTimer(l.config.ResponseTimeout)
	defer timeout.Stop()
	sentAt := time.Now()

	for {
		select {
		case msg := <-inbound:
			if l.dispatchEvent(msg) {
				continue
			}
			if env, err := protocol.DecodeEnvelopeHeader(msg); err == nil && uint16(env.Command) != req.cmd.Code() {
				l.log.Debug().
					Str("cmd", req.cmd.Name()).
					Uint8("got", env.Command).
					Msg("response command differs from request")
			}
			l.log.Debug().
				Str("cmd", req.cmd.Name()).
				Hex("response", msg).
				Dur("elapsed", time.Since(sentAt)).
				Msg("recv")
			req.finish(msg, nil)
			return nil

		case <-timeout.C:
			l.log.Warn().
				Str("cmd", req.cmd.Name()).
				Dur("timeout", l.config.ResponseTimeout).
				Msg("response timeout")
			req.finish(nil, fmt.Errorf("%s: %w after %s", req.cmd.Name(), protocol.ErrResponseTimeout, l.config.ResponseTimeout))
			return nil

		case <-req.ctx.Done():
			req.finish(nil, req.ctx.Err())
			return nil

		case err := <-recvErr:
			req.finish(nil, err)
			return err

		case <-ctx.Done():
			terr := &protocol.TransportError{Op: "run", Err: ctx.Err()}
			req.finish(nil, terr)
			return terr
		}
	}
}

// dispatchEvent hands recognised device events to the event handler.
func (l *Link) dispatchEvent(msg []byte) bool {
	ev, ok := protocol.ParseEvent(msg)
	if !ok {
		return false
	}
	l.log.Debug().Stringer("event", ev.Kind).Msg("device event")
	if l.config.OnEvent != nil {
		l.config.OnEvent(ev)
	}
	return true
}

// unsolicited handles a message that arrived with nothing in flight.
func (l *Link) unsolicited(msg []byte) {
	if l.dispatchEvent(msg) {
		return
	}
	l.log.Debug().Hex("data", msg).Msg("dropping message with no pending request")
}

func (l *Link) stop(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	close(l.stopped)

	closed := &protocol.TransportError{Op: "queue", Err: ErrLinkClosed}
	for {
		select {
		case req := <-l.queue:
			req.finish(nil, closed)
		default:
			l.log.Debug().Err(err).Msg("link stopped")
			return
		}
	}
}

// Err returns the error that stopped the link, if any.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Done is closed once the link has stopped.
func (l *Link) Done() <-chan struct{} {
	return l.stopped
}

// Close closes the transport, which stops Run.
func (l *Link) Close() error {
	return l.transport.Close()
}

func (l *Link) submit(ctx context.Context, cmd protocol.Command, expectResponse bool) ([]byte, error) {
	req := &request{
		ctx:            ctx,
		cmd:            cmd,
		expectResponse: expectResponse,
		done:           make(chan result, 1),
	}
	closed := &protocol.TransportError{Op: "queue", Err: ErrLinkClosed}

	select {
	case <-l.stopped:
		return nil, closed
	default:
	}

	select {
	case l.queue <- req:
	case <-l.stopped:
		return nil, closed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.done:
		return res.data, res.err
	case <-l.stopped:
		select {
		case res := <-req.done:
			return res.data, res.err
		default:
			return nil, closed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send queues a command that has no response and waits until it is written.
func (l *Link) Send(ctx context.Context, cmd protocol.Command) error {
	_, err := l.submit(ctx, cmd, false)
	return err
}

// Request queues a command and waits for its raw response.
func (l *Link) Request(ctx context.Context, cmd protocol.Command) ([]byte, error) {
	return l.submit(ctx, cmd, true)
}

// Execute sends a result command and parses its response.
func Execute[T any](ctx context.Context, r Requester, cmd protocol.ResultCommand[T]) (T, error) {
	var zero T
	data, err := r.Request(ctx, cmd)
	if err != nil {
		return zero, err
	}
	return cmd.ParseResult(data)
}
