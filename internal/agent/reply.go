package agent

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrAlreadyReplied is returned when a call is answered a second time.
var ErrAlreadyReplied = errors.New("tool call already replied")

// ReplyFunc delivers a reply to the agent.
type ReplyFunc func(Response) error

// Reply is the single-use handle for answering one tool call.
type Reply struct {
	id   uuid.UUID
	send ReplyFunc

	mu   sync.Mutex
	done bool
}

// NewReply wraps send in a single-use handle. A nil send discards replies.
func NewReply(send ReplyFunc) *Reply {
	return &Reply{id: uuid.New(), send: send}
}

// ID identifies the call in logs.
func (r *Reply) ID() uuid.UUID { return r.id }

// Send delivers resp. Only the first call reaches the agent.
func (r *Reply) Send(resp Response) error {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return ErrAlreadyReplied
	}
	r.done = true
	r.mu.Unlock()

	if r.send == nil {
		return nil
	}
	return r.send(resp)
}

// Done reports whether a reply has been sent.
func (r *Reply) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
