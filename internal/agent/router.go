package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrNotImplemented is returned by handlers for tools this client cannot perform.
	ErrNotImplemented = errors.New("tool not implemented")

	// ErrNoPendingNavigation is returned when no navigation call awaits a reply.
	ErrNoPendingNavigation = errors.New("no pending navigation call")
)

// InvalidValueError rejects a parameter value.
type InvalidValueError struct {
	Param  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", e.Param, e.Reason)
}

// ActionError reports that the device could not perform Action.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return "failed to " + e.Action
	}
	return fmt.Sprintf("failed to %s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Fail wraps err as an ActionError.
func Fail(action string, err error) error {
	return &ActionError{Action: action, Err: err}
}

// Outcome is how a call was resolved.
type Outcome int

const (
	OutcomeHandled Outcome = iota
	OutcomeIgnored
	OutcomeRejected
	OutcomeNotImplemented
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNotImplemented:
		return "not implemented"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Request is a validated call passed to a handler.
type Request struct {
	Tool      Tool
	Operation Operation
	Args      Args
	Reply     *Reply
}

// Respond sends the reply for the request.
func (r *Request) Respond(resp Response) error {
	return r.Reply.Send(resp)
}

// Handler performs a tool. Handlers of settings tools reply on success;
// errors are turned into replies by the router.
type Handler func(ctx context.Context, req *Request) error

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) {
		r.log = l
	}
}

// Router validates tool calls and dispatches them to handlers.
type Router struct {
	log zerolog.Logger

	mu         sync.Mutex
	handlers   map[Tool]Handler
	navigation *Reply
}

// NewRouter creates a router with no handlers.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		log:      zerolog.Nop(),
		handlers: make(map[Tool]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers h for t, replacing any previous handler.
func (r *Router) Handle(t Tool, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == nil {
		delete(r.handlers, t)
		return
	}
	r.handlers[t] = h
}

func (r *Router) handler(t Tool) Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[t]
}

// Dispatch validates call, runs its handler and makes sure reply-carrying
// tools are answered exactly once.
func (r *Router) Dispatch(ctx context.Context, call Call) Outcome {
	tool := ParseTool(call.Tool)
	if tool == ToolUnknown {
		r.log.Warn().Str("tool", call.Tool).Msg("ignoring unknown tool call")
		return OutcomeIgnored
	}

	reply := call.Reply
	if reply == nil {
		reply = NewReply(nil)
	}
	log := r.log.With().Str("tool", tool.ReplyName()).Str("call", reply.ID().String()).Logger()

	req := &Request{Tool: tool, Args: call.Args, Reply: reply}
	if resp, ok := validate(req); !ok {
		log.Debug().Str("message", resp.Message).Msg("rejected tool call")
		r.send(log, reply, resp)
		return OutcomeRejected
	}

	if tool == ToolNavigationPage {
		r.startNavigation(log, reply)
	}

	h := r.handler(tool)
	if h == nil {
		return r.notImplemented(log, req)
	}

	log.Debug().Str("operation", string(req.Operation)).Msg("dispatching tool call")
	err := h(ctx, req)
	if err == nil {
		if RepliesTo(tool) && tool != ToolNavigationPage && !reply.Done() {
			log.Warn().Msg("handler returned without replying")
		}
		return OutcomeHandled
	}
	if errors.Is(err, ErrNotImplemented) {
		return r.notImplemented(log, req)
	}

	if tool == ToolNavigationPage {
		r.takeNavigation(reply)
	}

	var invalid *InvalidValueError
	if errors.As(err, &invalid) {
		r.send(log, reply, InvalidValue(tool, req.Operation, invalid.Param, invalid.Reason))
		return OutcomeRejected
	}

	log.Error().Err(err).Msg("tool call failed")
	action := defaultAction(req)
	var ae *ActionError
	if errors.As(err, &ae) {
		action = ae.Action
	}
	if RepliesTo(tool) {
		r.send(log, reply, Failed(tool, req.Operation, action))
	}
	return OutcomeFailed
}

// validate fills req.Operation and checks required parameters. On
// failure it returns the reply to send.
func validate(req *Request) (Response, bool) {
	entry := toolTable[req.Tool]

	if len(entry.operations) > 0 {
		raw, present := req.Args.String("operation")
		if !present || raw == "" {
			return MissingOperation(req.Tool), false
		}
		op, ok := ParseOperation(raw)
		if !ok || !entry.allows(op) {
			return UnsupportedOperation(req.Tool, raw), false
		}
		req.Operation = op

		if op == OperationSet && entry.setParam != "" && !req.Args.Has(entry.setParam) {
			return MissingParam(req.Tool, op, entry.setParam), false
		}
	}

	if req.Tool == ToolNavigationPage && req.Args.StringOr("destination", "") == "" {
		return MissingParam(req.Tool, OperationNone, "destination"), false
	}

	return Response{}, true
}

func defaultAction(req *Request) string {
	if req.Operation != OperationNone {
		return fmt.Sprintf("%s %s", req.Operation, req.Tool.ReplyName())
	}
	return "run " + req.Tool.ReplyName()
}

func (r *Router) notImplemented(log zerolog.Logger, req *Request) Outcome {
	log.Warn().Msg("no handler for tool")
	if req.Tool == ToolNavigationPage {
		r.takeNavigation(req.Reply)
	}
	if RepliesTo(req.Tool) {
		r.send(log, req.Reply, Failed(req.Tool, req.Operation, defaultAction(req)+": not implemented"))
	}
	return OutcomeNotImplemented
}

func (r *Router) send(log zerolog.Logger, reply *Reply, resp Response) {
	if err := reply.Send(resp); err != nil {
		if errors.Is(err, ErrAlreadyReplied) {
			log.Debug().Msg("reply already sent")
			return
		}
		log.Error().Err(err).Msg("failed to send reply")
	}
}

// startNavigation stores reply as the pending navigation handle and fails
// the one it supersedes.
func (r *Router) startNavigation(log zerolog.Logger, reply *Reply) {
	r.mu.Lock()
	prev := r.navigation
	r.navigation = reply
	r.mu.Unlock()

	if prev != nil && prev != reply {
		log.Info().Str("superseded", prev.ID().String()).Msg("navigation superseded")
		r.send(log, prev, Failed(ToolNavigationPage, OperationNone, "start navigation: superseded by a newer request"))
	}
}

// takeNavigation clears the pending handle if it is reply (or any handle when reply is nil).
func (r *Router) takeNavigation(reply *Reply) *Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.navigation
	if prev == nil || (reply != nil && prev != reply) {
		return nil
	}
	r.navigation = nil
	return prev
}

// NavigationPending reports whether a navigation call awaits its reply.
func (r *Router) NavigationPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.navigation != nil
}

// ReplyNavigationError resolves the pending navigation call with a failure.
func (r *Router) ReplyNavigationError(message string) error {
	reply := r.takeNavigation(nil)
	if reply == nil {
		return ErrNoPendingNavigation
	}
	return reply.Send(Failed(ToolNavigationPage, OperationNone, message))
}

// CompleteNavigation resolves the pending navigation call with success.
func (r *Router) CompleteNavigation() error {
	reply := r.takeNavigation(nil)
	if reply == nil {
		return ErrNoPendingNavigation
	}
	return reply.Send(Done(ToolNavigationPage))
}
