// Package bridge connects the coordinating and rendering contexts with a
// message channel carrying events and request/response calls.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/zerr"
)

// Kind tags a message.
type Kind string

const (
	// KindRPC is a call expecting an acknowledgement.
	KindRPC Kind = "rpc"
	// KindAck answers a call with the same command and sequence.
	KindAck Kind = "rpc:ack"
	// KindEvent is a fire-and-forget notification.
	KindEvent Kind = "event"
)

// Buffer is the number of messages queued per direction.
const Buffer = 256

// Message is one unit on the wire.
type Message struct {
	Type    Kind            `json:"type"`
	Command string          `json:"command"`
	Seq     uint64          `json:"seq"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Handler answers one command. Events ignore the result.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

type link struct {
	done chan struct{}
	once sync.Once
}

func (l *link) close() { l.once.Do(func() { close(l.done) }) }

type callKey struct {
	command string
	seq     uint64
}

// Channel is one endpoint of a Pipe. Events are dispatched in arrival
// order on the Run goroutine, so event handlers must not wait on calls;
// calls are answered concurrently.
type Channel struct {
	origin string
	in     <-chan Message
	out    chan<- Message
	link   *link
	logger ports.Logger

	seq atomic.Uint64

	mu       sync.Mutex
	handlers map[string]Handler
	pending  map[callKey]chan Message
}

// Pipe returns two connected endpoints.
func Pipe(logger ports.Logger) (*Channel, *Channel) {
	ab := make(chan Message, Buffer)
	ba := make(chan Message, Buffer)
	l := &link{done: make(chan struct{})}
	return newChannel(ba, ab, l, logger), newChannel(ab, ba, l, logger)
}

func newChannel(in <-chan Message, out chan<- Message, l *link, logger ports.Logger) *Channel {
	return &Channel{
		origin:   uuid.NewString(),
		in:       in,
		out:      out,
		link:     l,
		logger:   logger,
		handlers: make(map[string]Handler),
		pending:  make(map[callKey]chan Message),
	}
}

// Origin identifies this endpoint.
func (c *Channel) Origin() string { return c.origin }

// Done is closed once either endpoint is closed.
func (c *Channel) Done() <-chan struct{} { return c.link.done }

// Handle registers fn for command, replacing any previous handler.
func (c *Channel) Handle(command string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[command] = fn
}

// On registers a typed handler for command.
func On[T, R any](c *Channel, command string, fn func(ctx context.Context, payload T) (R, error)) {
	c.Handle(command, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var payload T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, zerr.With(zerr.Wrap(err, "failed to decode payload"), "command", command)
			}
		}
		return fn(ctx, payload)
	})
}

// OnEvent registers a typed handler for an event.
func OnEvent[T any](c *Channel, command string, fn func(payload T)) {
	On(c, command, func(_ context.Context, payload T) (struct{}, error) {
		fn(payload)
		return struct{}{}, nil
	})
}

// Emit sends an event.
func (c *Channel) Emit(command string, payload any) error {
	msg, err := c.message(KindEvent, command, payload)
	if err != nil {
		return err
	}
	return c.send(context.Background(), msg)
}

// Call sends a request and waits for its acknowledgement, decoding the
// answer into result when result is non-nil.
func (c *Channel) Call(ctx context.Context, command string, payload, result any) error {
	msg, err := c.message(KindRPC, command, payload)
	if err != nil {
		return err
	}

	key := callKey{command: command, seq: msg.Seq}
	ack := make(chan Message, 1)
	c.mu.Lock()
	c.pending[key] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
	}()

	if err := c.send(ctx, msg); err != nil {
		return err
	}

	select {
	case reply := <-ack:
		if reply.Error != "" {
			return zerr.With(errors.New(reply.Error), "command", command)
		}
		if result != nil && len(reply.Payload) > 0 {
			if err := json.Unmarshal(reply.Payload, result); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to decode reply"), "command", command)
			}
		}
		return nil
	case <-c.link.done:
		return zerr.With(domain.ErrChannelClosed, "command", command)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) message(kind Kind, command string, payload any) (Message, error) {
	msg := Message{Type: kind, Command: command, Seq: c.seq.Add(1), Origin: c.origin}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, zerr.With(zerr.Wrap(err, "failed to encode payload"), "command", command)
		}
		msg.Payload = raw
	}
	return msg, nil
}

func (c *Channel) send(ctx context.Context, msg Message) error {
	if c.closed() {
		return zerr.With(domain.ErrChannelClosed, "command", msg.Command)
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.link.done:
		return zerr.With(domain.ErrChannelClosed, "command", msg.Command)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dispatches incoming messages until ctx is cancelled or the pipe is
// closed.
func (c *Channel) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.link.done:
			return nil
		case msg := <-c.in:
			if msg.Origin == c.origin {
				continue
			}
			switch msg.Type {
			case KindAck:
				c.resolve(msg)
			case KindEvent:
				if _, err := c.dispatch(ctx, msg); err != nil {
					c.report(err)
				}
			case KindRPC:
				wg.Go(func() { c.answer(ctx, msg) })
			}
		}
	}
}

func (c *Channel) resolve(msg Message) {
	c.mu.Lock()
	ack, ok := c.pending[callKey{command: msg.Command, seq: msg.Seq}]
	c.mu.Unlock()
	if ok {
		ack <- msg
	}
}

func (c *Channel) dispatch(ctx context.Context, msg Message) (any, error) {
	c.mu.Lock()
	fn, ok := c.handlers[msg.Command]
	c.mu.Unlock()
	if !ok {
		return nil, zerr.With(domain.ErrUnknownCommand, "command", msg.Command)
	}
	return fn(ctx, msg.Payload)
}

func (c *Channel) answer(ctx context.Context, msg Message) {
	reply := Message{Type: KindAck, Command: msg.Command, Seq: msg.Seq, Origin: c.origin}

	result, err := c.dispatch(ctx, msg)
	if err == nil && result != nil {
		reply.Payload, err = json.Marshal(result)
	}
	if err != nil {
		reply.Error = err.Error()
	}

	if err := c.send(ctx, reply); err != nil && ctx.Err() == nil && !c.closed() {
		c.report(err)
	}
}

func (c *Channel) closed() bool {
	select {
	case <-c.link.done:
		return true
	default:
		return false
	}
}

func (c *Channel) report(err error) {
	if c.logger != nil {
		c.logger.Error(err)
	}
}

// Close tears the pipe down for both endpoints. Pending calls fail with
// ErrChannelClosed.
func (c *Channel) Close() {
	c.link.close()
}
