package chat

import (
	"context"
	"io"
	"sync"
)

// EventType identifies one incremental update on a response stream.
type EventType string

const (
	EventMessageStart EventType = "message_start"
	EventTextDelta    EventType = "text_delta"
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
	EventFinish       EventType = "finish"
)

// Event is a single message-update event relayed to the caller while a
// response is being generated.
type Event struct {
	Type       EventType      `json:"type"`
	MessageID  string         `json:"messageId,omitempty"`
	Role       Role           `json:"role,omitempty"`
	Text       string         `json:"text,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Result     string         `json:"result,omitempty"`
}

// Stream yields events in the order the provider produced them. Recv returns
// io.EOF when the stream ends normally; Close releases the upstream call and
// must always be called.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Pipe is the producer side of a Stream. Provider handles push events from a
// goroutine with Send and finish with CloseSend; consumers read with Recv.
type Pipe struct {
	ch     chan Event
	err    error
	cancel context.CancelFunc
	once   sync.Once
}

// NewPipe constructs a pipe. cancel, when non-nil, aborts the upstream vendor
// call as soon as the consumer closes the stream.
func NewPipe(cancel context.CancelFunc) *Pipe {
	return &Pipe{
		ch:     make(chan Event, 16),
		cancel: cancel,
	}
}

// Send delivers one event to the consumer, giving up when ctx is cancelled.
func (p *Pipe) Send(ctx context.Context, ev Event) error {
	select {
	case p.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseSend ends the stream. A nil err terminates Recv with io.EOF; a non-nil
// err is surfaced to the consumer after all buffered events are drained.
// Subsequent calls are no-ops.
func (p *Pipe) CloseSend(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.ch)
	})
}

// Recv implements Stream.
func (p *Pipe) Recv() (Event, error) {
	ev, ok := <-p.ch
	if !ok {
		if p.err != nil {
			return Event{}, p.err
		}
		return Event{}, io.EOF
	}
	return ev, nil
}

// Close implements Stream by cancelling the upstream call, if any.
func (p *Pipe) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}
