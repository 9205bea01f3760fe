package audit

import (
	"context"
	"sync/atomic"

	"clientauth/pkg/requestcontext"
)

// Publisher hands events to the worker. Emit never blocks: when the inbox
// is full the event is counted as dropped.
type Publisher struct {
	inbox   chan Event
	dropped atomic.Int64
}

func NewPublisher(size int) *Publisher {
	if size <= 0 {
		size = 1024
	}
	return &Publisher{inbox: make(chan Event, size)}
}

// Emit stamps events that carry no timestamp with the request time.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
	}
}

// Inbox is the channel a Worker consumes.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Dropped counts events rejected because the inbox was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}
