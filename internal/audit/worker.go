package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultFlushInterval = time.Second
	defaultBatchSize     = 100
)

// Worker moves events from the publisher's inbox into a ring buffer and
// flushes the buffer to the structured log in batches. When flushing falls
// behind, the buffer drops its oldest events.
type Worker struct {
	buffer        *RingBuffer
	inbox         <-chan Event
	logger        *slog.Logger
	flushInterval time.Duration
	batchSize     int

	reportedDrops int64
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithFlushInterval sets how often buffered events are written out.
func WithFlushInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

// WithBatchSize caps the events written per flush step.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func NewWorker(buffer *RingBuffer, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		buffer:        buffer,
		inbox:         inbox,
		logger:        logger.With("component", "audit"),
		flushInterval: defaultFlushInterval,
		batchSize:     defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run returns nil once ctx is cancelled, the inbox has been drained and the
// buffer flushed.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			w.flush()
			return nil
		case event := <-w.inbox:
			w.buffer.Enqueue(event)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.buffer.Enqueue(event)
		default:
			return
		}
	}
}

func (w *Worker) flush() {
	if dropped := w.buffer.Dropped(); dropped > w.reportedDrops {
		w.logger.Warn("audit events dropped", "count", dropped-w.reportedDrops)
		w.reportedDrops = dropped
	}
	for {
		batch := w.buffer.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			w.write(event)
		}
	}
}

func (w *Worker) write(event Event) {
	w.logger.Info("audit event",
		"action", string(event.Action),
		"outcome", event.Outcome,
		"email", event.Email,
		"reason", event.Reason,
		"request_id", event.RequestID,
		"client_ip", event.ClientIP,
		"user_agent", event.UserAgent,
		"timestamp", event.Timestamp,
	)
}
