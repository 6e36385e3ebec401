// Package publisher fans out committed transition log entries to
// best-effort sinks (Kafka, structured logs). Durable persistence happens
// inside the reconcile engine's transaction; sinks here are notification
// paths and must never fail or slow down a reconciliation.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"simtrack/internal/transition"
)

// Sink receives committed entries. Implementations own their delivery
// guarantees; an error is logged, never propagated.
type Sink interface {
	Publish(ctx context.Context, entry *transition.Entry) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, entry *transition.Entry) error

func (f SinkFunc) Publish(ctx context.Context, entry *transition.Entry) error {
	return f(ctx, entry)
}

// Publisher delivers entries to its sinks, synchronously by default or
// through a bounded buffer when configured. A full buffer drops the entry
// rather than stalling the reconcile path.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger

	buffer chan *transition.Entry
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(p *Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer switches delivery to a background goroutine with the given
// buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan *transition.Entry, size)
	}
}

// NewPublisher constructs a publisher over the given sinks.
func NewPublisher(sinks []Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sinks:  sinks,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit delivers one entry. A zero ID or Timestamp is filled in. In async
// mode a full buffer drops the entry with a warning.
func (p *Publisher) Emit(ctx context.Context, entry *transition.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if p.buffer == nil {
		p.deliver(ctx, entry)
		return nil
	}
	select {
	case p.buffer <- entry:
	default:
		p.logger.Warn("transition publisher buffer full, dropping entry",
			"simcard_code", entry.CardCode)
	}
	return nil
}

// Close drains buffered entries and stops the background goroutine. Safe to
// call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for entry := range p.buffer {
		p.deliver(context.Background(), entry)
	}
}

func (p *Publisher) deliver(ctx context.Context, entry *transition.Entry) {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, entry); err != nil {
			p.logger.WarnContext(ctx, "transition sink delivery failed",
				"simcard_code", entry.CardCode,
				"error", err)
		}
	}
}
