package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"caseform/internal/domain"
)

// Publisher writes events to the store, synchronously by default or through a
// buffered background worker when WithAsyncBuffer is set. Sinks receive a
// best-effort copy of every event.
type Publisher struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// buffer capacity. A full buffer drops the event rather than blocking the
// caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// WithSink fans emitted events out to an additional best-effort sink.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sink)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit records one event, stamping the timestamp when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.append(ctx, event)
	}

	// The enqueue never blocks, so cancellation is checked up front rather
	// than raced inside the select.
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event", slog.String("action", string(event.Action)))
		return errors.New("audit buffer full")
	}
}

// List returns the events recorded for one case.
func (p *Publisher) List(ctx context.Context, caseID domain.CaseID) ([]Event, error) {
	return p.store.ListByCase(ctx, caseID)
}

func (p *Publisher) append(ctx context.Context, event Event) error {
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.Warn("audit sink append failed",
				slog.String("action", string(event.Action)),
				slog.String("error", err.Error()))
		}
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) run() {
	for event := range p.inbox {
		if err := p.append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed",
				slog.String("action", string(event.Action)),
				slog.String("error", err.Error()))
		}
	}
	close(p.done)
}

// Close drains the async buffer and stops the worker. Safe to call on a
// synchronous publisher.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}
