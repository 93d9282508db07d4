package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink receives events at the end of the pipeline.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Publisher accepts events from the request path without blocking it. Events
// are buffered on a channel and drained by Run; when the buffer is full the
// event is dropped and counted rather than stalling a token exchange.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	inbox  chan Event

	mu      sync.Mutex
	dropped int64
}

// NewPublisher constructs a publisher with the given buffer capacity.
func NewPublisher(sink Sink, logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{
		sink:   sink,
		logger: logger,
		inbox:  make(chan Event, buffer),
	}
}

// Emit enqueues an event, stamping ID and timestamp if unset.
func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		p.logger.Warn("audit event dropped, buffer full", "action", event.Action)
	}
}

// Dropped reports how many events were lost to back-pressure.
func (p *Publisher) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Run drains the inbox into the sink until ctx is cancelled. Sink failures
// are logged and skipped; audit delivery is best-effort by design and must
// never take the token endpoint down with it.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-p.inbox:
			if err := p.sink.Emit(ctx, event); err != nil {
				p.logger.Error("audit sink emit failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}

// MemoryStore is a Sink that retains events in memory for tests and dev.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything captured so far.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByAction filters the captured events.
func (s *MemoryStore) ByAction(action string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
