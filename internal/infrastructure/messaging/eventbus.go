// Package messaging implements the event bus that carries domain events
// between the sync engine and its subscribers.
package messaging

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/cphub/cp-training-hub/internal/domain/shared"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds event bus configuration.
type Config struct {
	// BufferSize is the size of the async event queue.
	BufferSize int

	// WorkerCount is the number of goroutines draining the queue.
	WorkerCount int

	// Async controls whether handlers run on worker goroutines. When false
	// Publish invokes handlers inline and returns the first handler error.
	Async bool

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:  256,
		WorkerCount: 4,
		Async:       true,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus implements shared.EventBus with per-type handler fan-out.
// In async mode events are queued and dispatched by a worker pool; a full
// queue drops the event with a warning rather than stalling a sync run.
type InMemoryEventBus struct {
	config      Config
	logger      *slog.Logger
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	queue       chan shared.Event
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// NewInMemoryEventBus creates an event bus and starts its workers when the
// config asks for async dispatch.
func NewInMemoryEventBus(config Config) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}

	bus := &InMemoryEventBus{
		config:   config,
		logger:   config.Logger.With("component", "eventbus"),
		handlers: make(map[shared.EventType][]shared.EventHandler),
	}

	if config.Async {
		bus.queue = make(chan shared.Event, config.BufferSize)
		for i := 0; i < config.WorkerCount; i++ {
			bus.wg.Add(1)
			go bus.worker()
		}
	}
	return bus
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler invoked for every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish delivers an event to all matching handlers.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if !b.config.Async {
		b.mu.RLock()
		closed := b.closed
		b.mu.RUnlock()
		if closed {
			return ErrBusClosed
		}
		return b.dispatch(event)
	}

	// The read lock spans the send so Close cannot close the queue between
	// the closed check and the enqueue.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("event queue full, dropping event",
			"type", event.EventType(), "aggregate_id", event.AggregateID())
		return nil
	}
}

// Close stops the workers after draining the queue. Publishing after Close
// returns ErrBusClosed.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	if b.queue != nil {
		close(b.queue)
		b.wg.Wait()
	}
}

func (b *InMemoryEventBus) worker() {
	defer b.wg.Done()
	for event := range b.queue {
		if err := b.dispatch(event); err != nil {
			b.logger.Error("event handler failed",
				"type", event.EventType(), "aggregate_id", event.AggregateID(), "error", err)
		}
	}
}

// dispatch runs all handlers for an event and returns the first error.
func (b *InMemoryEventBus) dispatch(event shared.Event) error {
	b.mu.RLock()
	typed := b.handlers[event.EventType()]
	all := b.allHandlers
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range typed {
		if err := b.safeInvoke(handler, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, handler := range all {
		if err := b.safeInvoke(handler, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// safeInvoke shields the bus from panicking handlers.
func (b *InMemoryEventBus) safeInvoke(handler shared.EventHandler, event shared.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"type", event.EventType(), "panic", r)
		}
	}()
	return handler(event)
}
