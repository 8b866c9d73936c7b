package notify

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultBufferSize = 256

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dealerpipe_notifications_dropped_total",
	Help: "Events dropped because the notification buffer was full.",
})

type Handler func(domain.Event)

// Bus fans events out to handlers on a single background goroutine, so Send
// never blocks and handlers see events in the order they were sent. Events
// sent while the buffer is full are dropped.
type Bus struct {
	logger *slog.Logger
	events chan domain.Event
	done   chan struct{}

	mu       sync.RWMutex
	closed   bool
	handlers map[int]Handler
	next     int
}

var _ ports.Notifier = (*Bus)(nil)

func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		logger:   logger,
		events:   make(chan domain.Event, buffer),
		done:     make(chan struct{}),
		handlers: map[int]Handler{},
	}
	go b.run()
	return b
}

func (b *Bus) Send(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.events <- event:
	default:
		droppedEvents.Inc()
		b.logger.Warn("notification dropped",
			slog.String("type", string(event.Type)),
			slog.String("record", string(event.RecordID)),
		)
	}
}

// Subscribe registers handler and returns a function removing it.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Close delivers the events already queued and stops the bus.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)

	for event := range b.events {
		for _, handler := range b.snapshot() {
			handler(event)
		}
	}
}

func (b *Bus) snapshot() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	return handlers
}
