package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/openrecipes/harvester/internal/logger"
)

// Handler processes one event. Errors are reported via the returned error
// and logged by the bus; they never reach the publisher.
type Handler func(ctx context.Context, e Event) error

// Subscription is the disposable handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	name string
	id   uint64
	once sync.Once
}

// Unsubscribe deregisters the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.name, s.id)
	})
}

// Bus is an in-process publish/subscribe dispatcher. Publication is
// synchronous dispatch with asynchronous handler execution: Publish
// snapshots the current subscribers and runs each handler in its own
// goroutine. A failing or panicking handler is logged and isolated; it
// cannot stall the pipeline or affect other handlers.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
	wg     sync.WaitGroup
	log    logger.Logger
}

// NewBus creates an event bus. Handlers are wired explicitly at startup;
// there is no runtime type scanning.
func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bus{
		subs: make(map[string]map[uint64]Handler),
		log:  log,
	}
}

// Subscribe registers a handler for one event name and returns a handle
// that deregisters it on Unsubscribe.
func (b *Bus) Subscribe(eventName string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[eventName] == nil {
		b.subs[eventName] = make(map[uint64]Handler)
	}
	b.subs[eventName][id] = h

	return &Subscription{bus: b, name: eventName, id: id}
}

// Publish delivers e to all current subscribers of e.Name(). It returns
// immediately; handlers run concurrently in the background.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Name()]))
	for _, h := range b.subs[e.Name()] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked",
						logger.String("event", e.Name()),
						logger.String("panic", fmt.Sprint(r)),
					)
				}
			}()
			if err := h(ctx, e); err != nil {
				b.log.Error("event handler failed",
					logger.String("event", e.Name()),
					logger.Error(err),
				)
			}
		}(h)
	}
}

// Drain blocks until all in-flight handlers have returned.
func (b *Bus) Drain() {
	b.wg.Wait()
}

// remove deletes one subscription.
func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.subs[eventName]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subs, eventName)
		}
	}
}
