// Package notify provides a category-keyed asynchronous publish/subscribe bus
// for in-process change events.
//
// Key properties:
//   - Snapshot dispatch: a publish invokes exactly the handlers registered at
//     the moment of publish; handlers added during a publish are excluded.
//   - Isolation: a panic in one handler is recovered and logged without
//     affecting sibling handlers or the publisher.
//   - Bounded fan-out: handlers run concurrently on a bounded pool and
//     Publish returns only once all of them have completed.
//
// Handlers are never invoked while the registry lock is held, so a handler
// may safely subscribe or unsubscribe from within its own invocation.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// DefaultMaxFanOut bounds the number of handlers running concurrently during
// a single publish.
const DefaultMaxFanOut = 8

// Handler consumes a single published event.
type Handler[E any] func(ctx context.Context, event E)

// Subscription is an opaque registration token returned by Subscribe and
// consumed by Unsubscribe.
type Subscription struct {
	id       uint64
	category string
}

// Config holds the configuration for a Bus.
type Config struct {
	// MaxFanOut bounds concurrent handler invocations per publish.
	// Zero means DefaultMaxFanOut.
	MaxFanOut int
	// Logger receives handler panic reports. Nil means slog.Default.
	Logger *slog.Logger
}

type entry[E any] struct {
	id      uint64
	handler Handler[E]
}

// Bus dispatches events to global and category-scoped handlers.
type Bus[E any] struct {
	categoryOf func(E) string
	maxFanOut  int
	logger     *slog.Logger

	mu     sync.Mutex
	subs   map[string][]entry[E] // key "" holds global handlers
	nextID uint64
}

// New creates a bus for events of type E. categoryOf extracts the routing
// category from an event; it must not be nil.
func New[E any](categoryOf func(E) string, config Config) *Bus[E] {
	if categoryOf == nil {
		panic("notify: categoryOf must not be nil")
	}
	maxFanOut := config.MaxFanOut
	if maxFanOut <= 0 {
		maxFanOut = DefaultMaxFanOut
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[E]{
		categoryOf: categoryOf,
		maxFanOut:  maxFanOut,
		logger:     logger,
		subs:       make(map[string][]entry[E]),
	}
}

// Subscribe registers a handler. A blank category registers a global handler
// invoked for every event; a non-blank category registers a handler invoked
// only for events of that category. The returned token cancels the
// registration via Unsubscribe.
func (b *Bus[E]) Subscribe(category string, handler Handler[E]) *Subscription {
	if handler == nil {
		panic("notify: handler must not be nil")
	}
	category = strings.TrimSpace(category)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[category] = append(b.subs[category], entry[E]{id: b.nextID, handler: handler})
	return &Subscription{id: b.nextID, category: category}
}

// Unsubscribe removes a previously registered handler. It is a no-op for nil
// or already-removed tokens. A category whose last handler is removed is
// dropped from the registry.
func (b *Bus[E]) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.subs[sub.category]
	for i, e := range entries {
		if e.id == sub.id {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(b.subs, sub.category)
	} else {
		b.subs[sub.category] = entries
	}
}

// Publish delivers the event to all global handlers plus the handlers
// registered for the event's category. It returns once every snapshotted
// handler has completed. Handler panics are recovered and logged; no handler
// failure is propagated to the caller or to sibling handlers. No ordering is
// guaranteed between handlers.
func (b *Bus[E]) Publish(ctx context.Context, event E) {
	category := strings.TrimSpace(b.categoryOf(event))

	b.mu.Lock()
	snapshot := make([]entry[E], 0, len(b.subs[""])+len(b.subs[category]))
	snapshot = append(snapshot, b.subs[""]...)
	if category != "" {
		snapshot = append(snapshot, b.subs[category]...)
	}
	b.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(b.maxFanOut)
	for _, e := range snapshot {
		handler := e.handler
		p.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						slog.String("category", category),
						slog.Any("panic", r))
				}
			}()
			handler(ctx, event)
		})
	}
	p.Wait()
}

// HandlerCount reports the number of registered handlers for a category,
// with "" meaning global handlers.
func (b *Bus[E]) HandlerCount(category string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[strings.TrimSpace(category)])
}
