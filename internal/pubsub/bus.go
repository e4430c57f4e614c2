package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/events"
)

// ErrUnexpectedPayload is reported when a typed handler receives an event of
// a different Go type than it was registered for.
var ErrUnexpectedPayload = errors.New("unexpected event payload")

// Handler reacts to an event. A returned error is logged and never reaches
// the emitter.
type Handler func(ctx context.Context, ev events.Event) error

type subscription struct {
	handler Handler
	id      uint64
	active  atomic.Bool
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithMirrorBuffer sets the buffer of each Stream subscriber.
func WithMirrorBuffer(size int) BusOption {
	return func(b *Bus) {
		b.mirrorBuffer = size
	}
}

// Bus is a synchronous, in-process event bus. Emit runs every handler
// subscribed to the event's kind, in subscription order, before returning.
// Each emitted event is also mirrored to a drop-on-full Broker for
// asynchronous observers.
type Bus struct { //nolint:govet // fieldalignment: preserving logical field order
	mu     sync.RWMutex
	subs   map[events.Kind][]*subscription
	nextID uint64

	mirrorBuffer int
	mirror       *Broker[events.Event]

	emitted  atomic.Int64
	failures atomic.Int64
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subs:         make(map[events.Kind][]*subscription),
		mirrorBuffer: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.mirror = NewBroker("bus", WithBufferSize[events.Event](b.mirrorBuffer))
	return b
}

// Subscribe registers h for kind and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus) Subscribe(kind events.Kind, h Handler) func() {
	sub := &subscription{handler: h}
	sub.active.Store(true)

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	// Copy on write so in-flight dispatches keep their snapshot.
	prev := b.subs[kind]
	next := make([]*subscription, len(prev), len(prev)+1)
	copy(next, prev)
	b.subs[kind] = append(next, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			b.remove(kind, sub.id)
		})
	}
}

func (b *Bus) remove(kind events.Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.subs[kind]
	next := make([]*subscription, 0, len(prev))
	for _, s := range prev {
		if s.id != id {
			next = append(next, s)
		}
	}
	if len(next) == 0 {
		delete(b.subs, kind)
		return
	}
	b.subs[kind] = next
}

// On subscribes a handler typed to the concrete event struct.
func On[E events.Event](b *Bus, kind events.Kind, fn func(context.Context, E) error) func() {
	return b.Subscribe(kind, func(ctx context.Context, ev events.Event) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("%w: %s carries %T", ErrUnexpectedPayload, kind, ev)
		}
		return fn(ctx, typed)
	})
}

// Emit delivers ev to every handler subscribed to its kind. Handlers that
// fail or panic are logged and skipped; the rest still run. Emit with no
// subscribers does nothing.
func (b *Bus) Emit(ctx context.Context, ev events.Event) {
	if ev == nil {
		return
	}
	kind := ev.Kind()

	b.mu.RLock()
	snapshot := b.subs[kind]
	b.mu.RUnlock()

	b.emitted.Add(1)
	for _, sub := range snapshot {
		// Unsubscribed after the snapshot was taken.
		if !sub.active.Load() {
			continue
		}
		b.dispatch(ctx, kind, sub, ev)
	}

	b.mirror.Publish(kind, ev)
}

func (b *Bus) dispatch(ctx context.Context, kind events.Kind, sub *subscription, ev events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.failures.Add(1)
			debug.Error("bus", fmt.Errorf("handler panic: %v", r), string(kind))
		}
	}()

	if err := sub.handler(ctx, ev); err != nil {
		b.failures.Add(1)
		debug.Error("bus", err, string(kind))
	}
}

// HasListeners reports whether any handler is subscribed to kind.
func (b *Bus) HasListeners(kind events.Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind]) > 0
}

// ListenerCount returns the number of handlers subscribed to kind.
func (b *Bus) ListenerCount(kind events.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Stream returns an asynchronous copy of every emitted event until ctx is
// done. Envelopes are dropped for slow readers.
func (b *Bus) Stream(ctx context.Context) <-chan Envelope[events.Event] {
	return b.mirror.Subscribe(ctx)
}

// Mirror exposes the broker behind Stream for registry introspection.
func (b *Bus) Mirror() *Broker[events.Event] {
	return b.mirror
}

// Stats returns bus counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	handlers := 0
	for _, list := range b.subs {
		handlers += len(list)
	}
	b.mu.RUnlock()

	return BusStats{
		Emitted:  b.emitted.Load(),
		Failures: b.failures.Load(),
		Handlers: handlers,
	}
}

// Shutdown closes every Stream channel. Synchronous handlers stay
// registered until their owners unsubscribe.
func (b *Bus) Shutdown() {
	b.mirror.Shutdown()
}

// BusStats contains bus statistics for debugging.
type BusStats struct {
	Emitted  int64
	Failures int64
	Handlers int
}
