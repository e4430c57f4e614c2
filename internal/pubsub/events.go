// Package pubsub provides the cadence event bus and the asynchronous
// broker that mirrors it to background observers.
package pubsub

import (
	"context"
	"time"

	"github.com/guilhermegouw/cadence/internal/events"
)

// Envelope wraps a payload delivered by a Broker.
type Envelope[T any] struct { //nolint:govet // fieldalignment: preserving logical field order
	Kind      events.Kind
	Payload   T
	Seq       uint64
	Timestamp time.Time
}

// Publisher is the interface for publishing to a broker.
type Publisher[T any] interface {
	Publish(events.Kind, T)
}

// Subscriber is the interface for subscribing to a broker.
type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Envelope[T]
}

// Emitter is implemented by anything that can dispatch an event
// synchronously. Components depend on it instead of on *Bus.
type Emitter interface {
	Emit(ctx context.Context, ev events.Event)
}
