// Package bridge provides the connection between the event bus and Bubble Tea.
package bridge

import (
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
)

// BusEventMsg wraps a bus event for the TUI.
type BusEventMsg struct {
	Event pubsub.Envelope[events.Event]
}

// Kind returns the wrapped event kind.
func (m BusEventMsg) Kind() events.Kind {
	return m.Event.Kind
}

// StoppedMsg is sent once when the bus stream closes.
type StoppedMsg struct{}
