package events

import "time"

// ActivityEventType distinguishes the activity transitions.
type ActivityEventType string

// Activity event type constants.
const (
	ActivityEventActive     ActivityEventType = "active"
	ActivityEventIdle       ActivityEventType = "idle"
	ActivityEventUserActive ActivityEventType = "user_active"
)

// ActivityEvent reports user presence.
type ActivityEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	Type      ActivityEventType
	Source    string // input that produced the signal, empty for idle
	Timestamp time.Time
}

// Kind implements Event.
func (e ActivityEvent) Kind() Kind {
	switch e.Type {
	case ActivityEventIdle:
		return KindIdle
	case ActivityEventUserActive:
		return KindUserActive
	default:
		return KindActive
	}
}

// NewActiveEvent creates an event for a recognized activity signal.
func NewActiveEvent(source string) ActivityEvent {
	return ActivityEvent{Type: ActivityEventActive, Source: source, Timestamp: time.Now()}
}

// NewIdleEvent creates an event for an elapsed idle threshold.
func NewIdleEvent() ActivityEvent {
	return ActivityEvent{Type: ActivityEventIdle, Timestamp: time.Now()}
}

// NewUserActiveEvent creates an event for a return from idle.
func NewUserActiveEvent(source string) ActivityEvent {
	return ActivityEvent{Type: ActivityEventUserActive, Source: source, Timestamp: time.Now()}
}

// VisibilityEvent reports that the host surface was shown or hidden.
type VisibilityEvent struct {
	Timestamp time.Time
	Visible   bool
}

// Kind implements Event.
func (VisibilityEvent) Kind() Kind { return KindVisibilityChanged }

// NewVisibilityEvent creates a visibility-changed event.
func NewVisibilityEvent(visible bool) VisibilityEvent {
	return VisibilityEvent{Visible: visible, Timestamp: time.Now()}
}
