package events

import "time"

// ReminderEventType represents reminder mutations.
type ReminderEventType string

// Reminder event type constants.
const (
	ReminderEventCreated ReminderEventType = "created"
	ReminderEventUpdated ReminderEventType = "updated"
)

// ReminderEvent reports a local reminder change.
type ReminderEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	ReminderID string
	Type       ReminderEventType
	Timestamp  time.Time
}

// Kind implements Event.
func (e ReminderEvent) Kind() Kind {
	if e.Type == ReminderEventUpdated {
		return KindReminderUpdated
	}
	return KindReminderCreated
}

// NewReminderCreatedEvent creates a reminder-created event.
func NewReminderCreatedEvent(id string) ReminderEvent {
	return ReminderEvent{ReminderID: id, Type: ReminderEventCreated, Timestamp: time.Now()}
}

// NewReminderUpdatedEvent creates a reminder-updated event.
func NewReminderUpdatedEvent(id string) ReminderEvent {
	return ReminderEvent{ReminderID: id, Type: ReminderEventUpdated, Timestamp: time.Now()}
}
