// Package events defines the typed events exchanged over the cadence event bus.
package events

// Kind names an event. Subscriptions are keyed by kind.
type Kind string

// Event kinds emitted by the core.
const (
	KindReminderCreated      Kind = "reminder-created"
	KindReminderUpdated      Kind = "reminder-updated"
	KindNotificationReceived Kind = "notification-received"
	KindUserActive           Kind = "user-active"
	KindVisibilityChanged    Kind = "visibility-changed"
	KindActive               Kind = "active"
	KindIdle                 Kind = "idle"
	KindTaskStart            Kind = "task-start"
	KindTaskComplete         Kind = "task-complete"
	KindTaskError            Kind = "task-error"
	KindSyncStart            Kind = "sync-start"
	KindDialogOpen           Kind = "dialog-open"
	KindChannelState         Kind = "channel-state"
	KindChannelMessage       Kind = "channel-message"
	KindReconnectExhausted   Kind = "reconnect-exhausted"
	KindHealthWarning        Kind = "health-warning"
)

// Event is implemented by every payload that travels over the bus.
type Event interface {
	Kind() Kind
}

// Known reports whether k is one of the kinds declared in this package.
func Known(k Kind) bool {
	switch k {
	case KindReminderCreated, KindReminderUpdated, KindNotificationReceived,
		KindUserActive, KindVisibilityChanged, KindActive, KindIdle,
		KindTaskStart, KindTaskComplete, KindTaskError, KindSyncStart,
		KindDialogOpen, KindChannelState, KindChannelMessage,
		KindReconnectExhausted, KindHealthWarning:
		return true
	}
	return false
}
