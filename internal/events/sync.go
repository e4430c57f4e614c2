package events

import "time"

// Sync categories understood by the orchestrator.
const (
	CategoryReminders     = "reminders"
	CategoryNotifications = "notifications"
	CategoryAll           = "all"
)

// SyncStartEvent asks listeners to refresh a category of data.
type SyncStartEvent struct {
	Timestamp time.Time
	Category  string
}

// Kind implements Event.
func (SyncStartEvent) Kind() Kind { return KindSyncStart }

// NewSyncStartEvent creates a sync-start event.
func NewSyncStartEvent(category string) SyncStartEvent {
	return SyncStartEvent{Category: category, Timestamp: time.Now()}
}
